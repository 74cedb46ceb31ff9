// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kraklabs/skyvault/internal/bootstrap"
	"github.com/kraklabs/skyvault/internal/ui"
)

// initFlags holds parsed flags for the init command.
type initFlags struct {
	force, nonInteractive bool
	name, collection      string
	instrumentName        string
	formatter             string
	detectors, filters    string
}

// runInit executes the 'init' CLI command, creating the repository layout
// and the .skyvault/project.yaml configuration file.
//
// It creates the .skyvault and datastore directories, bootstraps the
// catalog schema, registers the default collection, and writes the
// project configuration. In interactive mode the user is prompted for
// the repository name, default collection and a first instrument.
//
// Flags:
//   - --force: Overwrite existing configuration (default: false)
//   - -y: Non-interactive mode, use all defaults (default: false)
//   - --name: Repository name (default: directory name)
//   - --collection: Default collection (default: raw/main)
//   - --instrument: Instrument name to register
//   - --formatter: Formatter class for the instrument
//   - --detectors: Comma-separated detector ids (e.g. 0,1,2)
//   - --filters: Comma-separated physical filters (e.g. r,g,i)
//
// Examples:
//
//	skyvault init                              Interactive setup
//	skyvault init -y                           Use all defaults
//	skyvault init --instrument TestCam --detectors 0,1 --filters r,g
func runInit(args []string, globals GlobalFlags) {
	flags := parseInitFlags(args)

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}

	configPath := ConfigPath(cwd)
	if _, err := os.Stat(configPath); err == nil && !flags.force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists. Use --force to overwrite.\n", configPath)
		os.Exit(1)
	}

	cfg := createInitConfig(cwd, flags)
	reader := bufio.NewReader(os.Stdin)

	if !flags.nonInteractive {
		runInteractiveConfig(reader, cfg)
	}

	bootstrapRepository(cwd, cfg, globals)
	saveInitConfig(configPath, cfg)
	printNextSteps()
}

func parseInitFlags(args []string) initFlags {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var f initFlags
	fs.BoolVar(&f.force, "force", false, "Overwrite existing configuration")
	fs.BoolVar(&f.nonInteractive, "y", false, "Non-interactive mode (use defaults)")
	fs.StringVar(&f.name, "name", "", "Repository name (default: directory name)")
	fs.StringVar(&f.collection, "collection", "", "Default collection (default: raw/main)")
	fs.StringVar(&f.instrumentName, "instrument", "", "Instrument name to register")
	fs.StringVar(&f.formatter, "formatter", "", "Formatter class for the instrument")
	fs.StringVar(&f.detectors, "detectors", "", "Comma-separated detector ids (e.g. 0,1,2)")
	fs.StringVar(&f.filters, "filters", "", "Comma-separated physical filters (e.g. r,g,i)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: skyvault init [options]

Creates the repository layout (.skyvault/, datastore/) and the
.skyvault/project.yaml configuration file, and bootstraps the catalog.

Examples:
  skyvault init                                      # Interactive setup
  skyvault init -y                                   # Use all defaults
  skyvault init --instrument TestCam --detectors 0,1 --filters r,g
  skyvault init --collection raw/commissioning

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	return f
}

func createInitConfig(cwd string, f initFlags) *Config {
	name := f.name
	if name == "" {
		name = filepath.Base(cwd)
	}
	cfg := DefaultConfig(name)
	if f.collection != "" {
		cfg.Repository.Collection = f.collection
	}
	if f.instrumentName != "" {
		cfg.Instruments = append(cfg.Instruments, InstrumentConfig{
			Name:      f.instrumentName,
			Formatter: instrumentFormatter(f.instrumentName, f.formatter),
			Detectors: parseDetectorList(f.detectors),
			Filters:   parseFilterList(f.filters),
		})
	}
	return cfg
}

func runInteractiveConfig(reader *bufio.Reader, cfg *Config) {
	fmt.Println("SkyVault Repository Configuration")
	fmt.Println("=================================")
	fmt.Println()

	cfg.Repository.Name = prompt(reader, "Repository name", cfg.Repository.Name)
	cfg.Repository.Collection = prompt(reader, "Default collection", cfg.Repository.Collection)

	if len(cfg.Instruments) == 0 {
		promptInstrumentConfig(reader, cfg)
	}
	fmt.Println()
}

func promptInstrumentConfig(reader *bufio.Reader, cfg *Config) {
	fmt.Println()
	fmt.Println("Instrument Registration")
	fmt.Println("Declare the camera your raw files come from. Files naming an")
	fmt.Println("unregistered instrument are rejected at ingest time.")
	fmt.Println("Leave empty to skip (edit .skyvault/project.yaml later).")
	fmt.Println()

	name := prompt(reader, "Instrument name (e.g. TestCam)", "")
	if name == "" {
		return
	}
	ic := InstrumentConfig{
		Name:      name,
		Formatter: prompt(reader, "Formatter class", instrumentFormatter(name, "")),
		Detectors: parseDetectorList(prompt(reader, "Detector ids (comma-separated)", "0")),
		Filters:   parseFilterList(prompt(reader, "Physical filters (comma-separated)", "")),
	}
	cfg.Instruments = append(cfg.Instruments, ic)
}

// instrumentFormatter returns the formatter class, defaulting to the
// conventional skyvault.formatters.<Name>Raw name.
func instrumentFormatter(name, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return fmt.Sprintf("skyvault.formatters.%sRaw", name)
}

func parseDetectorList(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ignoring detector id %q: %v\n", part, err)
			continue
		}
		out = append(out, id)
	}
	return out
}

func parseFilterList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func bootstrapRepository(cwd string, cfg *Config, globals GlobalFlags) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if globals.Verbose > 0 {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	info, err := bootstrap.InitRepository(bootstrap.RepositoryConfig{
		Name:              cfg.Repository.Name,
		Dir:               cwd,
		DefaultCollection: cfg.Repository.Collection,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot initialize repository: %v\n", err)
		os.Exit(1)
	}

	ui.Successf("Catalog created: %s", info.CatalogPath)
	ui.Successf("Datastore root:  %s", info.DatastoreRoot)
}

func saveInitConfig(configPath string, cfg *Config) {
	if err := SaveConfig(cfg, configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot save configuration: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created %s\n", configPath)
	addToGitignore(filepath.Dir(filepath.Dir(configPath)))
}

func printNextSteps() {
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit .skyvault/project.yaml if needed")
	fmt.Println("  2. Run 'skyvault ingest <files...>' to ingest raw files")
	fmt.Println("  3. Run 'skyvault status' to inspect the catalog")
}

// prompt displays an interactive prompt and reads user input from stdin.
//
// If the user presses Enter without providing input, the defaultValue is
// returned. Used during interactive repository setup.
func prompt(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultValue
	}
	return input
}

// addToGitignore adds .skyvault/ to the project's .gitignore file if not
// already present.
//
// It safely appends the entry, avoiding duplicates. If .gitignore does
// not exist or cannot be modified, the function silently returns.
func addToGitignore(dir string) {
	gitignorePath := filepath.Join(dir, ".gitignore")

	content, err := os.ReadFile(gitignorePath) //nolint:gosec // G304: gitignorePath built from repo dir
	if err != nil {
		if os.IsNotExist(err) {
			// No .gitignore, nothing to do
			return
		}
		return
	}

	// Check if .skyvault/ is already listed
	lines := strings.Split(string(content), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == ".skyvault/" || line == ".skyvault" || line == "/.skyvault/" || line == "/.skyvault" {
			return // Already present
		}
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_WRONLY, 0600) //nolint:gosec // G304: gitignorePath built from repo dir
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	// Add newline if file doesn't end with one
	if len(content) > 0 && content[len(content)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}

	_, _ = f.WriteString("\n# SkyVault repository data\n.skyvault/\ndatastore/\n")
	fmt.Println("Added .skyvault/ and datastore/ to .gitignore")
}
