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
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/kraklabs/skyvault/internal/bootstrap"
	"github.com/kraklabs/skyvault/internal/output"
	"github.com/kraklabs/skyvault/internal/ui"
)

// StatusResult represents the repository status for JSON output.
type StatusResult struct {
	Repository       string    `json:"repository"`
	Root             string    `json:"root"`
	CatalogPath      string    `json:"catalog_path"`
	Datasets         int       `json:"datasets"`
	DimensionEntries int       `json:"dimension_entries"`
	Regions          int       `json:"regions"`
	Collections      int       `json:"collections"`
	Instruments      []string  `json:"instruments,omitempty"`
	Error            string    `json:"error,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// runStatus executes the 'status' CLI command, displaying repository
// catalog statistics.
//
// It counts the datasets, dimension entries, sky regions and collections
// in the catalog, so users can verify what a run actually registered.
//
// Flags:
//   - --json: Output results as JSON (default: false)
//
// Examples:
//
//	skyvault status           Display formatted status
//	skyvault status --json    Output as JSON for programmatic use
func runStatus(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: skyvault status [options]

Shows repository catalog statistics.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	asJSON := *jsonOutput || globals.JSON

	// Load configuration
	cfg, err := LoadConfig(configPath)
	if err != nil {
		statusFail(&StatusResult{Error: err.Error(), Timestamp: time.Now()}, err, asJSON)
	}
	root, err := findRoot(configPath)
	if err != nil {
		statusFail(&StatusResult{Error: err.Error(), Timestamp: time.Now()}, err, asJSON)
	}

	result := &StatusResult{
		Repository:  cfg.Repository.Name,
		Root:        root,
		CatalogPath: bootstrap.CatalogPath(root),
		Timestamp:   time.Now(),
	}
	for _, ic := range cfg.Instruments {
		result.Instruments = append(result.Instruments, ic.Name)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat, err := bootstrap.OpenRepository(bootstrap.RepositoryConfig{
		Name: cfg.Repository.Name,
		Dir:  root,
	}, logger)
	if err != nil {
		result.Error = fmt.Sprintf("Cannot open catalog: %v", err)
		statusFail(result, err, asJSON)
	}
	defer func() { _ = cat.Close() }()

	stats, err := cat.Stats(context.Background())
	if err != nil {
		result.Error = fmt.Sprintf("Cannot read catalog statistics: %v", err)
		statusFail(result, err, asJSON)
	}

	result.Datasets = stats.Datasets
	result.DimensionEntries = stats.DimensionEntries
	result.Regions = stats.Regions
	result.Collections = stats.Collections

	if asJSON {
		output.JSONOrWarn(result)
	} else {
		printStatus(result)
	}
}

// statusFail reports a status error in the requested format and exits.
func statusFail(result *StatusResult, err error, asJSON bool) {
	if asJSON {
		output.JSONOrWarn(result)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

// printStatus prints the status result as formatted text to stdout.
func printStatus(result *StatusResult) {
	ui.Header("SkyVault Repository Status")
	fmt.Printf("%s %s\n", ui.Label("Repository:"), result.Repository)
	fmt.Printf("%s %s\n", ui.Label("Root:"), ui.DimText(result.Root))
	if len(result.Instruments) > 0 {
		fmt.Printf("%s %v\n", ui.Label("Instruments:"), result.Instruments)
	}
	fmt.Println()

	ui.SubHeader("Catalog:")
	fmt.Printf("  Datasets:          %s\n", ui.CountText(result.Datasets))
	fmt.Printf("  Dimension entries: %s\n", ui.CountText(result.DimensionEntries))
	fmt.Printf("  Sky regions:       %s\n", ui.CountText(result.Regions))
	fmt.Printf("  Collections:       %s\n", ui.CountText(result.Collections))

	if result.Error != "" {
		fmt.Printf("\nWarning: %s\n", result.Error)
	}
}
