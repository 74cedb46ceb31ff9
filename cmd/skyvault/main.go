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
// Package main implements the SkyVault CLI for ingesting raw observation
// files into a local data repository.
//
// Usage:
//
//	skyvault init                       Create .skyvault/project.yaml and the repository
//	skyvault ingest <files...>          Ingest raw observation files
//	skyvault status [--json]            Show repository status
//	skyvault report <run-id> [--json]   Show a persisted ingest run report
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kraklabs/skyvault/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// GlobalFlags carries the flags every command respects.
type GlobalFlags struct {
	// JSON switches command output to machine-readable JSON. Implies Quiet.
	JSON bool

	// Quiet suppresses progress bars and informational chatter.
	Quiet bool

	// NoColor disables ANSI colors in terminal output.
	NoColor bool

	// Verbose raises the log level (0 = info, 1+ = debug).
	Verbose int
}

// main is the entry point for the SkyVault CLI.
//
// It parses global flags and dispatches to command handlers.
//
// Global flags:
//   - --version: Display version information and exit
//   - --config: Path to .skyvault/project.yaml configuration file
//   - --json: Output as JSON (implies --quiet)
//   - -q/--quiet: Suppress progress output
//   - --no-color: Disable colored output
//
// Commands:
//   - init: Create .skyvault/project.yaml and the repository layout
//   - ingest: Ingest raw observation files into a collection
//   - status: Show repository statistics
//   - report: Show a persisted ingest run report
//   - completion: Generate shell completion script
func main() {
	// Global flags
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to .skyvault/project.yaml (default: ./.skyvault/project.yaml)")
		jsonOutput  = flag.Bool("json", false, "Output as JSON (implies --quiet)")
		quiet       = flag.Bool("quiet", false, "Suppress progress output")
		quietShort  = flag.Bool("q", false, "Suppress progress output (shorthand)")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
		verbose     = flag.Int("verbose", 0, "Verbosity level (1 enables debug logging)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `SkyVault - Raw Observation Ingest

SkyVault catalogs raw astronomical observation files into a local
data repository: it extracts instrument, detector, filter, visit and
exposure identity from file headers, registers each file as a "raw"
dataset in a queryable catalog, and computes the sky region each
detector and visit covers.

Usage:
  skyvault <command> [options]

Commands:
  init          Create .skyvault/project.yaml and the repository layout
  ingest        Ingest raw observation files into a collection
  status        Show repository status
  report        Show a persisted ingest run report
  completion    Generate shell completion script (bash|zsh|fish)

Global Options:
  --config      Path to .skyvault/project.yaml
  --json        Output as JSON (implies --quiet)
  -q, --quiet   Suppress progress output
  --no-color    Disable colored output
  --version     Show version and exit

Examples:
  skyvault init                               Create a repository interactively
  skyvault ingest raw/*.yaml                  Ingest raw files
  skyvault ingest --transfer copy raw/*.yaml  Copy files into the datastore
  skyvault ingest --on-error rollback raw/*   All-or-nothing batch
  skyvault status                             Show repository status
  skyvault status --json                      Output as JSON
  skyvault completion bash                    Generate bash completion script

Getting Started:
  1. Initialize the repository:   skyvault init
  2. Ingest your raw files:       skyvault ingest raw/*.yaml
  3. Check the catalog:           skyvault status

Data Storage:
  The catalog lives in .skyvault/catalog.db; managed file copies go
  under datastore/; run reports are kept in .skyvault/runs/.

Environment Variables:
  SKYVAULT_MAX_BATCH_FILES  Per-run batch size limit (default: 10000)

For detailed command help: skyvault <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("skyvault version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	globals := GlobalFlags{
		JSON:    *jsonOutput,
		Quiet:   *quiet || *quietShort || *jsonOutput,
		NoColor: *noColor,
		Verbose: *verbose,
	}
	ui.InitColors(globals.NoColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, globals)
	case "ingest":
		runIngest(cmdArgs, *configPath, globals)
	case "status":
		runStatus(cmdArgs, *configPath, globals)
	case "report":
		runReport(cmdArgs, *configPath, globals)
	case "completion":
		runCompletion(cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
