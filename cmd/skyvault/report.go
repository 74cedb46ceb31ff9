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
	"flag"
	"fmt"
	"os"

	"github.com/kraklabs/skyvault/internal/bootstrap"
	"github.com/kraklabs/skyvault/internal/errors"
	"github.com/kraklabs/skyvault/internal/output"
	"github.com/kraklabs/skyvault/pkg/ingest"
)

// runReport executes the 'report' CLI command, printing a persisted
// ingest run report from .skyvault/runs/.
//
// Flags:
//   - --json: Output the raw report JSON (default: false)
//
// Examples:
//
//	skyvault report 6f1c9b2a41d0e37c          Show a run summary
//	skyvault report 6f1c9b2a41d0e37c --json   Raw report JSON
func runReport(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: skyvault report [options] <run-id>

Shows the persisted report of a previous ingest run. Run ids are
printed at the end of each 'skyvault ingest' and stored as JSON
files under .skyvault/runs/.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	asJSON := *jsonOutput || globals.JSON

	if fs.NArg() != 1 {
		errors.FatalError(errors.NewInputError(
			"Invalid arguments",
			"The report command requires exactly one argument: the run id",
			"Run 'skyvault report <run-id>'; ids are listed in .skyvault/runs/",
		), asJSON)
	}
	runID := fs.Arg(0)

	root, err := findRoot(configPath)
	if err != nil {
		errors.FatalError(errors.NewNotFoundError(
			"Repository not found",
			err.Error(),
			"Run 'skyvault init' in the repository root",
		), asJSON)
	}

	report, err := ingest.NewReportWriter(bootstrap.RunsDir(root)).Load(runID)
	if err != nil {
		errors.FatalError(errors.NewCatalogError(
			"Cannot read run report",
			err.Error(),
			"Check that .skyvault/runs/ is readable",
			err,
		), asJSON)
	}
	if report == nil {
		errors.FatalError(errors.NewNotFoundError(
			"Run not found",
			fmt.Sprintf("No report for run id %q", runID),
			"List .skyvault/runs/ for available run ids",
		), asJSON)
	}

	if asJSON {
		output.JSONOrWarn(report)
	} else {
		printIngestReport(report)
	}
}
