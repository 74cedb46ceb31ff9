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
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/skyvault/internal/bootstrap"
	"github.com/kraklabs/skyvault/internal/contract"
	"github.com/kraklabs/skyvault/internal/errors"
	"github.com/kraklabs/skyvault/internal/output"
	"github.com/kraklabs/skyvault/internal/ui"
	"github.com/kraklabs/skyvault/pkg/catalog"
	"github.com/kraklabs/skyvault/pkg/ingest"
)

// runIngest executes the 'ingest' CLI command, registering raw
// observation files in the repository catalog.
//
// For each file it extracts the data identity from the headers, verifies
// the prerequisite dimension entries, computes the detector sky region,
// and registers the file as a "raw" dataset. After the batch, detector
// regions are merged into per-visit regions. A JSON run report is
// persisted under .skyvault/runs/.
//
// Flags:
//   - --collection: Target collection (default: from project.yaml)
//   - --transfer: File transfer mode: none, copy, hardlink, symlink, move
//   - --conflict: Conflict policy: ignore, fail
//   - --stash: Collection to redirect conflicting files to
//   - --on-error: Batch failure policy: continue, break, rollback
//   - --no-regions: Skip sky region computation
//   - --pad: Detector bounding box padding in pixels
//   - --debug: Enable debug logging
//   - --metrics-addr: HTTP address for Prometheus metrics (default: disabled)
//
// Examples:
//
//	skyvault ingest raw/*.yaml                    Register files in place
//	skyvault ingest --transfer copy raw/*.yaml    Copy into the datastore
//	skyvault ingest --on-error rollback raw/*     All-or-nothing batch
//	skyvault ingest --stash raw/quarantine raw/*  Redirect conflicts
func runIngest(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	collection := fs.String("collection", "", "Target collection (default: from project.yaml)")
	transfer := fs.String("transfer", "", "Transfer mode: none, copy, hardlink, symlink, move")
	conflict := fs.String("conflict", "", "Conflict policy: ignore, fail")
	stash := fs.String("stash", "", "Collection to redirect conflicting files to")
	onError := fs.String("on-error", "", "Batch failure policy: continue, break, rollback")
	noRegions := fs.Bool("no-regions", false, "Skip sky region computation")
	pad := fs.Int("pad", 0, "Detector bounding box padding in pixels")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: skyvault ingest [options] <files...>

Description:
  Register raw observation files in the repository catalog. Each file's
  headers are read to extract its data identity (instrument, detector,
  filter, visit, exposure); the file is recorded as a "raw" dataset and
  its detector sky region is computed. Detector regions sharing a visit
  are merged into one visit region after the batch.

  Defaults come from the ingest section of .skyvault/project.yaml;
  flags override them per run.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  skyvault ingest raw/*.yaml
  skyvault ingest --transfer copy --on-error rollback raw/*.yaml
  skyvault ingest --conflict ignore --stash raw/quarantine raw/*.yaml
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	files := fs.Args()
	if v := contract.ValidateBatch(files); !v.OK {
		errors.FatalError(errors.NewInputError(
			"Invalid batch",
			v.Message,
			"Pass at least one file; split very large batches into several runs",
		), globals.JSON)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Cannot load project configuration",
			err.Error(),
			"Run 'skyvault init' in the repository root, or pass --config",
			err,
		), globals.JSON)
	}
	root, err := findRoot(configPath)
	if err != nil {
		errors.FatalError(errors.NewNotFoundError(
			"Repository not found",
			err.Error(),
			"Run 'skyvault init' in the repository root",
		), globals.JSON)
	}

	driverCfg := cfg.Ingest
	if fs.Changed("transfer") {
		driverCfg.Transfer = catalog.TransferMode(*transfer)
	}
	if fs.Changed("conflict") {
		driverCfg.Conflict = ingest.ConflictPolicy(*conflict)
	}
	if fs.Changed("stash") {
		driverCfg.Stash = *stash
	}
	if fs.Changed("on-error") {
		driverCfg.OnError = ingest.ErrorPolicy(*onError)
	}
	if fs.Changed("no-regions") {
		driverCfg.AddRegions = !*noRegions
	}
	if fs.Changed("pad") {
		driverCfg.PadRegionPx = *pad
	}

	target := cfg.Repository.Collection
	if fs.Changed("collection") {
		target = *collection
	}
	if v := contract.ValidateCollection(target); !v.OK {
		errors.FatalError(errors.NewInputError(
			"Invalid collection name",
			v.Message,
			"Pick a short name like raw/main",
		), globals.JSON)
	}

	// Setup logging
	logLevel := slog.LevelInfo
	if *debug || globals.Verbose > 0 {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Start Prometheus metrics endpoint (optional)
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown.signal", "signal", sig.String())
		cancel()
	}()

	cat, err := bootstrap.OpenRepository(bootstrap.RepositoryConfig{
		Name: cfg.Repository.Name,
		Dir:  root,
	}, logger)
	if err != nil {
		errors.FatalError(errors.NewCatalogError(
			"Cannot open the repository catalog",
			err.Error(),
			"Run 'skyvault init' first, or check file permissions on .skyvault/",
			err,
		), globals.JSON)
	}
	defer func() { _ = cat.Close() }()

	if err := seedInstruments(ctx, cat, cfg.Instruments, logger); err != nil {
		errors.FatalError(errors.NewCatalogError(
			"Cannot register instruments",
			err.Error(),
			"Check the instruments section of .skyvault/project.yaml",
			err,
		), globals.JSON)
	}

	opts := []ingest.Option{ingest.WithLogger(logger)}
	progressCfg := NewProgressConfig(globals)
	bar := NewProgressBar(progressCfg, int64(len(files)), "ingesting")
	if bar != nil {
		opts = append(opts, ingest.WithProgress(func(done, total int) {
			_ = bar.Set(done)
		}))
	}

	driver, err := ingest.New(driverCfg, cat, buildRegistry(cfg), target, opts...)
	if err != nil {
		errors.FatalError(errors.NewConfigError(
			"Invalid ingest settings",
			err.Error(),
			"Check the ingest section of .skyvault/project.yaml and your flags",
			err,
		), globals.JSON)
	}

	report, runErr := driver.Run(ctx, files)
	if bar != nil {
		_ = bar.Finish()
	}

	writer := ingest.NewReportWriter(bootstrap.RunsDir(root))
	if path, err := writer.Write(report); err != nil {
		logger.Warn("ingest.report.write.error", "err", err)
	} else {
		logger.Debug("ingest.report.written", "path", path)
	}

	if globals.JSON {
		output.JSONOrWarn(report)
	} else {
		printIngestReport(report)
	}

	if runErr != nil {
		errors.FatalError(errors.NewIngestError(
			"Ingest run failed",
			runErr.Error(),
			"Inspect the failures above; re-run with --on-error continue to skip bad files",
			runErr,
		), globals.JSON)
	}
	if report.Failed > 0 {
		os.Exit(errors.ExitIngest)
	}
}

// seedInstruments makes sure the static dimension entries every raw file
// depends on exist: the instrument itself, its detectors, and its
// physical filters. Existing entries are left untouched.
func seedInstruments(ctx context.Context, cat catalog.Catalog, instruments []InstrumentConfig, logger *slog.Logger) error {
	for _, ic := range instruments {
		entries := []catalog.DimensionEntry{{
			Dimension:   "instrument",
			IdentityKey: "instrument=" + ic.Name,
			Fields:      map[string]any{"name": ic.Name},
		}}
		for _, det := range ic.Detectors {
			entries = append(entries, catalog.DimensionEntry{
				Dimension:   "detector",
				IdentityKey: fmt.Sprintf("instrument=%s,detector=%d", ic.Name, det),
			})
		}
		for _, f := range ic.Filters {
			entries = append(entries, catalog.DimensionEntry{
				Dimension:   "physical_filter",
				IdentityKey: fmt.Sprintf("instrument=%s,physical_filter=%s", ic.Name, f),
			})
		}

		for _, entry := range entries {
			existing, err := cat.FindDimensionEntry(ctx, entry.Dimension, entry.IdentityKey)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			if err := cat.AddDimensionEntry(ctx, entry); err != nil {
				return err
			}
			logger.Debug("ingest.seed.entry", "dimension", entry.Dimension, "identity", entry.IdentityKey)
		}
	}
	return nil
}

// printIngestReport prints the run summary as formatted text to stdout.
func printIngestReport(report *ingest.Report) {
	fmt.Println()
	ui.Header("Ingest Complete")
	fmt.Printf("%s %s\n", ui.Label("Run ID:"), ui.RunIDText(report.RunID))
	fmt.Printf("%s %s\n", ui.Label("Collection:"), report.Collection)
	fmt.Println()

	ui.SubHeader("Files:")
	fmt.Printf("  Ingested:   %s\n", ui.CountText(report.Ingested))
	if report.Stashed > 0 {
		fmt.Printf("  Stashed:    %s\n", ui.CountText(report.Stashed))
	}
	if report.Dropped > 0 {
		fmt.Printf("  Dropped:    %s\n", ui.CountText(report.Dropped))
	}
	if report.Failed > 0 {
		fmt.Printf("  Failed:     %s\n", ui.CountText(report.Failed))
	}

	fmt.Println()
	ui.SubHeader("Catalog writes:")
	fmt.Printf("  Dimension entries:  %d\n", report.DimensionInserts)
	fmt.Printf("  Detector regions:   %d", report.RegionWrites)
	if report.RegionDuplicates > 0 {
		fmt.Printf(" (%d already present)", report.RegionDuplicates)
	}
	fmt.Println()
	fmt.Printf("  Visit merges:       %d\n", report.VisitMerges)

	if len(report.Failures) > 0 {
		fmt.Println()
		ui.SubHeader("Failures:")
		for _, f := range report.Failures {
			fmt.Println(ui.FailureLine(f.File, f.Error))
		}
	}

	fmt.Println()
	fmt.Printf("%s %s\n", ui.Label("Duration:"), report.Duration().Round(time.Millisecond).String())
}
