// Copyright 2025 KrakLabs
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

// Package ingest drives raw observation files into a SkyVault catalog.
//
// Each file is read once, its identity and sky footprint extracted, the
// dimension entries it references verified or created, and the dataset
// registered inside its own transaction scope. Conflicts with already
// ingested datasets are values, not failures: policy decides whether they
// stop the batch, land in a stash collection, or are dropped.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kraklabs/skyvault/pkg/catalog"
	"github.com/kraklabs/skyvault/pkg/geom"
	"github.com/kraklabs/skyvault/pkg/instrument"
	"github.com/kraklabs/skyvault/pkg/obsfile"
)

const (
	rawDatasetTypeName = "raw"
	rawStorageClass    = "Exposure"

	formatterCacheSize = 32
)

// RawDatasetType is the dataset type every raw file is registered under.
func RawDatasetType() catalog.DatasetType {
	return catalog.DatasetType{
		Name:         rawDatasetTypeName,
		Dimensions:   []string{DimInstrument, DimDetector, DimExposure},
		StorageClass: rawStorageClass,
	}
}

// visitKey identifies one visit's accumulated region vertices during a run.
type visitKey struct {
	Instrument string
	Visit      int64
}

// errConflictAbort forces the per-file transaction to roll back when the
// attempt hit a conflict, so a redirected retry starts from a clean scope.
var errConflictAbort = errors.New("ingest: conflict, rolling back attempt")

// Ingestor is the raw ingest driver. It is not safe for concurrent use;
// run one batch at a time.
type Ingestor struct {
	cfg         Config
	cat         catalog.Catalog
	instruments *instrument.Registry
	extractor   RawExtractor
	translator  obsfile.Translator
	logger      *slog.Logger
	progress    func(done, total int)

	collection  string
	dimensions  []string
	datasetType catalog.DatasetType

	formatters   *lru.Cache[string, instrument.Instrument]
	entries      *entryCache
	visitRegions map[visitKey][]geom.UnitVector
	stashReady   bool

	report *Report
}

// Option customizes an Ingestor.
type Option func(*Ingestor)

// WithExtractor replaces the standard raw extractor.
func WithExtractor(e RawExtractor) Option {
	return func(in *Ingestor) { in.extractor = e }
}

// WithTranslator replaces the standard header translator.
func WithTranslator(tr obsfile.Translator) Option {
	return func(in *Ingestor) { in.translator = tr }
}

// WithLogger sets the driver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(in *Ingestor) { in.logger = l }
}

// WithProgress installs a callback invoked after each file.
func WithProgress(fn func(done, total int)) Option {
	return func(in *Ingestor) { in.progress = fn }
}

// New builds an ingest driver writing into the given collection.
func New(cfg Config, cat catalog.Catalog, instruments *instrument.Registry, collection string, opts ...Option) (*Ingestor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if collection == "" {
		return nil, errors.New("ingest: target collection must not be empty")
	}
	if cfg.Stash == collection {
		return nil, fmt.Errorf("ingest: stash collection must differ from target %q", collection)
	}
	formatters, err := lru.New[string, instrument.Instrument](formatterCacheSize)
	if err != nil {
		return nil, err
	}
	in := &Ingestor{
		cfg:          cfg,
		cat:          cat,
		instruments:  instruments,
		extractor:    NewStandardExtractor(),
		translator:   obsfile.NewHeaderTranslator(),
		logger:       slog.Default(),
		progress:     func(int, int) {},
		collection:   collection,
		dimensions:   AllDimensions,
		datasetType:  RawDatasetType(),
		formatters:   formatters,
		entries:      newEntryCache(),
		visitRegions: make(map[visitKey][]geom.UnitVector),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in, nil
}

// Run ingests a batch of raw files. Paths are made absolute before any
// catalog write. The returned report reflects all attempted work even
// when err is non-nil; under OnErrorRollback a non-nil err means nothing
// was committed.
func (in *Ingestor) Run(ctx context.Context, files []string) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:      newRunID(in.collection, start),
		Collection: in.collection,
		StartedAt:  start,
		Files:      len(files),
	}
	in.report = report
	in.visitRegions = make(map[visitKey][]geom.UnitVector)

	abs := make([]string, len(files))
	for i, f := range files {
		a, err := filepath.Abs(f)
		if err != nil {
			return report, fmt.Errorf("resolve %s: %w", f, err)
		}
		abs[i] = a
	}

	if err := in.cat.RegisterDatasetType(ctx, in.datasetType); err != nil {
		return report, err
	}
	if err := in.cat.EnsureCollection(ctx, in.collection); err != nil {
		return report, err
	}

	in.logger.Info("ingest.run.start",
		"run_id", report.RunID,
		"collection", in.collection,
		"files", len(abs),
		"transfer", string(in.cfg.Transfer),
		"on_error", string(in.cfg.OnError),
	)

	var runErr error
	switch in.cfg.OnError {
	case OnErrorRollback:
		runErr = in.cat.InTransaction(ctx, func(ctx context.Context) error {
			if err := in.runFiles(ctx, abs, true); err != nil {
				return err
			}
			return in.commitVisitRegions(ctx)
		})
	case OnErrorBreak:
		runErr = in.runFiles(ctx, abs, true)
		if runErr == nil {
			runErr = in.commitVisitRegions(ctx)
		}
	case OnErrorContinue:
		runErr = in.runFiles(ctx, abs, false)
		if err := in.commitVisitRegions(ctx); err != nil && runErr == nil {
			runErr = err
		}
	}

	report.FinishedAt = time.Now()
	recordRunDuration(report.FinishedAt.Sub(start))
	in.logger.Info("ingest.run.done",
		"run_id", report.RunID,
		"ingested", report.Ingested,
		"stashed", report.Stashed,
		"dropped", report.Dropped,
		"failed", report.Failed,
		"duration", report.FinishedAt.Sub(start).String(),
	)
	return report, runErr
}

// runFiles processes the batch. With stopOnError the first failure ends
// the loop; otherwise failures are recorded and the loop keeps going.
// Context cancellation always ends the loop.
func (in *Ingestor) runFiles(ctx context.Context, files []string, stopOnError bool) error {
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := in.processFile(ctx, file); err != nil {
			in.report.Failed++
			in.report.Failures = append(in.report.Failures, FileFailure{File: file, Error: err.Error()})
			recordFileFailed()
			if stopOnError {
				return fmt.Errorf("%s: %w", file, err)
			}
			in.logger.Warn("ingest.file.error", "path", file, "error", err)
		}
		in.progress(i+1, len(files))
	}
	return nil
}

// processFile takes one file from headers to a committed dataset (or a
// policy-resolved conflict).
func (in *Ingestor) processFile(ctx context.Context, file string) error {
	fileStart := time.Now()

	dataID, err := in.ensureDimensions(ctx, file)
	if err != nil {
		return err
	}

	outcome, err := in.ingestScoped(ctx, file, dataID, in.collection)
	if err != nil {
		return err
	}
	if outcome.Ref != nil {
		in.report.Ingested++
		recordFileIngested(time.Since(fileStart))
		in.logger.Debug("ingest.file.done",
			"path", file, "data_id", dataID.Key(), "collection", in.collection, "dataset", outcome.Ref.ID.String())
		return nil
	}

	// Conflict against the target collection.
	recordConflict()
	if in.cfg.Conflict == ConflictFail {
		return outcome.Conflict
	}
	if in.cfg.Stash == "" {
		in.report.Dropped++
		recordFileDropped()
		in.logger.Info("ingest.file.conflict.drop", "path", file, "data_id", dataID.Key())
		return nil
	}

	// Stash collection is created lazily, on the first redirected file.
	if !in.stashReady {
		if err := in.cat.EnsureCollection(ctx, in.cfg.Stash); err != nil {
			return err
		}
		in.stashReady = true
	}
	stashed, err := in.ingestScoped(ctx, file, dataID, in.cfg.Stash)
	if err != nil {
		return err
	}
	if stashed.Conflict != nil {
		// A conflict against the stash itself is not redirected again.
		return stashed.Conflict
	}
	in.report.Stashed++
	recordFileStashed()
	in.logger.Info("ingest.file.conflict.stash",
		"path", file, "data_id", dataID.Key(), "stash", in.cfg.Stash)
	return nil
}

// ensureDimensions extracts the file's identity and guarantees every
// dimension entry it references exists: exposure and visit entries are
// created on demand, everything else must predate the ingest. When
// regions are enabled the detector region is written here too.
func (in *Ingestor) ensureDimensions(ctx context.Context, file string) (DataID, error) {
	headers, err := in.extractor.ReadHeaders(file)
	if err != nil {
		return DataID{}, err
	}
	info, err := in.translator.Translate(headers[0])
	if err != nil {
		return DataID{}, err
	}
	dataID, err := in.extractor.ExtractDataID(file, info, in.dimensions)
	if err != nil {
		return DataID{}, err
	}

	for _, dim := range in.dimensions {
		if !dataID.Has(dim) {
			continue
		}
		key, err := dataID.EntryKey(dim)
		if err != nil {
			return DataID{}, err
		}
		if in.entries.has(dim, key) {
			continue
		}
		entry, err := in.cat.FindDimensionEntry(ctx, dim, key)
		if err != nil {
			return DataID{}, err
		}
		if entry == nil {
			if dim != DimExposure && dim != DimVisit {
				return DataID{}, &PrerequisiteError{Dimension: dim, IdentityKey: key}
			}
			err := in.cat.AddDimensionEntry(ctx, catalog.DimensionEntry{
				Dimension:   dim,
				IdentityKey: key,
				Fields:      dataID.entryFields(dim),
			})
			if err != nil {
				return DataID{}, err
			}
			in.report.DimensionInserts++
			recordDimensionInsert()
			in.logger.Debug("ingest.dimension.added", "dimension", dim, "identity", key)
		}
		in.entries.markDone(dim, key)
	}

	if in.cfg.AddRegions {
		if err := in.writeDetectorRegion(ctx, file, headers, dataID); err != nil {
			return DataID{}, err
		}
	}
	return dataID, nil
}

// writeDetectorRegion computes and stores the file's sky footprint, and
// banks its vertices for the visit-level merge. An existing region for
// the same identity is left alone: all raws of one (visit, detector)
// share a footprint, so the duplicate is benign.
func (in *Ingestor) writeDetectorRegion(ctx context.Context, file string, headers []obsfile.Header, dataID DataID) error {
	regionKey, ok := dataID.DetectorRegionKey()
	if !ok {
		in.logger.Debug("ingest.region.skip", "path", file, "reason", "identity has no visit")
		return nil
	}
	region, err := in.extractor.BuildRegion(headers, in.cfg.PadRegionPx)
	if err != nil {
		return err
	}
	err = in.cat.SetRegion(ctx, regionKey, region, false)
	switch {
	case errors.Is(err, catalog.ErrRegionExists):
		in.report.RegionDuplicates++
		recordRegionDuplicate()
		in.logger.Debug("ingest.region.exists", "identity", regionKey)
		return nil
	case err != nil:
		return err
	}
	vk := visitKey{Instrument: dataID.Instrument, Visit: *dataID.Visit}
	in.visitRegions[vk] = append(in.visitRegions[vk], region.Vertices()...)
	in.report.RegionWrites++
	recordRegionWrite()
	return nil
}

// ingestScoped registers one dataset inside its own transaction scope. A
// conflict rolls the scope back and is returned as a value, so nothing of
// the failed attempt leaks into a retry against another collection.
func (in *Ingestor) ingestScoped(ctx context.Context, file string, dataID DataID, collection string) (IngestOutcome, error) {
	var outcome IngestOutcome
	err := in.cat.InTransaction(ctx, func(ctx context.Context) error {
		o, err := in.ingestFile(ctx, file, dataID, collection)
		if err != nil {
			return err
		}
		outcome = o
		if o.Conflict != nil {
			return errConflictAbort
		}
		return nil
	})
	if err != nil && !errors.Is(err, errConflictAbort) {
		return IngestOutcome{}, err
	}
	return outcome, nil
}

func (in *Ingestor) ingestFile(ctx context.Context, file string, dataID DataID, collection string) (IngestOutcome, error) {
	formatter, err := in.formatterFor(dataID)
	if err != nil {
		return IngestOutcome{}, err
	}
	ref, err := in.cat.Ingest(ctx, catalog.IngestRequest{
		Path:        file,
		DatasetType: in.datasetType.Name,
		IdentityKey: dataID.Key(),
		Collection:  collection,
		Transfer:    in.cfg.Transfer,
		Formatter:   formatter,
	})
	if errors.Is(err, catalog.ErrDatasetExists) {
		return IngestOutcome{Conflict: &IngestConflict{File: file, DataID: dataID, Collection: collection}}, nil
	}
	if err != nil {
		return IngestOutcome{}, err
	}
	return IngestOutcome{Ref: ref}, nil
}

// formatterFor resolves the instrument's raw formatter, caching the
// instrument handle across files of the same camera.
func (in *Ingestor) formatterFor(dataID DataID) (string, error) {
	inst, ok := in.formatters.Get(dataID.Instrument)
	if !ok {
		var err error
		inst, err = in.instruments.Lookup(dataID.Instrument)
		if err != nil {
			return "", err
		}
		in.formatters.Add(dataID.Instrument, inst)
	}
	return inst.RawFormatter(dataID.Detector), nil
}

// commitVisitRegions merges the vertices banked during the batch into
// each touched visit's stored region. Existing region vertices are folded
// in first, so successive batches only ever grow a visit's footprint.
func (in *Ingestor) commitVisitRegions(ctx context.Context) error {
	if len(in.visitRegions) == 0 {
		return nil
	}
	keys := make([]visitKey, 0, len(in.visitRegions))
	for vk := range in.visitRegions {
		keys = append(keys, vk)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Instrument != keys[j].Instrument {
			return keys[i].Instrument < keys[j].Instrument
		}
		return keys[i].Visit < keys[j].Visit
	})

	for _, vk := range keys {
		vertices := in.visitRegions[vk]
		entryKey := VisitEntryKey(vk.Instrument, vk.Visit)
		expanded, err := in.cat.ExpandIdentity(ctx, DimVisit, entryKey, true)
		if err != nil {
			return err
		}
		if expanded != nil && expanded.Region != nil {
			vertices = append(expanded.Region.Vertices(), vertices...)
		}
		region, err := geom.NewConvexPolygon(vertices)
		if err != nil {
			return fmt.Errorf("merge region for %s: %w", entryKey, err)
		}
		if err := in.cat.SetRegion(ctx, entryKey, region, true); err != nil {
			return err
		}
		in.report.VisitMerges++
		recordVisitMerge()
		in.logger.Debug("ingest.visit_region.commit", "identity", entryKey, "vertices", region.Len())
	}
	in.visitRegions = make(map[visitKey][]geom.UnitVector)
	return nil
}
