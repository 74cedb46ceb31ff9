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

package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kraklabs/skyvault/pkg/catalog"
	"github.com/kraklabs/skyvault/pkg/instrument"
)

const testInstrument = "TestCam"

// pixelScaleDeg is one arcsecond per pixel.
const pixelScaleDeg = 1.0 / 3600.0

func rawCards(exposure int64, detector int, raOffsetDeg float64) map[string]any {
	return map[string]any{
		"INSTRUME": testInstrument,
		"EXPID":    exposure,
		"DETECTOR": detector,
		"DATE-OBS": "2025-11-04T06:12:00Z",
		"EXPTIME":  30.0,
		"NAXIS1":   2048,
		"NAXIS2":   2048,
		"CRVAL1":   25.0 + raOffsetDeg,
		"CRVAL2":   -10.0,
		"CRPIX1":   1024.0,
		"CRPIX2":   1024.0,
		"CD1_1":    pixelScaleDeg,
		"CD1_2":    0.0,
		"CD2_1":    0.0,
		"CD2_2":    pixelScaleDeg,
	}
}

func visitCards(exposure int64, detector int, visit int64, raOffsetDeg float64) map[string]any {
	cards := rawCards(exposure, detector, raOffsetDeg)
	cards["VISIT"] = visit
	cards["FILTER"] = "r"
	return cards
}

func writeRaw(t *testing.T, dir, name string, cards map[string]any) string {
	t.Helper()
	data, err := yaml.Marshal(cards)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// seedStatics registers the hardware entries an ingest run takes as given.
func seedStatics(t *testing.T, cat catalog.Catalog, detectors []int, filters []string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, cat.AddDimensionEntry(ctx, catalog.DimensionEntry{
		Dimension:   DimInstrument,
		IdentityKey: "instrument=" + testInstrument,
	}))
	cam := DataID{Instrument: testInstrument}
	for _, det := range detectors {
		cam.Detector = det
		key, err := cam.EntryKey(DimDetector)
		require.NoError(t, err)
		require.NoError(t, cat.AddDimensionEntry(ctx, catalog.DimensionEntry{
			Dimension:   DimDetector,
			IdentityKey: key,
		}))
	}
	for _, f := range filters {
		filter := f
		cam.PhysicalFilter = &filter
		key, err := cam.EntryKey(DimPhysicalFilter)
		require.NoError(t, err)
		require.NoError(t, cat.AddDimensionEntry(ctx, catalog.DimensionEntry{
			Dimension:   DimPhysicalFilter,
			IdentityKey: key,
		}))
	}
}

func newTestCatalog(t *testing.T) *catalog.SQLiteCatalog {
	t.Helper()
	cat, err := catalog.OpenSQLite(catalog.SQLiteConfig{Root: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })
	seedStatics(t, cat, []int{7, 8}, []string{"r", "g"})
	return cat
}

func newTestIngestor(t *testing.T, cfg Config, cat catalog.Catalog, collection string) *Ingestor {
	t.Helper()
	reg := instrument.NewRegistry()
	reg.Register(testInstrument, func() instrument.Instrument {
		return instrument.Simple{InstrumentName: testInstrument, Formatter: "skyvault.formatters.TestCamRaw"}
	})
	in, err := New(cfg, cat, reg, collection,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return in
}

func TestRunIngestsBatch(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	in := newTestIngestor(t, DefaultConfig(), cat, "raw/main")
	dir := t.TempDir()

	files := []string{
		writeRaw(t, dir, "exp1001_det7.yaml", visitCards(1001, 7, 12, 0)),
		writeRaw(t, dir, "exp1001_det8.yaml", visitCards(1001, 8, 12, 0.4)),
	}
	report, err := in.Run(ctx, files)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Ingested)
	assert.Equal(t, 0, report.Failed)
	// One exposure entry and one visit entry, shared by both files.
	assert.Equal(t, 2, report.DimensionInserts)
	assert.Equal(t, 2, report.RegionWrites)
	assert.Equal(t, 1, report.VisitMerges)

	for _, det := range []int{7, 8} {
		v := int64(12)
		f := "r"
		id := DataID{
			Instrument: testInstrument, Exposure: 1001, Detector: det,
			Visit: &v, PhysicalFilter: &f,
			dims: AllDimensions,
		}
		ref, err := cat.FindDataset(ctx, "raw", id.Key(), "raw/main")
		require.NoError(t, err)
		require.NotNil(t, ref, "dataset for detector %d", det)
		assert.Equal(t, "skyvault.formatters.TestCamRaw", ref.Formatter)
		assert.True(t, filepath.IsAbs(ref.Path))
	}

	entry, err := cat.FindDimensionEntry(ctx, DimExposure, "instrument=TestCam,exposure=1001")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "2025-11-04T06:12:00Z", entry.Fields["date_obs"])

	expanded, err := cat.ExpandIdentity(ctx, DimVisit, VisitEntryKey(testInstrument, 12), true)
	require.NoError(t, err)
	require.NotNil(t, expanded)
	require.NotNil(t, expanded.Region, "visit region written after batch")
}

func TestVisitRegionCoversDetectorRegions(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	in := newTestIngestor(t, DefaultConfig(), cat, "raw/main")
	dir := t.TempDir()

	// Two detectors of the same visit, offset on the sky.
	_, err := in.Run(ctx, []string{
		writeRaw(t, dir, "a.yaml", visitCards(1001, 7, 12, 0)),
		writeRaw(t, dir, "b.yaml", visitCards(1001, 8, 12, 0.4)),
	})
	require.NoError(t, err)

	extractor := NewStandardExtractor()
	expanded, err := cat.ExpandIdentity(ctx, DimVisit, VisitEntryKey(testInstrument, 12), true)
	require.NoError(t, err)
	require.NotNil(t, expanded.Region)

	for _, name := range []string{"a.yaml", "b.yaml"} {
		headers, err := extractor.ReadHeaders(filepath.Join(dir, name))
		require.NoError(t, err)
		det, err := extractor.BuildRegion(headers, 0)
		require.NoError(t, err)
		assert.True(t, expanded.Region.ContainsAll(det.Vertices()),
			"visit region must cover detector footprint from %s", name)
	}
}

func TestVisitRegionGrowsAcrossRuns(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	dir := t.TempDir()

	first := newTestIngestor(t, DefaultConfig(), cat, "raw/main")
	_, err := first.Run(ctx, []string{writeRaw(t, dir, "a.yaml", visitCards(1001, 7, 12, 0))})
	require.NoError(t, err)

	before, err := cat.ExpandIdentity(ctx, DimVisit, VisitEntryKey(testInstrument, 12), true)
	require.NoError(t, err)
	require.NotNil(t, before.Region)

	// A later run adds a second detector to the same visit; the stored
	// region must grow to cover the old footprint plus the new one.
	second := newTestIngestor(t, DefaultConfig(), cat, "raw/main")
	_, err = second.Run(ctx, []string{writeRaw(t, dir, "b.yaml", visitCards(1002, 8, 12, 0.4))})
	require.NoError(t, err)

	after, err := cat.ExpandIdentity(ctx, DimVisit, VisitEntryKey(testInstrument, 12), true)
	require.NoError(t, err)
	require.NotNil(t, after.Region)
	assert.True(t, after.Region.ContainsAll(before.Region.Vertices()))
}

func TestVisitlessFileSkipsRegion(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	in := newTestIngestor(t, DefaultConfig(), cat, "raw/main")
	dir := t.TempDir()

	// A dark frame: no VISIT, no FILTER.
	report, err := in.Run(ctx, []string{writeRaw(t, dir, "dark.yaml", rawCards(2001, 7, 0))})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Ingested)
	assert.Equal(t, 0, report.RegionWrites)
	assert.Equal(t, 0, report.VisitMerges)

	ref, err := cat.FindDataset(ctx, "raw", "instrument=TestCam,detector=7,exposure=2001", "raw/main")
	require.NoError(t, err)
	require.NotNil(t, ref)
}

func TestMissingPrerequisiteEntryFails(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	cfg := DefaultConfig()
	cfg.OnError = OnErrorBreak
	in := newTestIngestor(t, cfg, cat, "raw/main")
	dir := t.TempDir()

	// Detector 99 was never registered.
	_, err := in.Run(ctx, []string{writeRaw(t, dir, "bad.yaml", visitCards(1001, 99, 12, 0))})
	var prereq *PrerequisiteError
	require.ErrorAs(t, err, &prereq)
	assert.Equal(t, DimDetector, prereq.Dimension)
	assert.Equal(t, "instrument=TestCam,detector=99", prereq.IdentityKey)
}

func TestConflictDropWithoutStash(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	dir := t.TempDir()
	file := writeRaw(t, dir, "a.yaml", visitCards(1001, 7, 12, 0))

	first := newTestIngestor(t, DefaultConfig(), cat, "raw/main")
	_, err := first.Run(ctx, []string{file})
	require.NoError(t, err)

	second := newTestIngestor(t, DefaultConfig(), cat, "raw/main")
	report, err := second.Run(ctx, []string{file})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Ingested)
	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, 1, report.RegionDuplicates)
}

func TestConflictRedirectsToStash(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	dir := t.TempDir()
	file := writeRaw(t, dir, "a.yaml", visitCards(1001, 7, 12, 0))

	first := newTestIngestor(t, DefaultConfig(), cat, "raw/main")
	_, err := first.Run(ctx, []string{file})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Stash = "raw/stash"
	second := newTestIngestor(t, cfg, cat, "raw/main")
	report, err := second.Run(ctx, []string{file})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stashed)

	v := int64(12)
	f := "r"
	id := DataID{Instrument: testInstrument, Exposure: 1001, Detector: 7, Visit: &v, PhysicalFilter: &f, dims: AllDimensions}
	ref, err := cat.FindDataset(ctx, "raw", id.Key(), "raw/stash")
	require.NoError(t, err)
	require.NotNil(t, ref, "conflicting file lands in stash collection")
}

func TestConflictAgainstStashIsNotRedirected(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	dir := t.TempDir()
	file := writeRaw(t, dir, "a.yaml", visitCards(1001, 7, 12, 0))

	first := newTestIngestor(t, DefaultConfig(), cat, "raw/main")
	_, err := first.Run(ctx, []string{file})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Stash = "raw/stash"
	cfg.OnError = OnErrorBreak
	second := newTestIngestor(t, cfg, cat, "raw/main")
	_, err = second.Run(ctx, []string{file})
	require.NoError(t, err)

	// The same dataset is now in both collections; a third attempt
	// conflicts in the stash too and must surface as an error.
	third := newTestIngestor(t, cfg, cat, "raw/main")
	_, err = third.Run(ctx, []string{file})
	var conflict *IngestConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "raw/stash", conflict.Collection)
}

func TestConflictFailPolicy(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	dir := t.TempDir()
	file := writeRaw(t, dir, "a.yaml", visitCards(1001, 7, 12, 0))

	first := newTestIngestor(t, DefaultConfig(), cat, "raw/main")
	_, err := first.Run(ctx, []string{file})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Conflict = ConflictFail
	cfg.OnError = OnErrorBreak
	second := newTestIngestor(t, cfg, cat, "raw/main")
	_, err = second.Run(ctx, []string{file})
	var conflict *IngestConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "raw/main", conflict.Collection)
}

func TestOnErrorContinueKeepsGoing(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	in := newTestIngestor(t, DefaultConfig(), cat, "raw/main")
	dir := t.TempDir()

	broken := visitCards(1002, 7, 13, 0)
	delete(broken, "EXPID")
	files := []string{
		writeRaw(t, dir, "good1.yaml", visitCards(1001, 7, 12, 0)),
		writeRaw(t, dir, "broken.yaml", broken),
		writeRaw(t, dir, "good2.yaml", visitCards(1003, 8, 14, 0.4)),
	}
	report, err := in.Run(ctx, files)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Ingested)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, files[1], report.Failures[0].File)
}

func TestOnErrorBreakStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	cfg := DefaultConfig()
	cfg.OnError = OnErrorBreak
	in := newTestIngestor(t, cfg, cat, "raw/main")
	dir := t.TempDir()

	broken := visitCards(1001, 7, 12, 0)
	delete(broken, "INSTRUME")
	files := []string{
		writeRaw(t, dir, "good1.yaml", visitCards(1000, 7, 11, 0)),
		writeRaw(t, dir, "broken.yaml", broken),
		writeRaw(t, dir, "good2.yaml", visitCards(1002, 8, 13, 0.4)),
	}
	report, err := in.Run(ctx, files)
	require.Error(t, err)
	assert.Equal(t, 1, report.Ingested)
	assert.Equal(t, 1, report.Failed)

	// The file before the failure is committed, the one after untouched.
	ref, err := cat.FindDataset(ctx, "raw", "instrument=TestCam,detector=7,physical_filter=r,visit=11,exposure=1000", "raw/main")
	require.NoError(t, err)
	assert.NotNil(t, ref)
	ref, err = cat.FindDataset(ctx, "raw", "instrument=TestCam,detector=8,physical_filter=r,visit=13,exposure=1002", "raw/main")
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestOnErrorRollbackUndoesEverything(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	cfg := DefaultConfig()
	cfg.OnError = OnErrorRollback
	in := newTestIngestor(t, cfg, cat, "raw/main")
	dir := t.TempDir()

	broken := visitCards(1002, 7, 13, 0)
	delete(broken, "EXPID")
	files := []string{
		writeRaw(t, dir, "good.yaml", visitCards(1001, 7, 12, 0)),
		writeRaw(t, dir, "broken.yaml", broken),
	}
	_, err := in.Run(ctx, files)
	require.Error(t, err)

	ref, err := cat.FindDataset(ctx, "raw", "instrument=TestCam,detector=7,physical_filter=r,visit=12,exposure=1001", "raw/main")
	require.NoError(t, err)
	assert.Nil(t, ref, "committed nothing after rollback")
	entry, err := cat.FindDimensionEntry(ctx, DimExposure, "instrument=TestCam,exposure=1001")
	require.NoError(t, err)
	assert.Nil(t, entry, "exposure entry rolled back")
}

func TestRelativePathsAreMadeAbsolute(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	in := newTestIngestor(t, DefaultConfig(), cat, "raw/main")
	dir := t.TempDir()
	writeRaw(t, dir, "a.yaml", visitCards(1001, 7, 12, 0))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	report, err := in.Run(ctx, []string{"a.yaml"})
	require.NoError(t, err)
	require.Equal(t, 1, report.Ingested)

	v := int64(12)
	f := "r"
	id := DataID{Instrument: testInstrument, Exposure: 1001, Detector: 7, Visit: &v, PhysicalFilter: &f, dims: AllDimensions}
	ref, err := cat.FindDataset(ctx, "raw", id.Key(), "raw/main")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.True(t, filepath.IsAbs(ref.Path))
}

func TestRunRespectsContextCancellation(t *testing.T) {
	cat := newTestCatalog(t)
	in := newTestIngestor(t, DefaultConfig(), cat, "raw/main")
	dir := t.TempDir()
	file := writeRaw(t, dir, "a.yaml", visitCards(1001, 7, 12, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := in.Run(ctx, []string{file})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cat := newTestCatalog(t)
	reg := instrument.NewRegistry()

	cfg := DefaultConfig()
	cfg.OnError = ErrorPolicy("explode")
	_, err := New(cfg, cat, reg, "raw/main")
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.Stash = "raw/main"
	_, err = New(cfg, cat, reg, "raw/main")
	require.Error(t, err)

	_, err = New(DefaultConfig(), cat, reg, "")
	require.Error(t, err)
}

func TestUnknownInstrumentFails(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	cfg := DefaultConfig()
	cfg.OnError = OnErrorBreak

	reg := instrument.NewRegistry() // empty: TestCam never registered
	in, err := New(cfg, cat, reg, "raw/main",
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	dir := t.TempDir()
	_, err = in.Run(ctx, []string{writeRaw(t, dir, "a.yaml", visitCards(1001, 7, 12, 0))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestConflictAttemptLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)
	dir := t.TempDir()

	// With transfer=copy, a conflicting attempt must not leave a copied
	// file behind: the attempt's scope is rolled back, undoing the copy.
	cfg := DefaultConfig()
	cfg.Transfer = catalog.TransferCopy
	first := newTestIngestor(t, cfg, cat, "raw/main")
	file := writeRaw(t, dir, "a.yaml", visitCards(1001, 7, 12, 0))
	_, err := first.Run(ctx, []string{file})
	require.NoError(t, err)

	statsBefore, err := cat.Stats(ctx)
	require.NoError(t, err)

	second := newTestIngestor(t, cfg, cat, "raw/main")
	report, err := second.Run(ctx, []string{file})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dropped)

	statsAfter, err := cat.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, statsBefore.Datasets, statsAfter.Datasets)
}
