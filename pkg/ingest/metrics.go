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
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsIngest holds Prometheus metrics for the raw ingest driver.
type metricsIngest struct {
	once sync.Once

	// Per-file outcomes
	filesIngested prometheus.Counter
	filesStashed  prometheus.Counter
	filesDropped  prometheus.Counter
	filesFailed   prometheus.Counter
	conflicts     prometheus.Counter

	// Catalog writes
	dimensionInserts prometheus.Counter
	regionWrites     prometheus.Counter
	regionDuplicates prometheus.Counter
	visitMerges      prometheus.Counter

	// Durations
	fileDuration prometheus.Histogram
	runDuration  prometheus.Histogram
}

var ingMetrics metricsIngest

func (m *metricsIngest) init() {
	m.once.Do(func() {
		m.filesIngested = prometheus.NewCounter(prometheus.CounterOpts{Name: "skyvault_ing_files_ingested_total", Help: "Raw files ingested into the target collection"})
		m.filesStashed = prometheus.NewCounter(prometheus.CounterOpts{Name: "skyvault_ing_files_stashed_total", Help: "Conflicting files redirected to the stash collection"})
		m.filesDropped = prometheus.NewCounter(prometheus.CounterOpts{Name: "skyvault_ing_files_dropped_total", Help: "Conflicting files dropped (no stash configured)"})
		m.filesFailed = prometheus.NewCounter(prometheus.CounterOpts{Name: "skyvault_ing_files_failed_total", Help: "Files that failed extraction or catalog writes"})
		m.conflicts = prometheus.NewCounter(prometheus.CounterOpts{Name: "skyvault_ing_conflicts_total", Help: "Dataset conflicts seen against the target collection"})

		m.dimensionInserts = prometheus.NewCounter(prometheus.CounterOpts{Name: "skyvault_ing_dimension_inserts_total", Help: "Exposure/visit dimension entries created"})
		m.regionWrites = prometheus.NewCounter(prometheus.CounterOpts{Name: "skyvault_ing_region_writes_total", Help: "Detector sky regions written"})
		m.regionDuplicates = prometheus.NewCounter(prometheus.CounterOpts{Name: "skyvault_ing_region_duplicates_total", Help: "Detector sky regions already present"})
		m.visitMerges = prometheus.NewCounter(prometheus.CounterOpts{Name: "skyvault_ing_visit_merges_total", Help: "Visit region merges committed"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
		m.fileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "skyvault_ing_file_seconds", Help: "Per-file ingest duration", Buckets: buckets})
		m.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "skyvault_ing_run_seconds", Help: "Whole-batch ingest duration", Buckets: buckets})

		prometheus.MustRegister(
			m.filesIngested, m.filesStashed, m.filesDropped, m.filesFailed, m.conflicts,
			m.dimensionInserts, m.regionWrites, m.regionDuplicates, m.visitMerges,
			m.fileDuration, m.runDuration,
		)
	})
}

// record helpers - used by the driver for metrics tracking
func recordFileIngested(d time.Duration) {
	ingMetrics.init()
	ingMetrics.filesIngested.Inc()
	ingMetrics.fileDuration.Observe(d.Seconds())
}
func recordFileStashed()     { ingMetrics.init(); ingMetrics.filesStashed.Inc() }
func recordFileDropped()     { ingMetrics.init(); ingMetrics.filesDropped.Inc() }
func recordFileFailed()      { ingMetrics.init(); ingMetrics.filesFailed.Inc() }
func recordConflict()        { ingMetrics.init(); ingMetrics.conflicts.Inc() }
func recordDimensionInsert() { ingMetrics.init(); ingMetrics.dimensionInserts.Inc() }
func recordRegionWrite()     { ingMetrics.init(); ingMetrics.regionWrites.Inc() }
func recordRegionDuplicate() { ingMetrics.init(); ingMetrics.regionDuplicates.Inc() }
func recordVisitMerge()      { ingMetrics.init(); ingMetrics.visitMerges.Inc() }
func recordRunDuration(d time.Duration) {
	ingMetrics.init()
	ingMetrics.runDuration.Observe(d.Seconds())
}
