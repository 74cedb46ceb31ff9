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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileFailure records one file that could not be ingested.
type FileFailure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Report summarizes one ingest run. Under OnErrorRollback a failed run's
// counters describe attempted work that was undone.
type Report struct {
	RunID      string    `json:"run_id"`
	Collection string    `json:"collection"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Files    int `json:"files"`
	Ingested int `json:"ingested"`
	Stashed  int `json:"stashed"`
	Dropped  int `json:"dropped"`
	Failed   int `json:"failed"`

	DimensionInserts int `json:"dimension_inserts"`
	RegionWrites     int `json:"region_writes"`
	RegionDuplicates int `json:"region_duplicates"`
	VisitMerges      int `json:"visit_merges"`

	Failures []FileFailure `json:"failures,omitempty"`
}

// Duration returns the wall-clock time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// newRunID derives a stable short identifier for one run.
func newRunID(collection string, start time.Time) string {
	seed := fmt.Sprintf("ingest-%s-%d", collection, start.UnixNano())
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:8])
}

// ReportWriter persists run reports under a directory, one JSON file per
// run, named by run ID.
type ReportWriter struct {
	dir string
}

// NewReportWriter returns a writer storing reports in dir.
func NewReportWriter(dir string) *ReportWriter {
	return &ReportWriter{dir: dir}
}

// Write saves a report to disk and returns its path. The write is atomic
// (temp file + rename) so a crash never leaves a truncated report.
func (w *ReportWriter) Write(report *Report) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(w.dir, report.RunID+".json")

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return "", fmt.Errorf("write report temp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename report: %w", err)
	}
	return path, nil
}

// Load reads a previously written report by run ID. It returns nil with
// no error when the report does not exist.
func (w *ReportWriter) Load(runID string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(w.dir, runID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &report, nil
}
