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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewReportWriter(filepath.Join(dir, "runs"))

	start := time.Now().UTC().Truncate(time.Second)
	report := &Report{
		RunID:      newRunID("raw/main", start),
		Collection: "raw/main",
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		Files:      5,
		Ingested:   4,
		Failed:     1,
		Failures:   []FileFailure{{File: "/data/bad.yaml", Error: "no EXPID card"}},
	}
	path, err := w.Write(report)
	require.NoError(t, err)
	assert.FileExists(t, path)

	loaded, err := w.Load(report.RunID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, report.RunID, loaded.RunID)
	assert.Equal(t, 4, loaded.Ingested)
	require.Len(t, loaded.Failures, 1)
	assert.Equal(t, "/data/bad.yaml", loaded.Failures[0].File)
	assert.Equal(t, 3*time.Second, loaded.Duration())
}

func TestReportWriterLoadMissing(t *testing.T) {
	w := NewReportWriter(t.TempDir())
	loaded, err := w.Load("deadbeef")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRunIDsDiffer(t *testing.T) {
	now := time.Now()
	a := newRunID("raw/main", now)
	b := newRunID("raw/main", now.Add(time.Nanosecond))
	c := newRunID("raw/other", now)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}
