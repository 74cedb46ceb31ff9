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
	"io"
	"log/slog"
	"testing"

	svtest "github.com/kraklabs/skyvault/internal/testing"
)

func TestSeedInstruments(t *testing.T) {
	cat := svtest.SetupTestCatalog(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	instruments := []InstrumentConfig{{
		Name:      "TestCam",
		Formatter: "skyvault.formatters.TestCamRaw",
		Detectors: []int{0, 7},
		Filters:   []string{"r"},
	}}

	if err := seedInstruments(ctx, cat, instruments, logger); err != nil {
		t.Fatalf("seedInstruments() error = %v", err)
	}

	for _, check := range []struct{ dimension, identity string }{
		{"instrument", "instrument=TestCam"},
		{"detector", "instrument=TestCam,detector=0"},
		{"detector", "instrument=TestCam,detector=7"},
		{"physical_filter", "instrument=TestCam,physical_filter=r"},
	} {
		entry, err := cat.FindDimensionEntry(ctx, check.dimension, check.identity)
		if err != nil {
			t.Fatalf("FindDimensionEntry(%s, %s) error = %v", check.dimension, check.identity, err)
		}
		if entry == nil {
			t.Errorf("entry %s %s should exist after seeding", check.dimension, check.identity)
		}
	}

	// A second run must tolerate the entries it created the first time.
	if err := seedInstruments(ctx, cat, instruments, logger); err != nil {
		t.Fatalf("seedInstruments() should be idempotent, got error = %v", err)
	}
}

func TestSeedInstrumentsKeepsExistingEntries(t *testing.T) {
	cat := svtest.SetupTestCatalog(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svtest.InsertTestEntry(t, cat, "instrument", "instrument=TestCam")

	err := seedInstruments(ctx, cat, []InstrumentConfig{{Name: "TestCam"}}, logger)
	if err != nil {
		t.Fatalf("seedInstruments() error = %v", err)
	}
}
