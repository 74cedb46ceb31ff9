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

package testing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/skyvault/pkg/catalog"
)

// SetupTestCatalog creates an in-memory SkyVault catalog for testing.
// The catalog is automatically cleaned up when the test finishes.
//
// This helper:
//   - Creates a temporary datastore directory
//   - Opens an in-memory SQLite catalog
//   - Creates the catalog schema
//   - Registers cleanup to close the catalog
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    cat := testing.SetupTestCatalog(t)
//
//	    // Catalog is ready with schema initialized
//	    testing.InsertTestEntry(t, cat, "instrument", "instrument=TestCam")
//
//	    // Run your tests...
//	}
func SetupTestCatalog(t *testing.T) *catalog.SQLiteCatalog {
	t.Helper()

	// In-memory database for fast tests
	cat, err := catalog.OpenSQLite(catalog.SQLiteConfig{
		Root: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("failed to create test catalog: %v", err)
	}

	// Register cleanup
	t.Cleanup(func() {
		_ = cat.Close()
	})

	return cat
}

// InsertTestEntry adds a dimension entry to the catalog.
// This is a convenience helper for seeding test data.
//
// Example:
//
//	cat := testing.SetupTestCatalog(t)
//	testing.InsertTestEntry(t, cat, "detector", "instrument=TestCam,detector=7")
func InsertTestEntry(t *testing.T, cat catalog.Catalog, dimension, identityKey string) {
	t.Helper()

	err := cat.AddDimensionEntry(context.Background(), catalog.DimensionEntry{
		Dimension:   dimension,
		IdentityKey: identityKey,
	})
	if err != nil {
		t.Fatalf("failed to insert %s entry %s: %v", dimension, identityKey, err)
	}
}

// SeedTestInstrument registers the standard test camera: the instrument
// entry, its detectors, and its filters, under the given name.
//
// Example:
//
//	cat := testing.SetupTestCatalog(t)
//	testing.SeedTestInstrument(t, cat, "TestCam", []int{0, 1}, []string{"r"})
func SeedTestInstrument(t *testing.T, cat catalog.Catalog, name string, detectors []int, filters []string) {
	t.Helper()

	InsertTestEntry(t, cat, "instrument", "instrument="+name)
	for _, det := range detectors {
		InsertTestEntry(t, cat, "detector", fmt.Sprintf("instrument=%s,detector=%d", name, det))
	}
	for _, f := range filters {
		InsertTestEntry(t, cat, "physical_filter", fmt.Sprintf("instrument=%s,physical_filter=%s", name, f))
	}
}

// WriteRawFile writes a raw observation file with the given header cards
// as a YAML document and returns its path.
//
// Example:
//
//	path := testing.WriteRawFile(t, t.TempDir(), "exp1.yaml", map[string]any{
//	    "INSTRUME": "TestCam",
//	    "EXPID":    1001,
//	    "DETECTOR": 0,
//	})
func WriteRawFile(t *testing.T, dir, name string, cards map[string]any) string {
	t.Helper()

	data, err := yaml.Marshal(cards)
	if err != nil {
		t.Fatalf("failed to marshal header cards: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write raw file: %v", err)
	}
	return path
}

// CountDatasets is a helper returning the number of datasets in the catalog.
//
// Example:
//
//	n := testing.CountDatasets(t, cat)
//	require.Equal(t, 2, n)
func CountDatasets(t *testing.T, cat catalog.Catalog) int {
	t.Helper()

	stats, err := cat.Stats(context.Background())
	if err != nil {
		t.Fatalf("failed to read catalog stats: %v", err)
	}
	return stats.Datasets
}
