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

// Package testing provides test helpers for SkyVault integration tests.
//
// This package wraps catalog setup and data seeding utilities used by
// tests across the repository.
//
// # Quick Start
//
// Use SetupTestCatalog to create an in-memory catalog with schema:
//
//	func TestMyFeature(t *testing.T) {
//	    cat := testing.SetupTestCatalog(t)
//
//	    // Catalog is ready with schema initialized
//	    testing.SeedTestInstrument(t, cat, "TestCam", []int{0, 1}, []string{"r"})
//
//	    // Run your tests...
//	}
//
// # Seeding Test Data
//
// The package provides helpers for inserting common test entities:
//   - InsertTestEntry: Add a dimension entry to the catalog
//   - SeedTestInstrument: Register an instrument with its detectors and filters
//   - WriteRawFile: Write a raw observation file with given header cards
//
// # Inspecting Test Data
//
// Helper functions for common checks:
//   - CountDatasets: Number of datasets currently in the catalog
package testing
