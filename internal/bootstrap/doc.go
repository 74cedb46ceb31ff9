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

// Package bootstrap handles SkyVault repository initialization and setup.
//
// This internal package provides the core initialization logic for data
// repositories. It creates the SQLite catalog with the required schema,
// registers the raw dataset type, and ensures all prerequisites are met
// before the repository can receive ingests.
//
// # Initialization Workflow
//
// A typical workflow for setting up a new repository:
//
//	// Initialize the repository (creates catalog and layout)
//	info, err := bootstrap.InitRepository(bootstrap.RepositoryConfig{
//	    Name: "survey-2026",
//	    Dir:  "/data/survey-2026",
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Repository initialized at: %s\n", info.Dir)
//
//	// Later, open the repository for ingest or queries
//	cat, err := bootstrap.OpenRepository(bootstrap.RepositoryConfig{
//	    Dir: "/data/survey-2026",
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cat.Close()
//
// # Idempotency
//
// The InitRepository function is idempotent: calling it multiple times on
// the same directory is safe and will not corrupt existing data. This makes
// it suitable for use in scripts and automated workflows.
//
// # Configuration
//
// RepositoryConfig controls the initialization behavior:
//
//   - Name: Required at init. Logical name for the repository.
//   - Dir: Optional. Repository root directory. Defaults to the current directory.
//   - DefaultCollection: Optional. The collection created at init time.
//     Defaults to "raw/main".
//
// # Repository Layout
//
// An initialized repository root contains:
//
//   - .skyvault/catalog.db: the SQLite catalog
//   - .skyvault/runs/: ingest run reports
//   - datastore/: files brought in by copy/move/link transfers
//
// # Repository Discovery
//
// Find the repository enclosing a working directory:
//
//	root, err := bootstrap.FindRepositoryRoot(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
package bootstrap
