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

// Package contract provides validation constants and utilities for SkyVault.
//
// This internal package contains configuration constants and validation
// functions used throughout SkyVault. It provides the minimal batch
// validation logic the ingest CLI applies before touching the catalog.
//
// # Batch Size Limits
//
// SkyVault enforces a soft limit on the number of files per ingest batch
// to keep transaction scopes and memory bounded:
//
//	// Default limit is 10000 files
//	limit := contract.MaxBatchFiles()
//
//	// Validate a batch before starting a run
//	result := contract.ValidateBatch(files)
//	if !result.OK {
//	    log.Printf("Validation failed: %s", result.Message)
//	}
//
// # Configuration via Environment
//
// The limit can be adjusted via the SKYVAULT_MAX_BATCH_FILES environment
// variable. This is useful on memory-constrained machines or when a
// single rollback-scoped transaction over a huge batch is undesirable:
//
//	export SKYVAULT_MAX_BATCH_FILES=1000
//
// If the environment variable is not set or invalid, the default limit
// of 10000 files (DefaultMaxBatchFiles) is used.
//
// # Constants
//
// The package exports these constants:
//
//   - DefaultMaxBatchFiles: Baseline batch size limit (10000 files)
//   - CollectionMaxBytes: Maximum length for collection names (128 bytes)
package contract
