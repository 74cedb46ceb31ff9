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
	"fmt"

	"github.com/kraklabs/skyvault/pkg/catalog"
)

// PrerequisiteError reports a dimension entry the driver refuses to create
// on its own. Instruments, detectors and filters describe hardware; they
// must be registered before any raw ingest references them.
type PrerequisiteError struct {
	Dimension   string
	IdentityKey string
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("no %s entry for %s: register it before ingesting raws", e.Dimension, e.IdentityKey)
}

// IngestConflict reports that a file's dataset already exists in the
// target collection. It is a value, not control flow: under ConflictFail
// it becomes the per-file error, under ConflictIgnore it routes the file
// to the stash or the floor.
type IngestConflict struct {
	File       string
	DataID     DataID
	Collection string
}

func (e *IngestConflict) Error() string {
	return fmt.Sprintf("dataset for %s already exists in %q (%s)", e.File, e.Collection, e.DataID.Key())
}

// IngestOutcome is the result of one ingest attempt: exactly one of Ref
// and Conflict is set.
type IngestOutcome struct {
	Ref      *catalog.DatasetRef
	Conflict *IngestConflict
}
