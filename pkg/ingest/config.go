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

// ConflictPolicy decides what happens when a raw file's dataset already
// exists in the target collection.
type ConflictPolicy string

const (
	// ConflictIgnore redirects the conflicting file to the stash
	// collection, or drops it when no stash is configured.
	ConflictIgnore ConflictPolicy = "ignore"
	// ConflictFail treats the conflict as a per-file error.
	ConflictFail ConflictPolicy = "fail"
)

// ErrorPolicy decides how a batch reacts to a per-file failure.
type ErrorPolicy string

const (
	// OnErrorContinue logs the failure and moves on; earlier and later
	// files keep their results.
	OnErrorContinue ErrorPolicy = "continue"
	// OnErrorBreak stops the batch at the first failure; already
	// committed files keep their results.
	OnErrorBreak ErrorPolicy = "break"
	// OnErrorRollback wraps the whole batch in one transaction and
	// undoes everything on the first failure.
	OnErrorRollback ErrorPolicy = "rollback"
)

// Config carries the ingest driver's knobs.
type Config struct {
	// Transfer is how file content enters the repository root.
	Transfer catalog.TransferMode `yaml:"transfer"`
	// Conflict is the policy for datasets that already exist.
	Conflict ConflictPolicy `yaml:"conflict"`
	// Stash is the collection conflicting files are redirected to under
	// ConflictIgnore. Empty means drop them.
	Stash string `yaml:"stash"`
	// OnError is the batch failure policy.
	OnError ErrorPolicy `yaml:"on_error"`
	// AddRegions controls whether detector and visit sky regions are
	// computed and written.
	AddRegions bool `yaml:"add_regions"`
	// PadRegionPx grows the detector bounding box by this many pixels on
	// every side before the sky region is computed.
	PadRegionPx int `yaml:"pad_region_px"`
}

// DefaultConfig returns the driver defaults: register files in place,
// redirect nothing (conflicts are dropped), keep going on errors, and
// write unpadded sky regions.
func DefaultConfig() Config {
	return Config{
		Transfer:   catalog.TransferNone,
		Conflict:   ConflictIgnore,
		OnError:    OnErrorContinue,
		AddRegions: true,
	}
}

// Validate rejects unknown policy values before any file is touched.
func (c Config) Validate() error {
	if !catalog.ValidTransferMode(c.Transfer) {
		return fmt.Errorf("unknown transfer mode %q", c.Transfer)
	}
	switch c.Conflict {
	case ConflictIgnore, ConflictFail:
	default:
		return fmt.Errorf("unknown conflict policy %q", c.Conflict)
	}
	switch c.OnError {
	case OnErrorContinue, OnErrorBreak, OnErrorRollback:
	default:
		return fmt.Errorf("unknown error policy %q", c.OnError)
	}
	if c.PadRegionPx < 0 {
		return fmt.Errorf("pad_region_px must not be negative, got %d", c.PadRegionPx)
	}
	return nil
}
