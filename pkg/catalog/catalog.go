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

// Package catalog is the repository registry: dimension entries, dataset
// records, sky regions and collections, backed by an embedded SQLite
// database with the managed file store alongside it.
//
// Identities are canonical strings of the form
// "instrument=TestCam,visit=12,detector=7" produced by the ingest layer;
// the catalog treats them as opaque keys.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/kraklabs/skyvault/pkg/geom"
)

// Sentinel errors callers branch on with errors.Is.
var (
	// ErrDatasetExists signals that a dataset with the same identity is
	// already registered in the target collection.
	ErrDatasetExists = errors.New("dataset already exists in collection")

	// ErrRegionExists signals a second region write for the same identity
	// with update disabled. Callers usually treat this as a no-op.
	ErrRegionExists = errors.New("region already exists for identity")
)

// TransferMode selects how a file enters the managed store during ingest.
type TransferMode string

const (
	// TransferNone registers the dataset but leaves the file in place.
	TransferNone TransferMode = "none"

	// TransferCopy copies the file into the managed store.
	TransferCopy TransferMode = "copy"

	// TransferHardlink hard-links the file into the managed store.
	TransferHardlink TransferMode = "hardlink"

	// TransferSymlink symlinks the managed path to the original file.
	TransferSymlink TransferMode = "symlink"

	// TransferMove moves the file into the managed store.
	TransferMove TransferMode = "move"
)

// ValidTransferMode reports whether m is one of the recognized modes.
func ValidTransferMode(m TransferMode) bool {
	switch m {
	case TransferNone, TransferCopy, TransferHardlink, TransferSymlink, TransferMove:
		return true
	}
	return false
}

// DatasetType names a family of datasets and the dimensions that identify
// its members.
type DatasetType struct {
	Name         string
	Dimensions   []string
	StorageClass string
}

// DatasetRef points at one registered dataset.
type DatasetRef struct {
	ID          uuid.UUID
	DatasetType string
	IdentityKey string
	Collection  string
	Path        string
	Formatter   string
}

// DimensionEntry is one existence fact in the catalog's coordinate space:
// a dimension name plus the canonical identity key, with optional
// descriptive fields.
type DimensionEntry struct {
	Dimension   string
	IdentityKey string
	Fields      map[string]any
}

// ExpandedIdentity is the result of expanding a partial identity: the
// matching dimension entry and, when requested, any region stored for the
// same identity. Region is nil when none exists.
type ExpandedIdentity struct {
	Entry  *DimensionEntry
	Region *geom.ConvexPolygon
}

// IngestRequest describes one file to register and transfer.
type IngestRequest struct {
	// Path is the absolute path to the source file.
	Path string

	// DatasetType must already be registered.
	DatasetType string

	// IdentityKey is the full canonical identity of the dataset.
	IdentityKey string

	// Collection is the destination collection; it must already exist.
	Collection string

	// Transfer selects how the file enters the managed store.
	Transfer TransferMode

	// Formatter is stored with the dataset so readers know how to open it.
	Formatter string
}

// Stats summarizes catalog contents for status reporting.
type Stats struct {
	Datasets         int `json:"datasets"`
	DimensionEntries int `json:"dimension_entries"`
	Regions          int `json:"regions"`
	Collections      int `json:"collections"`
}

// Catalog is the registry contract the ingest driver runs against.
//
// Implementations are single-writer: one driver instance talks to one
// Catalog at a time, mirroring the driver's own sequential model. All
// mutation should happen inside InTransaction scopes.
type Catalog interface {
	// RegisterDatasetType registers a dataset type. Idempotent for an
	// identical definition; a conflicting redefinition is an error.
	RegisterDatasetType(ctx context.Context, dt DatasetType) error

	// EnsureCollection creates the named collection if missing. Idempotent.
	EnsureCollection(ctx context.Context, name string) error

	// FindDimensionEntry looks up an entry; (nil, nil) when absent.
	FindDimensionEntry(ctx context.Context, dimension, identityKey string) (*DimensionEntry, error)

	// AddDimensionEntry inserts a new entry.
	AddDimensionEntry(ctx context.Context, entry DimensionEntry) error

	// SetRegion stores a region for an identity. With update false, a
	// pre-existing region yields ErrRegionExists and no change; with
	// update true the prior value is replaced.
	SetRegion(ctx context.Context, identityKey string, region geom.ConvexPolygon, update bool) error

	// ExpandIdentity resolves a dimension entry and, when withRegion is
	// set, the region stored for the same identity. (nil, nil) when the
	// entry is absent.
	ExpandIdentity(ctx context.Context, dimension, identityKey string, withRegion bool) (*ExpandedIdentity, error)

	// Ingest registers a dataset and transfers its file as one logical
	// operation. Returns ErrDatasetExists (wrapped) when the identity is
	// already registered in the collection.
	Ingest(ctx context.Context, req IngestRequest) (*DatasetRef, error)

	// InTransaction runs fn inside a scoped transaction: committed when
	// fn returns nil, rolled back otherwise. Scopes nest; an inner
	// rollback leaves the outer scope usable.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// FindDataset returns the dataset registered for the identity in the
	// collection; (nil, nil) when absent.
	FindDataset(ctx context.Context, datasetType, identityKey, collection string) (*DatasetRef, error)

	// Stats reports catalog contents.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases the underlying database.
	Close() error
}
