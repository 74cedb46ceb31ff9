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

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kraklabs/skyvault/pkg/geom"
)

// SQLiteConfig configures an embedded catalog.
type SQLiteConfig struct {
	// Path is the database file; empty means an in-memory database
	// (used by tests and dry runs).
	Path string

	// Root is the datastore directory receiving transferred files.
	Root string
}

// SQLiteCatalog is the embedded Catalog implementation. modernc.org/sqlite
// is pure Go, so repositories work without CGO or a system library.
//
// Like the ingest driver it serves, a SQLiteCatalog is not goroutine-safe:
// one driver instance owns one catalog instance. Cross-process isolation is
// SQLite's problem, not ours.
type SQLiteCatalog struct {
	db    *sql.DB
	store datastore

	// Scoped-transaction state. Nested InTransaction calls become
	// savepoints inside the outermost transaction.
	tx        *sql.Tx
	spCounter int
	undo      []func() error
}

var _ Catalog = (*SQLiteCatalog)(nil)

// OpenSQLite opens (or creates) an embedded catalog and ensures its schema.
func OpenSQLite(cfg SQLiteConfig) (*SQLiteCatalog, error) {
	dsn := cfg.Path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	// A single connection keeps transaction state coherent and matches
	// the single-writer contract.
	db.SetMaxOpenConns(1)

	c := &SQLiteCatalog{db: db, store: datastore{root: cfg.Root}}
	if err := c.EnsureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// EnsureSchema creates the catalog tables if they do not exist. Idempotent.
func (c *SQLiteCatalog) EnsureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS dataset_type (
	name          TEXT PRIMARY KEY,
	dimensions    TEXT NOT NULL,
	storage_class TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS collection (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS dimension_entry (
	dimension TEXT NOT NULL,
	identity  TEXT NOT NULL,
	fields    TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (dimension, identity)
);
CREATE TABLE IF NOT EXISTS region (
	identity TEXT PRIMARY KEY,
	vertices TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS dataset (
	id           TEXT PRIMARY KEY,
	dataset_type TEXT NOT NULL,
	identity     TEXT NOT NULL,
	collection   TEXT NOT NULL,
	path         TEXT NOT NULL,
	formatter    TEXT NOT NULL,
	UNIQUE (dataset_type, identity, collection)
);`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("ensure catalog schema: %w", err)
	}
	return nil
}

// Close releases the database.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (c *SQLiteCatalog) q() querier {
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

// InTransaction implements the scoped transaction contract. The outermost
// call opens a real transaction; nested calls open savepoints, so a failed
// per-file scope rolls back without disturbing an enclosing batch scope.
// File transfers performed inside a scope are undone when it rolls back.
func (c *SQLiteCatalog) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.tx == nil {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		c.tx = tx
		c.undo = nil

		if err := fn(ctx); err != nil {
			rbErr := tx.Rollback()
			c.tx = nil
			c.runUndo(0)
			if rbErr != nil {
				return errors.Join(err, fmt.Errorf("rollback transaction: %w", rbErr))
			}
			return err
		}
		commitErr := tx.Commit()
		c.tx = nil
		if commitErr != nil {
			c.runUndo(0)
			return fmt.Errorf("commit transaction: %w", commitErr)
		}
		c.undo = nil
		return nil
	}

	c.spCounter++
	name := fmt.Sprintf("sp_%d", c.spCounter)
	mark := len(c.undo)
	if _, err := c.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	if err := fn(ctx); err != nil {
		if _, rbErr := c.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to savepoint %s: %w", name, rbErr))
		}
		_, _ = c.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
		c.runUndo(mark)
		return err
	}
	if _, err := c.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint %s: %w", name, err)
	}
	return nil
}

// runUndo reverses pending file transfers from index mark onward, newest
// first, and truncates the stack.
func (c *SQLiteCatalog) runUndo(mark int) {
	for i := len(c.undo) - 1; i >= mark; i-- {
		_ = c.undo[i]()
	}
	c.undo = c.undo[:mark]
}

// RegisterDatasetType implements Catalog.
func (c *SQLiteCatalog) RegisterDatasetType(ctx context.Context, dt DatasetType) error {
	dims := strings.Join(dt.Dimensions, ",")

	var existingDims, existingClass string
	err := c.q().QueryRowContext(ctx,
		`SELECT dimensions, storage_class FROM dataset_type WHERE name = ?`, dt.Name,
	).Scan(&existingDims, &existingClass)
	switch {
	case err == nil:
		if existingDims != dims || existingClass != dt.StorageClass {
			return fmt.Errorf("dataset type %q already registered with a different definition", dt.Name)
		}
		return nil
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fmt.Errorf("look up dataset type %q: %w", dt.Name, err)
	}

	if _, err := c.q().ExecContext(ctx,
		`INSERT INTO dataset_type (name, dimensions, storage_class) VALUES (?, ?, ?)`,
		dt.Name, dims, dt.StorageClass,
	); err != nil {
		return fmt.Errorf("register dataset type %q: %w", dt.Name, err)
	}
	return nil
}

// EnsureCollection implements Catalog.
func (c *SQLiteCatalog) EnsureCollection(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("collection name must not be empty")
	}
	if _, err := c.q().ExecContext(ctx,
		`INSERT INTO collection (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name,
	); err != nil {
		return fmt.Errorf("ensure collection %q: %w", name, err)
	}
	return nil
}

// FindDimensionEntry implements Catalog.
func (c *SQLiteCatalog) FindDimensionEntry(ctx context.Context, dimension, identityKey string) (*DimensionEntry, error) {
	var fieldsJSON string
	err := c.q().QueryRowContext(ctx,
		`SELECT fields FROM dimension_entry WHERE dimension = ? AND identity = ?`,
		dimension, identityKey,
	).Scan(&fieldsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find dimension entry %s %s: %w", dimension, identityKey, err)
	}

	entry := &DimensionEntry{Dimension: dimension, IdentityKey: identityKey}
	if err := json.Unmarshal([]byte(fieldsJSON), &entry.Fields); err != nil {
		return nil, fmt.Errorf("decode fields for %s %s: %w", dimension, identityKey, err)
	}
	return entry, nil
}

// AddDimensionEntry implements Catalog.
func (c *SQLiteCatalog) AddDimensionEntry(ctx context.Context, entry DimensionEntry) error {
	fields := entry.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields for %s %s: %w", entry.Dimension, entry.IdentityKey, err)
	}
	if _, err := c.q().ExecContext(ctx,
		`INSERT INTO dimension_entry (dimension, identity, fields) VALUES (?, ?, ?)`,
		entry.Dimension, entry.IdentityKey, string(fieldsJSON),
	); err != nil {
		return fmt.Errorf("add dimension entry %s %s: %w", entry.Dimension, entry.IdentityKey, err)
	}
	return nil
}

// SetRegion implements Catalog.
func (c *SQLiteCatalog) SetRegion(ctx context.Context, identityKey string, region geom.ConvexPolygon, update bool) error {
	verticesJSON, err := encodeVertices(region.Vertices())
	if err != nil {
		return fmt.Errorf("encode region for %s: %w", identityKey, err)
	}

	if update {
		if _, err := c.q().ExecContext(ctx,
			`INSERT INTO region (identity, vertices) VALUES (?, ?)
			 ON CONFLICT (identity) DO UPDATE SET vertices = excluded.vertices`,
			identityKey, verticesJSON,
		); err != nil {
			return fmt.Errorf("set region for %s: %w", identityKey, err)
		}
		return nil
	}

	var one int
	err = c.q().QueryRowContext(ctx,
		`SELECT 1 FROM region WHERE identity = ?`, identityKey,
	).Scan(&one)
	switch {
	case err == nil:
		return fmt.Errorf("region for %s: %w", identityKey, ErrRegionExists)
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fmt.Errorf("look up region for %s: %w", identityKey, err)
	}

	if _, err := c.q().ExecContext(ctx,
		`INSERT INTO region (identity, vertices) VALUES (?, ?)`,
		identityKey, verticesJSON,
	); err != nil {
		return fmt.Errorf("set region for %s: %w", identityKey, err)
	}
	return nil
}

// ExpandIdentity implements Catalog.
func (c *SQLiteCatalog) ExpandIdentity(ctx context.Context, dimension, identityKey string, withRegion bool) (*ExpandedIdentity, error) {
	entry, err := c.FindDimensionEntry(ctx, dimension, identityKey)
	if err != nil || entry == nil {
		return nil, err
	}

	expanded := &ExpandedIdentity{Entry: entry}
	if !withRegion {
		return expanded, nil
	}

	var verticesJSON string
	err = c.q().QueryRowContext(ctx,
		`SELECT vertices FROM region WHERE identity = ?`, identityKey,
	).Scan(&verticesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return expanded, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up region for %s: %w", identityKey, err)
	}

	region, err := decodeVertices(verticesJSON)
	if err != nil {
		return nil, fmt.Errorf("decode region for %s: %w", identityKey, err)
	}
	expanded.Region = region
	return expanded, nil
}

// Ingest implements Catalog. The dataset row and the file transfer happen
// in one scope: if the enclosing transaction rolls back, the transfer is
// reversed along with the row.
func (c *SQLiteCatalog) Ingest(ctx context.Context, req IngestRequest) (*DatasetRef, error) {
	if !ValidTransferMode(req.Transfer) {
		return nil, fmt.Errorf("unknown transfer mode %q", req.Transfer)
	}

	var ref *DatasetRef
	err := c.InTransaction(ctx, func(ctx context.Context) error {
		existing, err := c.FindDataset(ctx, req.DatasetType, req.IdentityKey, req.Collection)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%s in %q (%s): %w", req.DatasetType, req.Collection, req.IdentityKey, ErrDatasetExists)
		}

		path, undo, err := c.store.place(req.Path, req.Collection, req.DatasetType, req.IdentityKey, req.Transfer)
		if err != nil {
			return err
		}
		if undo != nil {
			c.undo = append(c.undo, undo)
		}

		id := uuid.New()
		if _, err := c.q().ExecContext(ctx,
			`INSERT INTO dataset (id, dataset_type, identity, collection, path, formatter)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id.String(), req.DatasetType, req.IdentityKey, req.Collection, path, req.Formatter,
		); err != nil {
			return fmt.Errorf("register dataset %s: %w", req.IdentityKey, err)
		}

		ref = &DatasetRef{
			ID:          id,
			DatasetType: req.DatasetType,
			IdentityKey: req.IdentityKey,
			Collection:  req.Collection,
			Path:        path,
			Formatter:   req.Formatter,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// FindDataset implements Catalog.
func (c *SQLiteCatalog) FindDataset(ctx context.Context, datasetType, identityKey, collection string) (*DatasetRef, error) {
	var (
		idStr, path, formatter string
	)
	err := c.q().QueryRowContext(ctx,
		`SELECT id, path, formatter FROM dataset
		 WHERE dataset_type = ? AND identity = ? AND collection = ?`,
		datasetType, identityKey, collection,
	).Scan(&idStr, &path, &formatter)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find dataset %s: %w", identityKey, err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse dataset id %q: %w", idStr, err)
	}
	return &DatasetRef{
		ID:          id,
		DatasetType: datasetType,
		IdentityKey: identityKey,
		Collection:  collection,
		Path:        path,
		Formatter:   formatter,
	}, nil
}

// Stats implements Catalog.
func (c *SQLiteCatalog) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	for _, q := range []struct {
		table string
		dest  *int
	}{
		{"dataset", &stats.Datasets},
		{"dimension_entry", &stats.DimensionEntries},
		{"region", &stats.Regions},
		{"collection", &stats.Collections},
	} {
		if err := c.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM `+q.table).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("count %s: %w", q.table, err)
		}
	}
	return stats, nil
}

func encodeVertices(vertices []geom.UnitVector) (string, error) {
	raw := make([][3]float64, len(vertices))
	for i, v := range vertices {
		raw[i] = [3]float64{v.X, v.Y, v.Z}
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeVertices(verticesJSON string) (*geom.ConvexPolygon, error) {
	var raw [][3]float64
	if err := json.Unmarshal([]byte(verticesJSON), &raw); err != nil {
		return nil, err
	}
	vertices := make([]geom.UnitVector, len(raw))
	for i, v := range raw {
		vertices[i] = geom.UnitVector{X: v[0], Y: v[1], Z: v[2]}
	}
	region, err := geom.NewConvexPolygon(vertices)
	if err != nil {
		return nil, err
	}
	return &region, nil
}
