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

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/skyvault/pkg/catalog"
	"github.com/kraklabs/skyvault/pkg/ingest"
)

// ConfigDirName is the repository metadata directory created at the root.
const ConfigDirName = ".skyvault"

// DefaultCollection is the collection new repositories ingest into unless
// configured otherwise.
const DefaultCollection = "raw/main"

// RepositoryConfig holds configuration for initializing a repository.
type RepositoryConfig struct {
	// Name is the logical repository name.
	Name string

	// Dir is the repository root directory. Defaults to the current
	// working directory.
	Dir string

	// DefaultCollection is the collection created at init time.
	// Defaults to DefaultCollection.
	DefaultCollection string
}

// RepositoryInfo holds information about an initialized repository.
type RepositoryInfo struct {
	Name              string
	Dir               string
	CatalogPath       string
	DatastoreRoot     string
	DefaultCollection string
}

// ConfigDir returns the metadata directory of a repository root.
func ConfigDir(dir string) string { return filepath.Join(dir, ConfigDirName) }

// CatalogPath returns the catalog database path of a repository root.
func CatalogPath(dir string) string { return filepath.Join(dir, ConfigDirName, "catalog.db") }

// DatastoreRoot returns the datastore directory of a repository root.
func DatastoreRoot(dir string) string { return filepath.Join(dir, "datastore") }

// RunsDir returns the directory ingest run reports are stored in.
func RunsDir(dir string) string { return filepath.Join(dir, ConfigDirName, "runs") }

// InitRepository initializes a new SkyVault repository at a directory.
// This function is idempotent: calling it multiple times is safe.
//
// The function:
//  1. Creates the .skyvault metadata directory and the datastore root
//  2. Opens the SQLite catalog and creates its schema
//  3. Registers the "raw" dataset type
//  4. Creates the default collection
//
// Parameters:
//   - config: repository configuration
//   - logger: optional logger (nil uses default)
//
// Returns:
//   - RepositoryInfo: information about the initialized repository
//   - error: if initialization fails
func InitRepository(config RepositoryConfig, logger *slog.Logger) (*RepositoryInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if config.Name == "" {
		return nil, fmt.Errorf("repository name is required")
	}
	if config.Dir == "" {
		config.Dir = "."
	}
	if config.DefaultCollection == "" {
		config.DefaultCollection = DefaultCollection
	}

	logger.Info("bootstrap.repository.init.start",
		"name", config.Name,
		"dir", config.Dir,
		"collection", config.DefaultCollection,
	)

	for _, dir := range []string{ConfigDir(config.Dir), DatastoreRoot(config.Dir), RunsDir(config.Dir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	cat, err := catalog.OpenSQLite(catalog.SQLiteConfig{
		Path: CatalogPath(config.Dir),
		Root: DatastoreRoot(config.Dir),
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = cat.Close() }()

	ctx := context.Background()
	if err := cat.RegisterDatasetType(ctx, ingest.RawDatasetType()); err != nil {
		return nil, fmt.Errorf("register raw dataset type: %w", err)
	}
	if err := cat.EnsureCollection(ctx, config.DefaultCollection); err != nil {
		return nil, fmt.Errorf("create default collection: %w", err)
	}

	logger.Info("bootstrap.repository.init.success",
		"name", config.Name,
		"dir", config.Dir,
	)

	return &RepositoryInfo{
		Name:              config.Name,
		Dir:               config.Dir,
		CatalogPath:       CatalogPath(config.Dir),
		DatastoreRoot:     DatastoreRoot(config.Dir),
		DefaultCollection: config.DefaultCollection,
	}, nil
}

// OpenRepository opens an existing SkyVault repository.
// Returns the catalog for querying and ingest.
func OpenRepository(config RepositoryConfig, logger *slog.Logger) (*catalog.SQLiteCatalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Dir == "" {
		config.Dir = "."
	}

	if _, err := os.Stat(CatalogPath(config.Dir)); os.IsNotExist(err) {
		return nil, fmt.Errorf("repository not found at %s (run 'skyvault init' first)", config.Dir)
	}

	logger.Debug("bootstrap.repository.open",
		"dir", config.Dir,
	)

	cat, err := catalog.OpenSQLite(catalog.SQLiteConfig{
		Path: CatalogPath(config.Dir),
		Root: DatastoreRoot(config.Dir),
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return cat, nil
}

// FindRepositoryRoot walks upward from dir looking for a .skyvault
// directory. It returns the repository root, or an error when no
// repository encloses dir.
func FindRepositoryRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if info, err := os.Stat(ConfigDir(abs)); err == nil && info.IsDir() {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("no repository found above %s", dir)
		}
		abs = parent
	}
}
