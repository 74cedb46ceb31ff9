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
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/skyvault/internal/bootstrap"
	"github.com/kraklabs/skyvault/pkg/ingest"
	"github.com/kraklabs/skyvault/pkg/instrument"
)

// Config is the project configuration stored in .skyvault/project.yaml.
type Config struct {
	// Repository identifies the repository and its default collection.
	Repository RepositorySettings `yaml:"repository"`

	// Ingest holds the default driver settings. Command-line flags
	// override individual fields per run.
	Ingest ingest.Config `yaml:"ingest"`

	// Instruments lists the cameras this repository accepts raw files
	// from. Files naming any other instrument are rejected.
	Instruments []InstrumentConfig `yaml:"instruments"`
}

// RepositorySettings names the repository and its default collection.
type RepositorySettings struct {
	Name       string `yaml:"name"`
	Collection string `yaml:"collection"`
}

// InstrumentConfig declares one camera: its name as it appears in file
// headers, the formatter class recorded with each ingested dataset, and
// the detector ids and physical filters to register in the catalog.
type InstrumentConfig struct {
	Name      string   `yaml:"name"`
	Formatter string   `yaml:"formatter"`
	Detectors []int    `yaml:"detectors,omitempty"`
	Filters   []string `yaml:"filters,omitempty"`
}

// ConfigDir returns the .skyvault directory under dir.
func ConfigDir(dir string) string {
	return bootstrap.ConfigDir(dir)
}

// ConfigPath returns the project.yaml path under dir.
func ConfigPath(dir string) string {
	return filepath.Join(bootstrap.ConfigDir(dir), "project.yaml")
}

// DefaultConfig returns a configuration with standard defaults for a
// repository of the given name.
func DefaultConfig(name string) *Config {
	return &Config{
		Repository: RepositorySettings{
			Name:       name,
			Collection: bootstrap.DefaultCollection,
		},
		Ingest: ingest.DefaultConfig(),
	}
}

// LoadConfig reads and validates the project configuration.
//
// With an empty path it walks up from the current directory looking for
// a .skyvault directory, matching how git finds its repository root.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cannot get current directory: %w", err)
		}
		root, err := bootstrap.FindRepositoryRoot(cwd)
		if err != nil {
			return nil, err
		}
		path = ConfigPath(root)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the repo root or --config
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s not found: run 'skyvault init' first", path)
		}
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", path, err)
	}

	if cfg.Repository.Collection == "" {
		cfg.Repository.Collection = bootstrap.DefaultCollection
	}
	defaults := ingest.DefaultConfig()
	if cfg.Ingest.Transfer == "" {
		cfg.Ingest.Transfer = defaults.Transfer
	}
	if cfg.Ingest.Conflict == "" {
		cfg.Ingest.Conflict = defaults.Conflict
	}
	if cfg.Ingest.OnError == "" {
		cfg.Ingest.OnError = defaults.OnError
	}
	if err := cfg.Ingest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ingest settings in %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveConfig writes the configuration as YAML to path.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot encode configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// findRoot resolves the repository root directory.
//
// With an explicit --config path the root is the parent of the
// .skyvault directory holding it; otherwise the root is found by
// walking up from the current directory.
func findRoot(configPath string) (string, error) {
	if configPath != "" {
		return filepath.Dir(filepath.Dir(configPath)), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("cannot get current directory: %w", err)
	}
	return bootstrap.FindRepositoryRoot(cwd)
}

// buildRegistry turns the configured instruments into a lookup registry
// for the ingest driver.
func buildRegistry(cfg *Config) *instrument.Registry {
	reg := instrument.NewRegistry()
	for _, ic := range cfg.Instruments {
		ic := ic
		reg.Register(ic.Name, func() instrument.Instrument {
			return instrument.Simple{InstrumentName: ic.Name, Formatter: ic.Formatter}
		})
	}
	return reg
}
