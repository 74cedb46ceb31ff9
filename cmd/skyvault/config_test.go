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
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/kraklabs/skyvault/pkg/ingest"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("survey-2026")

	if cfg.Repository.Name != "survey-2026" {
		t.Errorf("Repository.Name = %q, want %q", cfg.Repository.Name, "survey-2026")
	}
	if cfg.Repository.Collection != "raw/main" {
		t.Errorf("Repository.Collection = %q, want %q", cfg.Repository.Collection, "raw/main")
	}
	if err := cfg.Ingest.Validate(); err != nil {
		t.Errorf("default ingest settings should validate: %v", err)
	}
	if !cfg.Ingest.AddRegions {
		t.Error("default ingest settings should compute regions")
	}
}

func TestSaveLoadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(ConfigDir(dir), 0750); err != nil {
		t.Fatal(err)
	}
	path := ConfigPath(dir)

	cfg := DefaultConfig("roundtrip")
	cfg.Ingest.Stash = "raw/quarantine"
	cfg.Ingest.PadRegionPx = 16
	cfg.Instruments = []InstrumentConfig{{
		Name:      "TestCam",
		Formatter: "skyvault.formatters.TestCamRaw",
		Detectors: []int{0, 1, 7},
		Filters:   []string{"r", "g"},
	}}

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("LoadConfig() = %+v, want %+v", loaded, cfg)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".skyvault", "project.yaml")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig() should fail for a missing file")
	}
	if !strings.Contains(err.Error(), "skyvault init") {
		t.Errorf("error should point the user at 'skyvault init', got: %v", err)
	}
}

func TestLoadConfigRejectsBadIngestSettings(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(ConfigDir(dir), 0750); err != nil {
		t.Fatal(err)
	}
	path := ConfigPath(dir)

	yaml := `repository:
  name: broken
ingest:
  transfer: teleport
  conflict: ignore
  on_error: continue
`
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() should reject an unknown transfer mode")
	}
}

func TestLoadConfigDefaultsCollection(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(ConfigDir(dir), 0750); err != nil {
		t.Fatal(err)
	}
	path := ConfigPath(dir)

	cfg := DefaultConfig("defaults")
	cfg.Repository.Collection = ""
	cfg.Ingest = ingest.DefaultConfig()
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.Repository.Collection != "raw/main" {
		t.Errorf("Collection = %q, want fallback %q", loaded.Repository.Collection, "raw/main")
	}
}

func TestBuildRegistry(t *testing.T) {
	cfg := DefaultConfig("reg")
	cfg.Instruments = []InstrumentConfig{
		{Name: "TestCam", Formatter: "skyvault.formatters.TestCamRaw"},
		{Name: "WideCam", Formatter: "skyvault.formatters.WideCamRaw"},
	}

	reg := buildRegistry(cfg)

	inst, err := reg.Lookup("WideCam")
	if err != nil {
		t.Fatalf("Lookup(WideCam) error = %v", err)
	}
	if got := inst.RawFormatter(3); got != "skyvault.formatters.WideCamRaw" {
		t.Errorf("RawFormatter() = %q, want %q", got, "skyvault.formatters.WideCamRaw")
	}

	if _, err := reg.Lookup("NoSuchCam"); err == nil {
		t.Error("Lookup() should fail for an unregistered instrument")
	}
}

func TestInstrumentFormatterDefault(t *testing.T) {
	if got := instrumentFormatter("TestCam", ""); got != "skyvault.formatters.TestCamRaw" {
		t.Errorf("instrumentFormatter() = %q, want conventional default", got)
	}
	if got := instrumentFormatter("TestCam", "custom.Formatter"); got != "custom.Formatter" {
		t.Errorf("instrumentFormatter() = %q, explicit value should win", got)
	}
}

func TestParseDetectorList(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"0,1,7", []int{0, 1, 7}},
		{" 2 , 3 ", []int{2, 3}},
		{"", nil},
		{"1,,2", []int{1, 2}},
		{"1,x,2", []int{1, 2}}, // bad ids are skipped with a warning
	}
	for _, tt := range tests {
		if got := parseDetectorList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseDetectorList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFilterList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"r,g,i", []string{"r", "g", "i"}},
		{" r , g ", []string{"r", "g"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := parseFilterList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseFilterList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
