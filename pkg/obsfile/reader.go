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

package obsfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// HeaderReader extracts metadata header blocks from a raw observation file.
// Format-specific readers (FITS and friends) plug in here; SkyVault ships
// the YAML sidecar reader used by its test instruments and by facilities
// that export headers alongside the pixel data.
type HeaderReader interface {
	// ReadHeaders returns the ordered header blocks of the file. The
	// default contract is a single-element slice holding the first
	// non-empty block.
	ReadHeaders(path string) ([]Header, error)
}

// YAMLHeaderReader reads headers from a multi-document YAML stream: one
// document per header block, mirroring the one-block-per-HDU layout of
// instrument raw files.
type YAMLHeaderReader struct{}

// NewYAMLHeaderReader returns the default header reader.
func NewYAMLHeaderReader() *YAMLHeaderReader {
	return &YAMLHeaderReader{}
}

// ReadHeaders returns a single-element slice with the first non-empty
// header block of the file.
func (r *YAMLHeaderReader) ReadHeaders(path string) ([]Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read headers: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	for {
		var cards map[string]any
		if err := dec.Decode(&cards); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("read headers %s: no non-empty header block", path)
			}
			return nil, fmt.Errorf("read headers %s: %w", path, err)
		}
		if len(cards) == 0 {
			continue
		}
		return []Header{NewHeader(cards)}, nil
	}
}
