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

// Header is one block of key/value metadata cards from a raw observation
// file. Keys are case-sensitive and follow the upper-case convention of the
// instruments SkyVault ingests (INSTRUME, EXPID, CRVAL1, ...).
type Header struct {
	cards map[string]any
}

// NewHeader wraps a card map in a Header. The map is not copied; callers
// hand over ownership.
func NewHeader(cards map[string]any) Header {
	return Header{cards: cards}
}

// IsEmpty reports whether the header carries no cards.
func (h Header) IsEmpty() bool {
	return len(h.cards) == 0
}

// Has reports whether the given card is present.
func (h Header) Has(key string) bool {
	_, ok := h.cards[key]
	return ok
}

// String returns the card value as a string.
func (h Header) String(key string) (string, bool) {
	v, ok := h.cards[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int64 returns the card value as an int64, accepting the integer types
// the YAML decoder produces.
func (h Header) Int64(key string) (int64, bool) {
	v, ok := h.cards[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

// Float64 returns the card value as a float64, accepting integer cards too.
func (h Header) Float64(key string) (float64, bool) {
	v, ok := h.cards[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
