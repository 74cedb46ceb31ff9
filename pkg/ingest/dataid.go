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
	"strings"
)

// Dimension names of the catalog coordinate space touched by raw ingest.
const (
	DimInstrument     = "instrument"
	DimDetector       = "detector"
	DimPhysicalFilter = "physical_filter"
	DimVisit          = "visit"
	DimExposure       = "exposure"
)

// AllDimensions is the full configured dimension set in canonical order.
// Identity keys always list values in this order so they stay comparable.
var AllDimensions = []string{DimInstrument, DimDetector, DimPhysicalFilter, DimVisit, DimExposure}

// DataID names one raw dataset's position in the catalog's coordinate
// space. Instrument, exposure and detector are always present; visit and
// physical_filter are nil for observations without them (darks, biases).
//
// The dimension set of a DataID is the configured set minus the absent
// optional dimensions, never anything wider.
type DataID struct {
	Instrument     string
	Exposure       int64
	Detector       int
	Visit          *int64
	PhysicalFilter *string

	dims           []string
	exposureFields map[string]any
	visitFields    map[string]any
}

// Dimensions returns the dimension set of this identity in canonical order.
func (d DataID) Dimensions() []string {
	out := make([]string, len(d.dims))
	copy(out, d.dims)
	return out
}

// Has reports whether the identity covers the given dimension.
func (d DataID) Has(dim string) bool {
	for _, name := range d.dims {
		if name == dim {
			return true
		}
	}
	return false
}

// EntryKey returns the canonical identity key for one dimension entry:
// the dimension's own value qualified by instrument, e.g.
// "instrument=TestCam,detector=7".
func (d DataID) EntryKey(dim string) (string, error) {
	switch dim {
	case DimInstrument:
		return "instrument=" + d.Instrument, nil
	case DimDetector:
		return fmt.Sprintf("instrument=%s,detector=%d", d.Instrument, d.Detector), nil
	case DimPhysicalFilter:
		if d.PhysicalFilter == nil {
			return "", fmt.Errorf("identity %s has no physical_filter", d.Key())
		}
		return fmt.Sprintf("instrument=%s,physical_filter=%s", d.Instrument, *d.PhysicalFilter), nil
	case DimVisit:
		if d.Visit == nil {
			return "", fmt.Errorf("identity %s has no visit", d.Key())
		}
		return VisitEntryKey(d.Instrument, *d.Visit), nil
	case DimExposure:
		return fmt.Sprintf("instrument=%s,exposure=%d", d.Instrument, d.Exposure), nil
	default:
		return "", fmt.Errorf("unknown dimension %q", dim)
	}
}

// Key returns the full canonical identity key covering every dimension
// present, e.g. "instrument=TestCam,detector=7,physical_filter=r,visit=12,exposure=1001".
func (d DataID) Key() string {
	parts := make([]string, 0, len(d.dims))
	for _, dim := range AllDimensions {
		if !d.Has(dim) {
			continue
		}
		switch dim {
		case DimInstrument:
			parts = append(parts, "instrument="+d.Instrument)
		case DimDetector:
			parts = append(parts, fmt.Sprintf("detector=%d", d.Detector))
		case DimPhysicalFilter:
			parts = append(parts, "physical_filter="+*d.PhysicalFilter)
		case DimVisit:
			parts = append(parts, fmt.Sprintf("visit=%d", *d.Visit))
		case DimExposure:
			parts = append(parts, fmt.Sprintf("exposure=%d", d.Exposure))
		}
	}
	return strings.Join(parts, ",")
}

// String implements fmt.Stringer.
func (d DataID) String() string { return "{" + d.Key() + "}" }

// DetectorRegionKey returns the identity a detector-level region is stored
// under, spanning instrument, detector and visit. The second return is
// false when the identity has no visit: visit-less observations carry no
// sky region.
func (d DataID) DetectorRegionKey() (string, bool) {
	if d.Visit == nil {
		return "", false
	}
	return fmt.Sprintf("instrument=%s,detector=%d,visit=%d", d.Instrument, d.Detector, *d.Visit), true
}

// VisitEntryKey returns the canonical identity key of a visit entry.
func VisitEntryKey(instrument string, visit int64) string {
	return fmt.Sprintf("instrument=%s,visit=%d", instrument, visit)
}

// entryFields returns the descriptive fields carried onto the catalog
// entry for the given dimension; nil for dimensions this system never
// creates.
func (d DataID) entryFields(dim string) map[string]any {
	switch dim {
	case DimExposure:
		return d.exposureFields
	case DimVisit:
		return d.visitFields
	}
	return nil
}
