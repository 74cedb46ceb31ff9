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
	"errors"
	"fmt"

	"github.com/kraklabs/skyvault/pkg/geom"
	"github.com/kraklabs/skyvault/pkg/obsfile"
)

// Astrometric header cards a raw file must carry for region extraction.
const (
	cardNAxis1 = "NAXIS1"
	cardNAxis2 = "NAXIS2"
	cardCRVal1 = "CRVAL1"
	cardCRVal2 = "CRVAL2"
	cardCRPix1 = "CRPIX1"
	cardCRPix2 = "CRPIX2"
	cardCD11   = "CD1_1"
	cardCD12   = "CD1_2"
	cardCD21   = "CD2_1"
	cardCD22   = "CD2_2"
)

// ErrAstrometry marks a missing or unusable astrometric header.
var ErrAstrometry = errors.New("missing or invalid astrometric header")

// RawExtractor turns a raw observation file into the pieces the driver
// needs: its headers, its DataID and its sky region.
type RawExtractor interface {
	// ReadHeaders loads the file's header blocks.
	ReadHeaders(file string) ([]obsfile.Header, error)
	// ExtractDataID builds the identity for a translated observation,
	// restricted to the configured dimensions.
	ExtractDataID(file string, info *obsfile.ObservationInfo, dimensions []string) (DataID, error)
	// BuildRegion computes the detector's sky footprint from the primary
	// header, with the pixel bounding box grown by padPx on every side.
	BuildRegion(headers []obsfile.Header, padPx int) (geom.ConvexPolygon, error)
}

// StandardExtractor reads YAML sidecar headers and computes regions from
// a TAN WCS.
type StandardExtractor struct {
	Reader obsfile.HeaderReader
}

// NewStandardExtractor returns an extractor over the default header reader.
func NewStandardExtractor() *StandardExtractor {
	return &StandardExtractor{Reader: obsfile.NewYAMLHeaderReader()}
}

// ReadHeaders implements RawExtractor.
func (e *StandardExtractor) ReadHeaders(file string) ([]obsfile.Header, error) {
	return e.Reader.ReadHeaders(file)
}

// ExtractDataID implements RawExtractor. Optional dimensions the
// observation lacks (visit, physical_filter) are dropped from the
// identity's dimension set rather than defaulted.
func (e *StandardExtractor) ExtractDataID(file string, info *obsfile.ObservationInfo, dimensions []string) (DataID, error) {
	if info.Instrument == "" {
		return DataID{}, fmt.Errorf("%s: observation has no instrument name", file)
	}
	dims := make([]string, 0, len(dimensions))
	for _, dim := range dimensions {
		if dim == DimVisit && info.VisitID == nil {
			continue
		}
		if dim == DimPhysicalFilter && info.PhysicalFilter == nil {
			continue
		}
		dims = append(dims, dim)
	}
	d := DataID{
		Instrument:     info.Instrument,
		Exposure:       info.ExposureID,
		Detector:       info.DetectorNum,
		Visit:          info.VisitID,
		PhysicalFilter: info.PhysicalFilter,
		dims:           dims,
	}
	d.exposureFields = map[string]any{
		"date_obs":      info.DateObs,
		"exposure_time": info.ExposureTimeSec,
	}
	if info.PhysicalFilter != nil {
		d.exposureFields["physical_filter"] = *info.PhysicalFilter
	}
	if info.VisitID != nil {
		d.visitFields = map[string]any{
			"date_obs":      info.DateObs,
			"exposure_time": info.ExposureTimeSec,
		}
	}
	return d, nil
}

// BuildRegion implements RawExtractor.
func (e *StandardExtractor) BuildRegion(headers []obsfile.Header, padPx int) (geom.ConvexPolygon, error) {
	if len(headers) == 0 {
		return geom.ConvexPolygon{}, fmt.Errorf("%w: no headers", ErrAstrometry)
	}
	h := headers[0]

	naxis1, err := headerInt(h, cardNAxis1)
	if err != nil {
		return geom.ConvexPolygon{}, err
	}
	naxis2, err := headerInt(h, cardNAxis2)
	if err != nil {
		return geom.ConvexPolygon{}, err
	}
	box, err := geom.NewBox2(float64(naxis1), float64(naxis2))
	if err != nil {
		return geom.ConvexPolygon{}, fmt.Errorf("%w: %v", ErrAstrometry, err)
	}
	if padPx > 0 {
		if box, err = box.Grow(float64(padPx)); err != nil {
			return geom.ConvexPolygon{}, fmt.Errorf("%w: %v", ErrAstrometry, err)
		}
	}

	params := geom.TanWCSParams{}
	for _, card := range []struct {
		name string
		dst  *float64
	}{
		{cardCRVal1, &params.CRVal1},
		{cardCRVal2, &params.CRVal2},
		{cardCRPix1, &params.CRPix1},
		{cardCRPix2, &params.CRPix2},
		{cardCD11, &params.CD[0][0]},
		{cardCD12, &params.CD[0][1]},
		{cardCD21, &params.CD[1][0]},
		{cardCD22, &params.CD[1][1]},
	} {
		v, err := headerFloat(h, card.name)
		if err != nil {
			return geom.ConvexPolygon{}, err
		}
		*card.dst = v
	}
	wcs, err := geom.NewTanWCS(params)
	if err != nil {
		return geom.ConvexPolygon{}, fmt.Errorf("%w: %v", ErrAstrometry, err)
	}

	corners := box.Corners()
	vertices := make([]geom.UnitVector, 0, len(corners))
	for _, c := range corners {
		vertices = append(vertices, wcs.PixelToSky(c))
	}
	region, err := geom.NewConvexPolygon(vertices)
	if err != nil {
		return geom.ConvexPolygon{}, fmt.Errorf("%w: %v", ErrAstrometry, err)
	}
	return region, nil
}

func headerInt(h obsfile.Header, name string) (int64, error) {
	v, ok := h.Int64(name)
	if !ok {
		return 0, fmt.Errorf("%w: missing or non-integer card %s", ErrAstrometry, name)
	}
	return v, nil
}

func headerFloat(h obsfile.Header, name string) (float64, error) {
	v, ok := h.Float64(name)
	if !ok {
		return 0, fmt.Errorf("%w: missing or non-numeric card %s", ErrAstrometry, name)
	}
	return v, nil
}
