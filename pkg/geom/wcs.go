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

package geom

import (
	"fmt"
	"math"
)

// TanWCSParams holds the FITS-style astrometric solution for a gnomonic
// (TAN) projection: a reference sky position, a reference pixel, and the
// CD matrix mapping pixel offsets to degrees on the tangent plane.
type TanWCSParams struct {
	// CRVal1, CRVal2 are the reference RA and Dec in degrees.
	CRVal1, CRVal2 float64

	// CRPix1, CRPix2 are the reference pixel coordinates.
	CRPix1, CRPix2 float64

	// CD is the linear transform [ [CD1_1 CD1_2] [CD2_1 CD2_2] ] in
	// degrees per pixel.
	CD [2][2]float64
}

// TanWCS converts between pixel coordinates and sky positions using a
// gnomonic projection. It covers the angular scales of a single detector,
// which is all the region builder needs.
type TanWCS struct {
	params TanWCSParams
	ra0    float64 // reference RA, radians
	dec0   float64 // reference Dec, radians
}

// NewTanWCS validates the astrometric parameters and returns a usable
// projection. A singular CD matrix is rejected: it would collapse the
// detector footprint to a line or point.
func NewTanWCS(p TanWCSParams) (*TanWCS, error) {
	det := p.CD[0][0]*p.CD[1][1] - p.CD[0][1]*p.CD[1][0]
	if det == 0 {
		return nil, fmt.Errorf("geom: singular CD matrix")
	}
	if p.CRVal2 < -90 || p.CRVal2 > 90 {
		return nil, fmt.Errorf("geom: reference declination %g out of range", p.CRVal2)
	}
	return &TanWCS{
		params: p,
		ra0:    p.CRVal1 * math.Pi / 180,
		dec0:   p.CRVal2 * math.Pi / 180,
	}, nil
}

// PixelToSky maps a pixel position through the CD matrix and the inverse
// gnomonic projection onto the unit sphere.
func (w *TanWCS) PixelToSky(p Point2) UnitVector {
	dx := p.X - w.params.CRPix1
	dy := p.Y - w.params.CRPix2

	// Intermediate world coordinates on the tangent plane, radians.
	xi := (w.params.CD[0][0]*dx + w.params.CD[0][1]*dy) * math.Pi / 180
	eta := (w.params.CD[1][0]*dx + w.params.CD[1][1]*dy) * math.Pi / 180

	sinDec0, cosDec0 := math.Sin(w.dec0), math.Cos(w.dec0)
	denom := cosDec0 - eta*sinDec0

	ra := w.ra0 + math.Atan2(xi, denom)
	dec := math.Atan2((sinDec0+eta*cosDec0)*math.Cos(ra-w.ra0), denom)

	cd := math.Cos(dec)
	return UnitVector{
		X: cd * math.Cos(ra),
		Y: cd * math.Sin(ra),
		Z: math.Sin(dec),
	}
}
