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

// UnitVector is a point on the unit sphere, the common currency for sky
// positions in SkyVault. All constructors normalize, so any UnitVector
// obtained through this package has |v| == 1 up to floating-point error.
type UnitVector struct {
	X, Y, Z float64
}

// NewUnitVector normalizes (x, y, z) onto the unit sphere.
// Returns an error for the zero vector, which has no direction.
func NewUnitVector(x, y, z float64) (UnitVector, error) {
	n := math.Sqrt(x*x + y*y + z*z)
	if n == 0 {
		return UnitVector{}, fmt.Errorf("geom: cannot normalize zero vector")
	}
	return UnitVector{X: x / n, Y: y / n, Z: z / n}, nil
}

// UnitVectorFromRaDec converts equatorial coordinates in degrees to a
// unit vector.
func UnitVectorFromRaDec(raDeg, decDeg float64) UnitVector {
	ra := raDeg * math.Pi / 180
	dec := decDeg * math.Pi / 180
	cd := math.Cos(dec)
	return UnitVector{
		X: cd * math.Cos(ra),
		Y: cd * math.Sin(ra),
		Z: math.Sin(dec),
	}
}

// RaDec converts the vector back to equatorial coordinates in degrees,
// with RA in [0, 360).
func (v UnitVector) RaDec() (raDeg, decDeg float64) {
	ra := math.Atan2(v.Y, v.X)
	if ra < 0 {
		ra += 2 * math.Pi
	}
	dec := math.Asin(math.Max(-1, math.Min(1, v.Z)))
	return ra * 180 / math.Pi, dec * 180 / math.Pi
}

// Dot returns the scalar product of two vectors.
func (v UnitVector) Dot(o UnitVector) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the vector product of two vectors. The result is not
// normalized.
func (v UnitVector) Cross(o UnitVector) UnitVector {
	return UnitVector{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// Angle returns the angular separation between two unit vectors in radians.
func (v UnitVector) Angle(o UnitVector) float64 {
	d := math.Max(-1, math.Min(1, v.Dot(o)))
	return math.Acos(d)
}

// AlmostEqual reports whether two vectors agree to within eps per component.
func (v UnitVector) AlmostEqual(o UnitVector, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps && math.Abs(v.Z-o.Z) <= eps
}
