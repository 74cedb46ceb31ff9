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

import "fmt"

// Point2 is a position on the pixel plane.
type Point2 struct {
	X, Y float64
}

// Box2 is an axis-aligned pixel-plane rectangle.
type Box2 struct {
	Min, Max Point2
}

// NewBox2 builds a box spanning [0, width) x [0, height) pixels, the
// footprint of a detector with the given dimensions.
func NewBox2(width, height float64) (Box2, error) {
	if width <= 0 || height <= 0 {
		return Box2{}, fmt.Errorf("geom: box dimensions must be positive, got %gx%g", width, height)
	}
	return Box2{Min: Point2{0, 0}, Max: Point2{X: width, Y: height}}, nil
}

// Grow expands the box by pad pixels on every side. pad == 0 leaves the
// box unchanged; negative pads are rejected because the caller's region
// must never shrink below the detector footprint.
func (b Box2) Grow(pad float64) (Box2, error) {
	if pad < 0 {
		return Box2{}, fmt.Errorf("geom: pad must be non-negative, got %g", pad)
	}
	return Box2{
		Min: Point2{X: b.Min.X - pad, Y: b.Min.Y - pad},
		Max: Point2{X: b.Max.X + pad, Y: b.Max.Y + pad},
	}, nil
}

// Corners returns the four corners in counter-clockwise order starting
// from the minimum.
func (b Box2) Corners() [4]Point2 {
	return [4]Point2{
		{X: b.Min.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Max.Y},
	}
}

// Width returns the box extent along X.
func (b Box2) Width() float64 { return b.Max.X - b.Min.X }

// Height returns the box extent along Y.
func (b Box2) Height() float64 { return b.Max.Y - b.Min.Y }

// Contains reports whether the other box lies fully inside this one.
func (b Box2) Contains(o Box2) bool {
	return b.Min.X <= o.Min.X && b.Min.Y <= o.Min.Y &&
		b.Max.X >= o.Max.X && b.Max.Y >= o.Max.Y
}
