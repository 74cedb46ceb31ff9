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
	"sort"
)

// ConvexPolygon is a convex spherical polygon: the convex hull of a set of
// unit vectors. Vertices are stored in counter-clockwise order as seen from
// outside the sphere.
//
// The hull is computed on the tangent plane at the centroid of the input
// points, which is exact for regions much smaller than a hemisphere. That
// covers every footprint SkyVault handles: single detectors and visits,
// both far below a degree squared in practice.
type ConvexPolygon struct {
	vertices []UnitVector
}

const vertexDedupeEps = 1e-12

// NewConvexPolygon computes the convex hull of the given sky positions.
// Duplicate points are merged first; fewer than three distinct points, or
// a degenerate (collinear) set, is an error.
//
// Rebuilding a polygon from the union of two polygons' vertices yields
// their merged hull, which is how visit regions grow from detector regions.
func NewConvexPolygon(points []UnitVector) (ConvexPolygon, error) {
	distinct := dedupeVertices(points)
	if len(distinct) < 3 {
		return ConvexPolygon{}, fmt.Errorf("geom: convex polygon needs at least 3 distinct vertices, got %d", len(distinct))
	}

	// Tangent plane at the centroid.
	var cx, cy, cz float64
	for _, p := range distinct {
		cx += p.X
		cy += p.Y
		cz += p.Z
	}
	center, err := NewUnitVector(cx, cy, cz)
	if err != nil {
		return ConvexPolygon{}, fmt.Errorf("geom: degenerate vertex set: %w", err)
	}
	for _, p := range distinct {
		if p.Dot(center) <= 0 {
			return ConvexPolygon{}, fmt.Errorf("geom: vertex set spans more than a hemisphere")
		}
	}

	u, v := tangentBasis(center)
	type planar struct {
		x, y float64
		vec  UnitVector
	}
	pts := make([]planar, len(distinct))
	for i, p := range distinct {
		// Gnomonic projection onto the tangent plane.
		d := p.Dot(center)
		pts[i] = planar{x: p.Dot(u) / d, y: p.Dot(v) / d, vec: p}
	}

	sort.Slice(pts, func(i, j int) bool {
		if pts[i].x != pts[j].x {
			return pts[i].x < pts[j].x
		}
		return pts[i].y < pts[j].y
	})

	cross := func(o, a, b planar) float64 {
		return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
	}

	// Andrew's monotone chain.
	var lower, upper []planar
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		return ConvexPolygon{}, fmt.Errorf("geom: vertex set is collinear")
	}

	vertices := make([]UnitVector, len(hull))
	for i, p := range hull {
		vertices[i] = p.vec
	}
	return ConvexPolygon{vertices: vertices}, nil
}

// Len returns the number of hull vertices.
func (p ConvexPolygon) Len() int { return len(p.vertices) }

// Vertices returns a copy of the hull vertices in counter-clockwise order.
func (p ConvexPolygon) Vertices() []UnitVector {
	out := make([]UnitVector, len(p.vertices))
	copy(out, p.vertices)
	return out
}

// Contains reports whether the given point lies inside the polygon, edges
// included. A point is inside when it sits on the interior side of every
// great-circle edge.
func (p ConvexPolygon) Contains(v UnitVector) bool {
	n := len(p.vertices)
	for i := 0; i < n; i++ {
		a := p.vertices[i]
		b := p.vertices[(i+1)%n]
		if a.Cross(b).Dot(v) < -vertexDedupeEps {
			return false
		}
	}
	return true
}

// ContainsAll reports whether every given point lies inside the polygon.
func (p ConvexPolygon) ContainsAll(points []UnitVector) bool {
	for _, v := range points {
		if !p.Contains(v) {
			return false
		}
	}
	return true
}

// tangentBasis returns two orthonormal vectors spanning the plane tangent
// to the sphere at c.
func tangentBasis(c UnitVector) (UnitVector, UnitVector) {
	ref := UnitVector{Z: 1}
	if math.Abs(c.Z) > 0.9 {
		ref = UnitVector{X: 1}
	}
	u, _ := NewUnitVector(c.Cross(ref).X, c.Cross(ref).Y, c.Cross(ref).Z)
	w := c.Cross(u)
	return u, w
}

func dedupeVertices(points []UnitVector) []UnitVector {
	var out []UnitVector
	for _, p := range points {
		dup := false
		for _, q := range out {
			if p.AlmostEqual(q, vertexDedupeEps) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}
