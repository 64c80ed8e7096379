// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package bbox implements a closed axis-aligned bounding box in up to
// three dimensions
package bbox

import (
	"math"

	"github.com/cpmech/gosl/utl"
)

// Box is a closed axis-aligned bounding box (xmin ≤ xmax, etc.)
type Box struct {
	Min [3]float64 // {xmin, ymin, zmin}
	Max [3]float64 // {xmax, ymax, zmax}
}

// New returns a new box; panics-free: callers validate xmin≤xmax, etc. via Valid
func New(xmin, ymin, zmin, xmax, ymax, zmax float64) Box {
	return Box{
		Min: [3]float64{xmin, ymin, zmin},
		Max: [3]float64{xmax, ymax, zmax},
	}
}

// Valid returns true if min ≤ max along every axis
func (o Box) Valid() bool {
	for i := 0; i < 3; i++ {
		if o.Min[i] > o.Max[i] {
			return false
		}
	}
	return true
}

// Contains returns true if p lies within the closed box; p shorter than 3
// components is zero-padded (dimension padding, spec.md §9)
func (o Box) Contains(p []float64) bool {
	for i := 0; i < 3; i++ {
		x := 0.0
		if i < len(p) {
			x = p[i]
		}
		if x < o.Min[i] || x > o.Max[i] {
			return false
		}
	}
	return true
}

// Union returns the smallest box containing both o and other
func (o Box) Union(other Box) Box {
	var u Box
	for i := 0; i < 3; i++ {
		u.Min[i] = utl.Min(o.Min[i], other.Min[i])
		u.Max[i] = utl.Max(o.Max[i], other.Max[i])
	}
	return u
}

// LongestAxis returns the axis (0=x, 1=y, 2=z) of largest extent and that extent
func (o Box) LongestAxis() (axis int, extent float64) {
	axis = 0
	extent = o.Max[0] - o.Min[0]
	for i := 1; i < 3; i++ {
		e := o.Max[i] - o.Min[i]
		if e > extent {
			axis = i
			extent = e
		}
	}
	return
}

// FromPoints computes the bounding box of a dimension-major blocked
// coordinate array (spec.md §3): axis k of point n is at coords[k*n_+n]
func FromPoints(coords []float64, dim, n int) Box {
	b := Box{
		Min: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	if n == 0 {
		return Box{} // degenerate zero box; Valid() still holds (0≤0)
	}
	for k := 0; k < 3; k++ {
		if k >= dim {
			b.Min[k] = 0
			b.Max[k] = 0
			continue
		}
		for i := 0; i < n; i++ {
			x := coords[k*n+i]
			if x < b.Min[k] {
				b.Min[k] = x
			}
			if x > b.Max[k] {
				b.Max[k] = x
			}
		}
	}
	return b
}
