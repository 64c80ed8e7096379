// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rcb

// Pad3 extracts node i's coordinate from a dimension-major blocked array
// (spec.md §3) and zero-pads dimensions beyond dim (spec.md §9).
func Pad3(coords []float64, dim, n, i int) [3]float64 {
	var p [3]float64
	for k := 0; k < dim && k < 3; k++ {
		p[k] = coords[k*n+i]
	}
	return p
}
