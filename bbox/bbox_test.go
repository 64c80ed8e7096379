// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bbox

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestContainsClosed(tst *testing.T) {
	chk.PrintTitle("contains closed")
	b := New(0, 0, 0, 1, 1, 1)
	if !b.Contains([]float64{0, 0, 0}) {
		tst.Errorf("corner 0,0,0 should be inside closed box")
	}
	if !b.Contains([]float64{1, 1, 1}) {
		tst.Errorf("corner 1,1,1 should be inside closed box")
	}
	if b.Contains([]float64{1.0001, 0, 0}) {
		tst.Errorf("point just outside box should not be contained")
	}
}

func TestContainsPadsDimension(tst *testing.T) {
	chk.PrintTitle("contains pads dimension")
	b := New(0, 0, 0, 1, 1, 0)
	if !b.Contains([]float64{0.5, 0.5}) {
		tst.Errorf("2D point should be padded with z=0 and be inside")
	}
}

func TestDegenerateBox(tst *testing.T) {
	chk.PrintTitle("degenerate box")
	b := New(0, 0, 0, 0, 1, 1)
	if !b.Valid() {
		tst.Errorf("zero-extent box along x should still be valid")
	}
	if !b.Contains([]float64{0, 0.5, 0.5}) {
		tst.Errorf("degenerate box should contain points on its collapsed face")
	}
}

func TestInvalidBox(tst *testing.T) {
	chk.PrintTitle("invalid box")
	b := New(1, 0, 0, 0, 1, 1)
	if b.Valid() {
		tst.Errorf("xmin>xmax should be invalid")
	}
}

func TestUnion(tst *testing.T) {
	chk.PrintTitle("union")
	a := New(0, 0, 0, 1, 1, 1)
	b := New(2, 2, 2, 3, 3, 3)
	u := a.Union(b)
	want := New(0, 0, 0, 3, 3, 3)
	chk.Vector(tst, "min", 1e-15, u.Min[:], want.Min[:])
	chk.Vector(tst, "max", 1e-15, u.Max[:], want.Max[:])
}

func TestLongestAxis(tst *testing.T) {
	chk.PrintTitle("longest axis")
	b := New(0, 0, 0, 1, 5, 2)
	axis, extent := b.LongestAxis()
	chk.IntAssert(axis, 1)
	chk.Scalar(tst, "extent", 1e-15, extent, 5)
}

func TestFromPoints2D(tst *testing.T) {
	chk.PrintTitle("from points 2D")
	// dimension-major blocked: 3 nodes, 2D
	coords := []float64{0, 1, 2, 0, -1, 3} // x: 0,1,2  y: 0,-1,3
	b := FromPoints(coords, 2, 3)
	want := New(0, -1, 0, 2, 3, 0)
	chk.Vector(tst, "min", 1e-15, b.Min[:], want.Min[:])
	chk.Vector(tst, "max", 1e-15, b.Max[:], want.Max[:])
}
