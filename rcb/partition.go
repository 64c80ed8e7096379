// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rcb

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/rzvs/bbox"
	"github.com/cpmech/rzvs/comm"
)

// bisectionIters bounds the weighted-median search: float64 has 52 bits of
// mantissa, so this comfortably converges to machine precision on any
// bounded box.
const bisectionIters = 60

// Partition runs parallel recursive coordinate bisection (spec.md §4.3)
// over the caller's local slice of active point coordinates (padded to 3
// dimensions per spec.md §9) and returns the resulting Tree. Every rank of
// c must call Partition collectively, in the same order, with its own
// local points; the returned Tree is identical (bit-for-bit) on every
// rank, since getDestinationProc/Bounds must work purely locally
// afterwards (spec.md §4.7).
//
// Fails with a PartitionError-flavoured error (spec.md §4.4) when the
// active point count is zero on every rank, or when the communicator size
// exceeds the number of active points.
func Partition(c comm.Communicator, globalBox bbox.Box, localPoints [][3]float64) (*Tree, error) {
	nranks := c.Size()

	totalLocal := len(localPoints)
	total := c.AllReduceSumInt(totalLocal)
	if total == 0 {
		return nil, chk.Err("rcb: partition error: active point count is zero on every rank")
	}
	if nranks > total {
		return nil, chk.Err("rcb: partition error: communicator size (%d) exceeds active point count (%d)", nranks, total)
	}

	root := buildNode(c, globalBox, localPoints, 0, nranks)
	t := &Tree{Root: root, GlobalBox: globalBox}
	t.collectLeaves(nranks)
	return t, nil
}

// buildNode recursively builds one node of the tree. Every rank in the
// communicator calls this with identical (rankLo, rankHi, box) at every
// position in the recursion — the tree SHAPE depends only on these
// arguments, never on data, so every rank's sequence of collective calls
// is guaranteed to match. Only the resulting cut VALUES differ from what
// any single rank could compute alone, which is exactly the point of
// doing this collectively.
func buildNode(c comm.Communicator, box bbox.Box, pts [][3]float64, rankLo, rankHi int) *Node {
	if rankHi-rankLo == 1 {
		return &Node{Axis: -1, Box: box, RankLo: rankLo, RankHi: rankHi, Rank: rankLo}
	}

	axis, _ := box.LongestAxis()
	leftCount := (rankHi - rankLo) / 2
	leftFrac := float64(leftCount) / float64(rankHi-rankLo)

	cut, leftPts, rightPts := weightedMedianSplit(c, box, pts, axis, leftFrac)

	leftBox, rightBox := box, box
	leftBox.Max[axis] = cut
	rightBox.Min[axis] = cut

	left := buildNode(c, leftBox, leftPts, rankLo, rankLo+leftCount)
	right := buildNode(c, rightBox, rightPts, rankLo+leftCount, rankHi)

	return &Node{Axis: axis, Cut: cut, Box: box, RankLo: rankLo, RankHi: rankHi, Left: left, Right: right}
}

// weightedMedianSplit finds, by parallel bisection, the coordinate cut
// along axis such that a fraction leftFrac of pts (by count — every active
// point carries unit weight) lies at or below the cut, then partitions
// pts accordingly. Points exactly on the cut go left (spec.md §4.3
// tie-break).
func weightedMedianSplit(c comm.Communicator, box bbox.Box, pts [][3]float64, axis int, leftFrac float64) (cut float64, left, right [][3]float64) {
	localTotal := len(pts)
	total := c.AllReduceSumInt(localTotal)
	if total == 0 {
		// nothing to split on; bisect the box geometrically so both
		// children remain well-formed for a possibly-empty subtree.
		cut = (box.Min[axis] + box.Max[axis]) / 2
		return cut, nil, nil
	}

	target := int(math.Round(leftFrac * float64(total)))

	localLo, localHi := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		if p[axis] < localLo {
			localLo = p[axis]
		}
		if p[axis] > localHi {
			localHi = p[axis]
		}
	}
	lo := c.AllReduceMinFloat(localLo)
	hi := c.AllReduceMaxFloat(localHi)
	if lo > hi { // no point anywhere contributed a finite bound (shouldn't happen since total>0, but stay safe)
		lo, hi = box.Min[axis], box.Max[axis]
	}

	mid := hi
	for i := 0; i < bisectionIters && hi > lo; i++ {
		mid = (lo + hi) / 2
		localCount := 0
		for _, p := range pts {
			if p[axis] <= mid {
				localCount++
			}
		}
		globalCount := c.AllReduceSumInt(localCount)
		if globalCount < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	cut = hi

	for _, p := range pts {
		if p[axis] <= cut {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}
	return cut, left, right
}
