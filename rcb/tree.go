// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package rcb implements the recursive coordinate bisection partitioner of
// spec.md §4.3: a binary tree of axis-aligned cuts over a distributed
// weighted point cloud, with exactly one leaf per communicator rank.
package rcb

import "github.com/cpmech/rzvs/bbox"

// Node is one node of the RcbTree (spec.md §3). Leaves have Axis == -1 and
// a valid Rank; internal nodes have Axis in {0,1,2} and a Cut value.
type Node struct {
	Axis        int // -1 for leaf, else 0=x,1=y,2=z
	Cut         float64
	Box         bbox.Box // the subregion this node spans
	RankLo      int      // inclusive
	RankHi      int      // exclusive
	Rank        int      // valid only when Axis == -1 (leaf)
	Left, Right *Node
}

func (o *Node) isLeaf() bool { return o.Axis < 0 }

// Tree is the RcbTree of spec.md §3: every leaf maps to exactly one rank,
// and the leaves tile GlobalBox with disjoint interiors.
type Tree struct {
	Root      *Node
	GlobalBox bbox.Box
	leaves    []*Node // indexed by rank
}

// GetDestinationProc walks the cut tree and returns the owning rank for p.
// Ties on a cut plane go to the lower rank (spec.md §4.3): a point exactly
// on the cut compares <= and therefore always descends left, and the left
// subtree always holds the lower contiguous rank range.
func (o *Tree) GetDestinationProc(p [3]float64) int {
	n := o.Root
	for !n.isLeaf() {
		if p[n.Axis] <= n.Cut {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Rank
}

// Bounds returns the leaf subregion owned by rank.
func (o *Tree) Bounds(rank int) bbox.Box {
	return o.leaves[rank].Box
}

// NumLeaves returns the number of ranks (== communicator size) the tree was built for.
func (o *Tree) NumLeaves() int { return len(o.leaves) }

// collectLeaves indexes every leaf by rank for O(1) Bounds lookups.
func (o *Tree) collectLeaves(nranks int) {
	o.leaves = make([]*Node, nranks)
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.isLeaf() {
			o.leaves[n.Rank] = n
			return
		}
		walk(n.Left)
		walk(n.Right)
	}
	walk(o.Root)
}
