// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package kdtree implements the local spatial index of spec.md §4.6: a
// top-down bisection tree over one rank's rendezvous element bounding
// volumes, used to answer "which element (if any) contains this point"
// purely locally, with no further communication. It is built the same
// way rcb splits a point cloud (bbox.LongestAxis/bbox.Union), but over
// element boxes rather than node points, and keeps duplicate membership
// where an element's box straddles a split plane.
package kdtree

import (
	"math"
	"sort"

	"github.com/cpmech/rzvs/bbox"
	"github.com/cpmech/rzvs/meshtraits"
)

// leafCapacity bounds the number of elements held at a leaf before the
// tree splits further.
const leafCapacity = 8

// NotFound is returned by FindPoint when no element's predicate accepts
// the query point.
const NotFound meshtraits.GlobalOrdinal = math.MaxInt64

// PointInCell decides whether local element index e actually contains p,
// beyond the coarse bounding-box test the tree itself performs. Callers
// with an isoparametric inverse map for their element families should
// supply one; BoxPredicate is the trivial fallback for callers without
// one (spec.md §4.6 leaves the exact point-in-cell test caller-supplied).
type PointInCell func(mesh meshtraits.Traits, e int, p []float64) bool

// BoxPredicate accepts any point inside the element's own bounding box:
// a correct but imprecise PointInCell, usable when no per-family inverse
// map is available.
func BoxPredicate(mesh meshtraits.Traits, e int, p []float64) bool {
	box := elementBox(mesh, e)
	return box.Contains(p)
}

type node struct {
	box         bbox.Box
	axis        int // -1 for leaf
	cut         float64
	left, right *node
	elems       []int // local element indices, leaf only
}

// Tree is the local spatial index over one rank's rendezvous elements.
type Tree struct {
	mesh  meshtraits.Traits
	boxes []bbox.Box // per local element index, cached at build time
	root  *node
}

// New builds the index over every element of mesh.
func New(mesh meshtraits.Traits) *Tree {
	ne := mesh.NumElements()
	boxes := make([]bbox.Box, ne)
	indices := make([]int, ne)
	for e := 0; e < ne; e++ {
		boxes[e] = elementBox(mesh, e)
		indices[e] = e
	}
	t := &Tree{mesh: mesh, boxes: boxes}
	t.root = t.build(indices)
	return t
}

// elementBox computes the bounding box of element e's nodes.
func elementBox(mesh meshtraits.Traits, e int) bbox.Box {
	ids := meshtraits.ElementNodes(mesh, e)
	if len(ids) == 0 {
		return bbox.Box{}
	}
	nn := mesh.NumNodes()
	coords := mesh.Coords()
	dim := mesh.NodeDim()
	// build a dense per-slot coordinate blob and reuse bbox.FromPoints
	// rather than re-deriving the extents here.
	pts := make([]float64, dim*len(ids))
	nodeIdxOf := make(map[meshtraits.GlobalOrdinal]int, nn)
	for i := 0; i < nn; i++ {
		nodeIdxOf[mesh.NodeID(i)] = i
	}
	for k, id := range ids {
		ni := nodeIdxOf[id]
		for d := 0; d < dim; d++ {
			pts[d*len(ids)+k] = coords[d*nn+ni]
		}
	}
	return bbox.FromPoints(pts, dim, len(ids))
}

func (o *Tree) build(indices []int) *node {
	if len(indices) == 0 {
		return &node{axis: -1}
	}
	union := o.boxes[indices[0]]
	for _, i := range indices[1:] {
		union = union.Union(o.boxes[i])
	}
	if len(indices) <= leafCapacity {
		return &node{box: union, axis: -1, elems: indices}
	}

	axis, _ := union.LongestAxis()

	// median-of-centroids cut: a simple, deterministic split that needs no
	// collective step since the tree is purely local (spec.md §4.7).
	sorted := append([]int(nil), indices...)
	centroid := func(i int) float64 {
		b := o.boxes[i]
		return (b.Min[axis] + b.Max[axis]) / 2
	}
	sort.Slice(sorted, func(i, j int) bool {
		ci, cj := centroid(sorted[i]), centroid(sorted[j])
		if ci != cj {
			return ci < cj
		}
		return o.mesh.ElementID(sorted[i]) < o.mesh.ElementID(sorted[j])
	})
	mid := len(sorted) / 2
	cut := centroid(sorted[mid])

	var left, right []int
	for _, i := range sorted {
		b := o.boxes[i]
		onLeft := b.Min[axis] <= cut
		onRight := b.Max[axis] >= cut
		// elements whose box straddles the cut are kept in both children
		// (spec.md §4.6 tie-break note: shared-face elements must be
		// reachable from whichever side a query point falls on).
		if onLeft {
			left = append(left, i)
		}
		if onRight || !onLeft {
			right = append(right, i)
		}
	}
	// degenerate split (every element landed on one side, e.g. a single
	// point-like box): force progress by a plain index split instead of
	// recursing forever on an identical set.
	if len(left) == len(sorted) || len(right) == len(sorted) {
		left = sorted[:mid]
		right = sorted[mid:]
		if len(left) == 0 {
			left = sorted[:1]
			right = sorted[1:]
		}
	}

	return &node{
		box:   union,
		axis:  axis,
		cut:   cut,
		left:  o.build(left),
		right: o.build(right),
	}
}

// FindPoint returns the GlobalOrdinal of the element containing p
// according to pic, or NotFound. Ties among multiple accepting elements
// resolve to the smallest GlobalOrdinal (spec.md §4.6).
func (o *Tree) FindPoint(p []float64, pic PointInCell) meshtraits.GlobalOrdinal {
	best := NotFound
	o.walk(o.root, p, pic, &best)
	return best
}

func (o *Tree) walk(n *node, p []float64, pic PointInCell, best *meshtraits.GlobalOrdinal) {
	if n == nil {
		return
	}
	if n.axis < 0 {
		for _, e := range n.elems {
			if !o.boxes[e].Contains(p) {
				continue
			}
			if !pic(o.mesh, e, p) {
				continue
			}
			gid := o.mesh.ElementID(e)
			if *best == NotFound || gid < *best {
				*best = gid
			}
		}
		return
	}
	if !n.box.Contains(p) {
		return
	}
	o.walk(n.left, p, pic, best)
	o.walk(n.right, p, pic, best)
}
