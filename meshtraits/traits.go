// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package meshtraits defines the read-only capability set the rendezvous
// core consumes from any caller-supplied mesh (spec.md §4.2). It mirrors
// gofem's ele.Element interface style: name exactly what the core needs,
// nothing more.
package meshtraits

// GlobalOrdinal is a process-unique node or element identifier, preserved
// across redistribution (spec.md §3).
type GlobalOrdinal int64

// Traits is the uniform read-only view over a caller's mesh. The core must
// not assume contiguity between nodes of a single element in connectivity
// memory (spec.md §4.2): callers may lay connectivity out however they
// like, as long as Connectivity returns the node-slot-major blocked
// view of spec.md §3.
type Traits interface {
	// NodeDim returns d ∈ {1,2,3}
	NodeDim() int

	// NumNodes and NumElements return the local counts
	NumNodes() int
	NumElements() int

	// NodeID returns the GlobalOrdinal of the i-th local node, i ∈ [0, NumNodes())
	NodeID(i int) GlobalOrdinal

	// Coords returns the dimension-major blocked coordinate array
	// (spec.md §3): axis k of node n at index k*NumNodes()+n
	Coords() []float64

	// NodesPerElement returns the (uniform) number of nodes per element
	NodesPerElement() int

	// ElementID returns the GlobalOrdinal of the i-th local element
	ElementID(i int) GlobalOrdinal

	// Connectivity returns the node-slot-major blocked connectivity array
	// (spec.md §3): slot i of element n at index i*NumElements()+n
	Connectivity() []GlobalOrdinal

	// ElementType names the element's physical/formulation family (e.g.
	// "solid", "beam"), independent of its geometric shape.
	ElementType() string

	// ElementTopology names the element's geometric topology (e.g. "hex8",
	// "tet4", "quad4"): the shape family a PointInCell predicate (kdtree's
	// caller-supplied point-in-cell test) needs to pick the right
	// isoparametric inverse map. Kept distinct from ElementType per
	// spec.md §4.2, since two elements can share a topology (both hex8)
	// while differing in physical formulation, or vice versa.
	ElementTopology() string
}
