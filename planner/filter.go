// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package planner implements the import planner of spec.md §4.4: the
// five-phase filter → element-destinations → element-shipping →
// node-destinations → node-shipping pipeline that redistributes a source
// mesh onto the rendezvous decomposition.
package planner

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/rzvs/bbox"
	"github.com/cpmech/rzvs/meshtraits"
)

// FilterResult is the output of phase 1 (spec.md §4.4): the local node
// index map (built once — spec.md §9's design note about avoiding the
// duplicated node-index map), and the in-box/active flags it derives.
type FilterResult struct {
	NodeIndex    map[meshtraits.GlobalOrdinal]int // node GlobalOrdinal -> local slot, built once
	InBoxNode    []bool                           // [nnodes]
	ActiveNode   []bool                           // [nnodes]; superset of InBoxNode (spec.md §4.4 phase 1)
	InBoxElement []bool                           // [nelems]
}

// Filter runs phase 1 of the import planner: build the node index map,
// mark in-box nodes and elements, and union-expand to the active node set
// that RCB partitions over (spec.md §4.3's "active" input).
func Filter(mesh meshtraits.Traits, globalBox bbox.Box) (*FilterResult, error) {
	nn := mesh.NumNodes()
	ne := mesh.NumElements()
	dim := mesh.NodeDim()
	if dim < 1 || dim > 3 {
		return nil, chk.Err("planner: mesh dimension must be in {1,2,3}; got %d", dim)
	}
	if !globalBox.Valid() {
		return nil, chk.Err("planner: degenerate global box (xmin>xmax or similar)")
	}

	r := &FilterResult{
		NodeIndex:    make(map[meshtraits.GlobalOrdinal]int, nn),
		InBoxNode:    make([]bool, nn),
		ActiveNode:   make([]bool, nn),
		InBoxElement: make([]bool, ne),
	}

	for i := 0; i < nn; i++ {
		id := mesh.NodeID(i)
		if _, dup := r.NodeIndex[id]; dup {
			return nil, chk.Err("planner: duplicate local node id %d", id)
		}
		r.NodeIndex[id] = i
		p := meshtraits.NodeCoord(mesh, i)
		r.InBoxNode[i] = globalBox.Contains(p[:])
		r.ActiveNode[i] = r.InBoxNode[i]
	}

	npe := mesh.NodesPerElement()
	conn := mesh.Connectivity()
	for e := 0; e < ne; e++ {
		inBox := false
		for slot := 0; slot < npe; slot++ {
			gid := conn[slot*ne+e]
			idx, ok := r.NodeIndex[gid]
			if !ok {
				return nil, chk.Err("planner: connectivity references unknown node id %d", gid)
			}
			if r.InBoxNode[idx] {
				inBox = true
			}
		}
		r.InBoxElement[e] = inBox
		if inBox {
			// union-expand: every node of an in-box element becomes active,
			// even if that node itself lies outside the box (spec.md §4.4).
			for slot := 0; slot < npe; slot++ {
				gid := conn[slot*ne+e]
				r.ActiveNode[r.NodeIndex[gid]] = true
			}
		}
	}
	return r, nil
}
