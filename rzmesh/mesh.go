// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package rzmesh holds the RendezvousMesh of spec.md §3/§4.5: the local
// arrays a planner.Result redistributes onto one rank, wrapped in
// meshtraits.Traits plus the dense id->index lookups the spatial index
// and facade need. It plays the same passive-holder role inp.Mesh plays
// for gofem's element packages: built once, read by everything above it,
// owns nothing else.
package rzmesh

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/rzvs/meshtraits"
	"github.com/cpmech/rzvs/planner"
)

// Mesh is the RendezvousMesh: the redistributed node/element arrays of
// one rank (spec.md §4.5), plus dense GlobalOrdinal->LocalIndex maps built
// once at construction (the same Vid2node-style map gofem's fem.Domain
// builds once per stage rather than searching on every lookup).
type Mesh struct {
	dim             int
	nodeIDs         []meshtraits.GlobalOrdinal
	coords          []float64
	npe             int
	elementType     string
	elementTopology string
	elementIDs      []meshtraits.GlobalOrdinal
	conn            []meshtraits.GlobalOrdinal
	nodeIndex       map[meshtraits.GlobalOrdinal]int
	elementIndex    map[meshtraits.GlobalOrdinal]int
}

// New builds a RendezvousMesh from a planner.Result, validating spec.md
// §3's connectivity invariant: every GlobalOrdinal the connectivity array
// references must appear in the node id array (a shipped element's nodes
// are never left behind, per the planner's phase 4 union-expand).
func New(r *planner.Result) (*Mesh, error) {
	nn := len(r.NodeIDs)
	ne := len(r.ElementIDs)

	m := &Mesh{
		dim:             r.NodeDim,
		nodeIDs:         r.NodeIDs,
		coords:          r.Coords,
		npe:             r.NodesPerElement,
		elementType:     r.ElementType,
		elementTopology: r.ElementTopology,
		elementIDs:      r.ElementIDs,
		conn:            r.Connectivity,
		nodeIndex:       make(map[meshtraits.GlobalOrdinal]int, nn),
		elementIndex:    make(map[meshtraits.GlobalOrdinal]int, ne),
	}
	for i, id := range r.NodeIDs {
		m.nodeIndex[id] = i
	}
	for i, id := range r.ElementIDs {
		m.elementIndex[id] = i
	}
	for _, id := range r.Connectivity {
		if _, ok := m.nodeIndex[id]; !ok {
			return nil, chk.Err("rzmesh: connectivity references node %d absent from the rendezvous node set", id)
		}
	}
	return m, nil
}

func (o *Mesh) NodeDim() int                             { return o.dim }
func (o *Mesh) NumNodes() int                            { return len(o.nodeIDs) }
func (o *Mesh) NumElements() int                         { return len(o.elementIDs) }
func (o *Mesh) NodeID(i int) meshtraits.GlobalOrdinal    { return o.nodeIDs[i] }
func (o *Mesh) Coords() []float64                        { return o.coords }
func (o *Mesh) NodesPerElement() int                     { return o.npe }
func (o *Mesh) ElementID(i int) meshtraits.GlobalOrdinal { return o.elementIDs[i] }
func (o *Mesh) Connectivity() []meshtraits.GlobalOrdinal { return o.conn }
func (o *Mesh) ElementType() string                      { return o.elementType }
func (o *Mesh) ElementTopology() string                  { return o.elementTopology }

// NodeLocalIndex returns the dense local slot of node id, and whether it
// is present on this rank's rendezvous mesh.
func (o *Mesh) NodeLocalIndex(id meshtraits.GlobalOrdinal) (int, bool) {
	i, ok := o.nodeIndex[id]
	return i, ok
}

// ElementLocalIndex returns the dense local slot of element id, and
// whether it is present on this rank's rendezvous mesh.
func (o *Mesh) ElementLocalIndex(id meshtraits.GlobalOrdinal) (int, bool) {
	i, ok := o.elementIndex[id]
	return i, ok
}
