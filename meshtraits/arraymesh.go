// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meshtraits

import "github.com/cpmech/gosl/chk"

// ArrayMesh is a minimal in-memory Traits implementation over plain
// blocked arrays (spec.md §3), the same passive-holder role inp.Mesh plays
// for gofem's element packages. It exists for tests; rzmesh.Mesh
// implements Traits over its redistributed arrays itself and does not
// use ArrayMesh.
type ArrayMesh struct {
	Dim          int             // node dimension, 1..3
	NodeIDs      []GlobalOrdinal // [nnodes]
	CoordsArr    []float64       // [dim*nnodes], dimension-major blocked
	NPE          int             // nodes per element
	ElementIDs   []GlobalOrdinal // [nelems]
	ConnArr      []GlobalOrdinal // [NPE*nelems], node-slot-major blocked
	ElementTypeS string
	TopologyS    string
}

// Validate checks the basic structural invariants of spec.md §3/§7:
// dimension in {1,2,3} and connectivity referencing only known nodes.
func (o *ArrayMesh) Validate() error {
	if o.Dim < 1 || o.Dim > 3 {
		return chk.Err("mesh dimension must be in {1,2,3}; got %d", o.Dim)
	}
	if len(o.CoordsArr) != o.Dim*len(o.NodeIDs) {
		return chk.Err("coords array length %d does not match dim*nnodes = %d*%d", len(o.CoordsArr), o.Dim, len(o.NodeIDs))
	}
	known := make(map[GlobalOrdinal]bool, len(o.NodeIDs))
	for _, id := range o.NodeIDs {
		known[id] = true
	}
	for _, id := range o.ConnArr {
		if !known[id] {
			return chk.Err("connectivity references unknown node id %d", id)
		}
	}
	return nil
}

func (o *ArrayMesh) NodeDim() int                  { return o.Dim }
func (o *ArrayMesh) NumNodes() int                 { return len(o.NodeIDs) }
func (o *ArrayMesh) NumElements() int              { return len(o.ElementIDs) }
func (o *ArrayMesh) NodeID(i int) GlobalOrdinal    { return o.NodeIDs[i] }
func (o *ArrayMesh) Coords() []float64             { return o.CoordsArr }
func (o *ArrayMesh) NodesPerElement() int          { return o.NPE }
func (o *ArrayMesh) ElementID(i int) GlobalOrdinal { return o.ElementIDs[i] }
func (o *ArrayMesh) Connectivity() []GlobalOrdinal { return o.ConnArr }
func (o *ArrayMesh) ElementType() string           { return o.ElementTypeS }
func (o *ArrayMesh) ElementTopology() string       { return o.TopologyS }

// NodeCoord returns the (padded-to-3) coordinate of the i-th local node.
func NodeCoord(m Traits, i int) [3]float64 {
	var p [3]float64
	n := m.NumNodes()
	c := m.Coords()
	dim := m.NodeDim()
	for k := 0; k < dim && k < 3; k++ {
		p[k] = c[k*n+i]
	}
	return p
}

// ElementNodes returns the GlobalOrdinals of the nodes of the e-th local element.
func ElementNodes(m Traits, e int) []GlobalOrdinal {
	npe := m.NodesPerElement()
	ne := m.NumElements()
	conn := m.Connectivity()
	ids := make([]GlobalOrdinal, npe)
	for slot := 0; slot < npe; slot++ {
		ids[slot] = conn[slot*ne+e]
	}
	return ids
}
