// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package planner

import (
	"sort"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/rzvs/comm"
	"github.com/cpmech/rzvs/meshtraits"
	"github.com/cpmech/rzvs/rcb"
)

// Result carries the redistributed rendezvous mesh arrays (spec.md §3/§4.4
// phase 5), ready to hand to rzmesh.New.
type Result struct {
	NodeDim         int
	NodeIDs         []meshtraits.GlobalOrdinal // ascending, deduplicated (spec.md §4.4 ordering)
	Coords          []float64                  // dimension-major blocked, len = NodeDim*len(NodeIDs)
	NodesPerElement int
	ElementType     string
	ElementTopology string
	ElementIDs      []meshtraits.GlobalOrdinal // ascending, deduplicated
	Connectivity    []meshtraits.GlobalOrdinal // node-slot-major blocked, len = NodesPerElement*len(ElementIDs)
}

// Stats are diagnostic-only counts (SPEC_FULL.md supplemental feature);
// no invariant depends on them.
type Stats struct {
	ShippedElements    int // total (element,rank) shipments sent by this rank, phase 3, before dedup
	ShippedNodes       int // total (node,rank) shipments sent by this rank, phase 5, before dedup
	DuplicatedElements int // of this rank's own *received* shipments, those landing an element it already has
	DuplicatedNodes    int // same, for received node shipments
}

// Plan runs phases 2-5 of the import planner (spec.md §4.4) given phase
// 1's FilterResult and a built RCB tree. Verbose logging follows gofem's
// rank-0-gated io.Pf convention.
func Plan(c comm.Communicator, mesh meshtraits.Traits, filt *FilterResult, tree *rcb.Tree, verbose bool) (*Result, *Stats, error) {
	dim := mesh.NodeDim()
	npe := mesh.NodesPerElement()
	ne := mesh.NumElements()
	conn := mesh.Connectivity()

	// phase 2: element destinations
	elementDest := make([][]int, ne) // sorted, deduplicated destination ranks per in-box element
	for e := 0; e < ne; e++ {
		if !filt.InBoxElement[e] {
			continue
		}
		seen := map[int]bool{}
		for slot := 0; slot < npe; slot++ {
			gid := conn[slot*ne+e]
			idx := filt.NodeIndex[gid]
			p := meshtraits.NodeCoord(mesh, idx)
			dest := tree.GetDestinationProc(p)
			seen[dest] = true
		}
		dests := make([]int, 0, len(seen))
		for r := range seen {
			dests = append(dests, r)
		}
		sort.Ints(dests)
		elementDest[e] = dests
	}

	// phase 3: element shipping
	var elemIDsToShip []int64
	var elemDestRanks []int
	var connToShip []int64 // npe-block per shipped element, aligned with elemIDsToShip
	for e := 0; e < ne; e++ {
		for _, dest := range elementDest[e] {
			elemIDsToShip = append(elemIDsToShip, int64(mesh.ElementID(e)))
			elemDestRanks = append(elemDestRanks, dest)
			for slot := 0; slot < npe; slot++ {
				connToShip = append(connToShip, int64(conn[slot*ne+e]))
			}
		}
	}

	// NewDistributor/Plan can fail from this rank's own destination list
	// alone (e.g. an out-of-range rank); that is a local-only failure
	// ahead of Plan's own collective count-exchange and this function's
	// subsequent Exchange* calls, so every caller must learn of it
	// collectively before any of them proceeds (spec.md §7), the same way
	// Facade.Build does at its own phase boundaries.
	elemDistributor, dErr := c.NewDistributor()
	if err := c.AllReduceOrError(dErr); err != nil {
		return nil, nil, chk.Err("planner: cannot build element distributor: %v", err)
	}
	pErr := elemDistributor.Plan(elemDestRanks)
	if err := c.AllReduceOrError(pErr); err != nil {
		return nil, nil, chk.Err("planner: element distribution plan failed: %v", err)
	}
	recvElemIDs, err := elemDistributor.ExchangeInt64(elemIDsToShip)
	if err != nil {
		return nil, nil, chk.Err("planner: element id exchange failed: %v", err)
	}
	recvConn, err := elemDistributor.ExchangeInt64Blocks(connToShip, npe)
	if err != nil {
		return nil, nil, chk.Err("planner: connectivity exchange failed: %v", err)
	}

	elemConnByID := make(map[meshtraits.GlobalOrdinal][]meshtraits.GlobalOrdinal, len(recvElemIDs))
	for i, rawID := range recvElemIDs {
		id := meshtraits.GlobalOrdinal(rawID)
		block := make([]meshtraits.GlobalOrdinal, npe)
		for slot := 0; slot < npe; slot++ {
			block[slot] = meshtraits.GlobalOrdinal(recvConn[i*npe+slot])
		}
		elemConnByID[id] = block // duplicates agree: same element, same connectivity
	}
	rendezvousElements := orderedKeys(elemConnByID)

	// phase 4: node destinations — union of destinations of every in-box
	// element a node belongs to (computed from phase 2's data, not RCB
	// directly, per spec.md §4.4: routing a cross-boundary element's nodes
	// this way is what pulls in nodes RCB alone would miss).
	nodeDest := map[meshtraits.GlobalOrdinal]map[int]bool{}
	for e := 0; e < ne; e++ {
		if !filt.InBoxElement[e] {
			continue
		}
		for slot := 0; slot < npe; slot++ {
			gid := conn[slot*ne+e]
			set, ok := nodeDest[gid]
			if !ok {
				set = map[int]bool{}
				nodeDest[gid] = set
			}
			for _, dest := range elementDest[e] {
				set[dest] = true
			}
		}
	}

	// phase 5: node shipping + coordinate shipping
	var nodeIDsToShip []int64
	var nodeDestRanks []int
	var coordsToShip []float64 // dim-block per shipped node
	// iterate in a stable order (ascending GlobalOrdinal) so ShippedNodes/stats are deterministic
	gids := make([]meshtraits.GlobalOrdinal, 0, len(nodeDest))
	for gid := range nodeDest {
		gids = append(gids, gid)
	}
	sort.Slice(gids, func(i, j int) bool { return gids[i] < gids[j] })
	for _, gid := range gids {
		idx := filt.NodeIndex[gid]
		p := meshtraits.NodeCoord(mesh, idx)
		dests := make([]int, 0, len(nodeDest[gid]))
		for r := range nodeDest[gid] {
			dests = append(dests, r)
		}
		sort.Ints(dests)
		for _, dest := range dests {
			nodeIDsToShip = append(nodeIDsToShip, int64(gid))
			nodeDestRanks = append(nodeDestRanks, dest)
			for k := 0; k < dim; k++ {
				coordsToShip = append(coordsToShip, p[k])
			}
		}
	}

	nodeDistributor, dErr2 := c.NewDistributor()
	if err := c.AllReduceOrError(dErr2); err != nil {
		return nil, nil, chk.Err("planner: cannot build node distributor: %v", err)
	}
	pErr2 := nodeDistributor.Plan(nodeDestRanks)
	if err := c.AllReduceOrError(pErr2); err != nil {
		return nil, nil, chk.Err("planner: node distribution plan failed: %v", err)
	}
	recvNodeIDs, err := nodeDistributor.ExchangeInt64(nodeIDsToShip)
	if err != nil {
		return nil, nil, chk.Err("planner: node id exchange failed: %v", err)
	}
	recvCoords, err := nodeDistributor.ExchangeFloat64Blocks(coordsToShip, dim)
	if err != nil {
		return nil, nil, chk.Err("planner: coordinate exchange failed: %v", err)
	}

	coordByID := make(map[meshtraits.GlobalOrdinal][]float64, len(recvNodeIDs))
	for i, rawID := range recvNodeIDs {
		id := meshtraits.GlobalOrdinal(rawID)
		coordByID[id] = recvCoords[i*dim : (i+1)*dim] // duplicates agree: same node, same coordinate
	}
	rendezvousNodes := orderedKeys(coordByID)

	// assemble blocked arrays (spec.md §3)
	nn := len(rendezvousNodes)
	coordsOut := make([]float64, dim*nn)
	for i, gid := range rendezvousNodes {
		c := coordByID[gid]
		for k := 0; k < dim; k++ {
			coordsOut[k*nn+i] = c[k]
		}
	}

	nel := len(rendezvousElements)
	connOut := make([]meshtraits.GlobalOrdinal, npe*nel)
	for i, gid := range rendezvousElements {
		block := elemConnByID[gid]
		for slot := 0; slot < npe; slot++ {
			connOut[slot*nel+i] = block[slot]
		}
	}

	res := &Result{
		NodeDim:         dim,
		NodeIDs:         rendezvousNodes,
		Coords:          coordsOut,
		NodesPerElement: npe,
		ElementType:     mesh.ElementType(),
		ElementTopology: mesh.ElementTopology(),
		ElementIDs:      rendezvousElements,
		Connectivity:    connOut,
	}
	stats := &Stats{
		ShippedElements:    len(elemIDsToShip),
		ShippedNodes:       len(nodeIDsToShip),
		DuplicatedElements: len(recvElemIDs) - len(rendezvousElements),
		DuplicatedNodes:    len(recvNodeIDs) - len(rendezvousNodes),
	}
	if verbose && c.Rank() == 0 {
		io.Pf(">> rendezvous: %d nodes (%d shipments), %d elements (%d shipments)\n",
			len(rendezvousNodes), stats.ShippedNodes, len(rendezvousElements), stats.ShippedElements)
	}
	return res, stats, nil
}

// orderedKeys returns the map's GlobalOrdinal keys in ascending order
// (spec.md §4.4's ordered-set-based dedup, required for determinism).
func orderedKeys[V any](m map[meshtraits.GlobalOrdinal]V) []meshtraits.GlobalOrdinal {
	keys := make([]meshtraits.GlobalOrdinal, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
