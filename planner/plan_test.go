// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package planner

import (
	"sync"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/rzvs/bbox"
	"github.com/cpmech/rzvs/comm"
	"github.com/cpmech/rzvs/meshtraits"
	"github.com/cpmech/rzvs/rcb"
)

// singleTet builds spec.md §8 scenario 1: one tetrahedron with corners at
// the origin and the three unit axis points.
func singleTet() *meshtraits.ArrayMesh {
	return &meshtraits.ArrayMesh{
		Dim:     3,
		NodeIDs: []meshtraits.GlobalOrdinal{0, 1, 2, 3},
		// dimension-major blocked: x: 0,1,0,0  y: 0,0,1,0  z: 0,0,0,1
		CoordsArr:    []float64{0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1},
		NPE:          4,
		ElementIDs:   []meshtraits.GlobalOrdinal{100},
		ConnArr:      []meshtraits.GlobalOrdinal{0, 1, 2, 3},
		ElementTypeS: "tet4",
		TopologyS:    "tet4",
	}
}

func buildAndPlan(tst *testing.T, c comm.Communicator, mesh *meshtraits.ArrayMesh, box bbox.Box) (*Result, *Stats) {
	filt, err := Filter(mesh, box)
	if err != nil {
		tst.Fatalf("Filter failed: %v", err)
	}
	var active [][3]float64
	for i, isActive := range filt.ActiveNode {
		if isActive {
			active = append(active, meshtraits.NodeCoord(mesh, i))
		}
	}
	tree, err := rcb.Partition(c, box, active)
	if err != nil {
		tst.Fatalf("Partition failed: %v", err)
	}
	res, stats, err := Plan(c, mesh, filt, tree, false)
	if err != nil {
		tst.Fatalf("Plan failed: %v", err)
	}
	return res, stats
}

func TestScenarioSingleElementSingleRank(tst *testing.T) {
	chk.PrintTitle("planner scenario single element single rank")
	mesh := singleTet()
	if err := mesh.Validate(); err != nil {
		tst.Fatalf("mesh invalid: %v", err)
	}
	box := bbox.New(0, 0, 0, 1, 1, 1)

	filt, err := Filter(mesh, box)
	if err != nil {
		tst.Fatalf("Filter failed: %v", err)
	}
	for i := range filt.ActiveNode {
		if !filt.ActiveNode[i] {
			tst.Errorf("node %d expected active", i)
		}
	}

	res, stats := buildAndPlan(tst, comm.FakeCommunicator{}, mesh, box)

	chk.IntAssert(len(res.NodeIDs), 4)
	if len(res.ElementIDs) != 1 {
		tst.Fatalf("expected 1 rendezvous element, got %d", len(res.ElementIDs))
	}
	chk.Ints(tst, "element ids", []int{int(res.ElementIDs[0])}, []int{100})
	if res.ElementTopology != "tet4" {
		tst.Errorf("expected element topology tet4 to ride through Plan, got %q", res.ElementTopology)
	}
	chk.IntAssert(stats.DuplicatedElements, 0)
}

// spanningHex builds spec.md §8 scenario 2: one hexahedron whose 8 nodes
// straddle x=0.5, split evenly between two ranks' initial ownership.
func spanningHex() *meshtraits.ArrayMesh {
	// unit cube corners, centered so 4 nodes have x<0.5 and 4 have x>0.5
	xs := []float64{0.25, 0.75, 0.75, 0.25, 0.25, 0.75, 0.75, 0.25}
	ys := []float64{0.25, 0.25, 0.75, 0.75, 0.25, 0.25, 0.75, 0.75}
	zs := []float64{0.25, 0.25, 0.25, 0.25, 0.75, 0.75, 0.75, 0.75}
	coords := make([]float64, 3*8)
	ids := make([]meshtraits.GlobalOrdinal, 8)
	for i := 0; i < 8; i++ {
		ids[i] = meshtraits.GlobalOrdinal(i)
		coords[0*8+i] = xs[i]
		coords[1*8+i] = ys[i]
		coords[2*8+i] = zs[i]
	}
	conn := make([]meshtraits.GlobalOrdinal, 8)
	for i := 0; i < 8; i++ {
		conn[i] = meshtraits.GlobalOrdinal(i) // single element, slot-major with E=1 degenerates to plain order
	}
	return &meshtraits.ArrayMesh{
		Dim:          3,
		NodeIDs:      ids,
		CoordsArr:    coords,
		NPE:          8,
		ElementIDs:   []meshtraits.GlobalOrdinal{7},
		ConnArr:      conn,
		ElementTypeS: "hex8",
		TopologyS:    "hex8",
	}
}

func TestScenarioTwoRanksElementSpansCut(tst *testing.T) {
	chk.PrintTitle("planner scenario two ranks element spans cut")
	full := spanningHex()
	box := bbox.New(0, 0, 0, 1, 1, 1)

	// split ownership: rank 0 holds the element and all 8 of its nodes
	// (an element's local mesh must carry all of its own nodes); rank 1
	// holds only nodes 4..7 (the z=0.75 layer) and no elements, so those
	// 4 nodes are held by both ranks.
	meshes := []*meshtraits.ArrayMesh{full, {
		Dim:       3,
		NodeIDs:   full.NodeIDs[4:8],
		CoordsArr: sliceBlock(full.CoordsArr, 3, 8, 4, 8),
		NPE:       8,
	}}

	comms := comm.NewLoopbackGroup(2)

	var wg sync.WaitGroup
	wg.Add(2)
	results := make([]*Result, 2)
	errs := make([]error, 2)

	for r := 0; r < 2; r++ {
		go func(rank int) {
			defer wg.Done()
			mesh := meshes[rank]
			filt, err := Filter(mesh, box)
			if err != nil {
				errs[rank] = err
				return
			}
			var active [][3]float64
			for i, isActive := range filt.ActiveNode {
				if isActive {
					active = append(active, meshtraits.NodeCoord(mesh, i))
				}
			}
			tree, err := rcb.Partition(comms[rank], box, active)
			if err != nil {
				errs[rank] = err
				return
			}
			res, _, err := Plan(comms[rank], mesh, filt, tree, false)
			results[rank] = res
			errs[rank] = err
		}(r)
	}
	wg.Wait()

	for r := 0; r < 2; r++ {
		if errs[r] != nil {
			tst.Fatalf("rank %d failed: %v", r, errs[r])
		}
	}

	// the hex, owned only by rank 0, has nodes destined for both ranks
	// (its own 4 low-x nodes route to rank 0, its 4 high-x nodes route to
	// rank 1); per spec.md §4.4 the element must follow every one of its
	// nodes' destinations, so it should appear on rank 1 too even though
	// rank 1 never owned it.
	if len(results[0].ElementIDs) != 1 {
		tst.Errorf("rank 0: expected the hex to remain, got %v", results[0].ElementIDs)
	}
	if len(results[1].ElementIDs) != 1 || results[1].ElementIDs[0] != 7 {
		tst.Errorf("rank 1: expected the spanning hex [7] to be shipped in, got %v", results[1].ElementIDs)
	}
	// every one of the hex's 8 nodes must be present on whichever rank holds the hex (I1/I2)
	for _, rankResult := range results {
		if len(rankResult.ElementIDs) == 0 {
			continue
		}
		have := map[meshtraits.GlobalOrdinal]bool{}
		for _, id := range rankResult.NodeIDs {
			have[id] = true
		}
		for _, id := range full.NodeIDs {
			if !have[id] {
				tst.Errorf("node %d of the spanning hex missing from a rank that owns the hex", id)
			}
		}
	}
}

// grid2x2Meshes splits spec.md §8 scenario 3's 2x2 quad grid (9 nodes, node
// ids 0..8 row-major, 4 elements) into one local mesh per rank, each
// holding exactly one quad and its 4 corner nodes — so the center node
// (id 4) and the two edge-midpoint nodes of every interior edge are each
// initially duplicated across the two or four ranks that share them.
func grid2x2Meshes() []*meshtraits.ArrayMesh {
	quad := func(row, col int) []meshtraits.GlobalOrdinal {
		bl := meshtraits.GlobalOrdinal(row*3 + col)
		br := bl + 1
		tl := bl + 3
		tr := tl + 1
		return []meshtraits.GlobalOrdinal{bl, br, tr, tl}
	}
	coord := func(id meshtraits.GlobalOrdinal) (x, y float64) {
		row, col := int(id)/3, int(id)%3
		return float64(col), float64(row)
	}
	var meshes []*meshtraits.ArrayMesh
	eid := 0
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			ids := quad(row, col)
			coords := make([]float64, 2*4)
			for i, id := range ids {
				x, y := coord(id)
				coords[0*4+i] = x
				coords[1*4+i] = y
			}
			meshes = append(meshes, &meshtraits.ArrayMesh{
				Dim:          2,
				NodeIDs:      ids,
				CoordsArr:    coords,
				NPE:          4,
				ElementIDs:   []meshtraits.GlobalOrdinal{meshtraits.GlobalOrdinal(eid)},
				ConnArr:      ids,
				ElementTypeS: "quad4",
				TopologyS:    "quad4",
			})
			eid++
		}
	}
	return meshes
}

// TestScenarioFourRanksSharedCenterNode exercises spec.md §8 scenario 3:
// four ranks, a 2x2 quad grid, and the single node (id 4) shared by all
// four quads. After redistribution, every rank that receives node 4 must
// receive the same coordinate for it (spec.md §3's single-source-of-truth
// invariant for a deduplicated node), and the global rendezvous node/element
// sets, pooled back together, must cover all 9 nodes and all 4 elements of
// the grid (an element may sit on more than one rank).
func TestScenarioFourRanksSharedCenterNode(tst *testing.T) {
	chk.PrintTitle("planner scenario four ranks shared center node")
	box := bbox.New(0, 0, 0, 2, 2, 0)
	meshes := grid2x2Meshes()
	comms := comm.NewLoopbackGroup(4)

	var wg sync.WaitGroup
	wg.Add(4)
	results := make([]*Result, 4)
	errs := make([]error, 4)
	for r := 0; r < 4; r++ {
		go func(rank int) {
			defer wg.Done()
			results[rank], _, errs[rank] = planOne(comms[rank], meshes[rank], box)
		}(r)
	}
	wg.Wait()
	for r := 0; r < 4; r++ {
		if errs[r] != nil {
			tst.Fatalf("rank %d failed: %v", r, errs[r])
		}
	}

	centerCoord := map[[2]float64]bool{}
	for r := 0; r < 4; r++ {
		for i, id := range results[r].NodeIDs {
			if id != 4 {
				continue
			}
			x, y := results[r].Coords[i], results[r].Coords[len(results[r].NodeIDs)+i]
			centerCoord[[2]float64{x, y}] = true
		}
	}
	if len(centerCoord) != 1 {
		tst.Errorf("node 4's coordinate disagrees across ranks that received it: %v", centerCoord)
	}

	allNodes := map[meshtraits.GlobalOrdinal]bool{}
	allElements := map[meshtraits.GlobalOrdinal]bool{}
	for r := 0; r < 4; r++ {
		for _, id := range results[r].NodeIDs {
			allNodes[id] = true
		}
		for _, id := range results[r].ElementIDs {
			allElements[id] = true
		}
	}
	chk.IntAssert(len(allNodes), 9)
	chk.IntAssert(len(allElements), 4)
}

// TestScenarioAsymmetricEmptyMesh exercises spec.md §8 scenario 5: one rank
// holds the whole source mesh, the others hold nothing at all. Every rank
// must still run Filter/Partition/Plan to completion; the empty ranks'
// Result may be empty but must not error.
func TestScenarioAsymmetricEmptyMesh(tst *testing.T) {
	chk.PrintTitle("planner scenario asymmetric empty mesh")
	box := bbox.New(0, 0, 0, 1, 1, 1)
	full := singleTet()
	empty := &meshtraits.ArrayMesh{Dim: 3, NPE: 4}

	meshes := []*meshtraits.ArrayMesh{full, empty, empty}
	comms := comm.NewLoopbackGroup(3)

	var wg sync.WaitGroup
	wg.Add(3)
	results := make([]*Result, 3)
	errs := make([]error, 3)
	for r := 0; r < 3; r++ {
		go func(rank int) {
			defer wg.Done()
			results[rank], _, errs[rank] = planOne(comms[rank], meshes[rank], box)
		}(r)
	}
	wg.Wait()
	for r := 0; r < 3; r++ {
		if errs[r] != nil {
			tst.Fatalf("rank %d failed: %v", r, errs[r])
		}
	}

	total := 0
	for r := 0; r < 3; r++ {
		total += len(results[r].ElementIDs)
	}
	chk.IntAssert(total, 1)
}

func planOne(c comm.Communicator, mesh *meshtraits.ArrayMesh, box bbox.Box) (*Result, *Stats, error) {
	filt, err := Filter(mesh, box)
	if err != nil {
		return nil, nil, err
	}
	var active [][3]float64
	for i, isActive := range filt.ActiveNode {
		if isActive {
			active = append(active, meshtraits.NodeCoord(mesh, i))
		}
	}
	tree, err := rcb.Partition(c, box, active)
	if err != nil {
		return nil, nil, err
	}
	return Plan(c, mesh, filt, tree, false)
}

// sliceBlock extracts nodes [lo,hi) from a dimension-major blocked coordinate array of n nodes.
func sliceBlock(coords []float64, dim, n, lo, hi int) []float64 {
	out := make([]float64, dim*(hi-lo))
	for k := 0; k < dim; k++ {
		for i := lo; i < hi; i++ {
			out[k*(hi-lo)+(i-lo)] = coords[k*n+i]
		}
	}
	return out
}
