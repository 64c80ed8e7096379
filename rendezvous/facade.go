// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package rendezvous is the top-level facade of spec.md §4: given a
// process's local slice of a source mesh and a shared global bounding
// box, Build computes the RCB decomposition and redistributes the mesh
// onto it, after which GetRendezvousProcs/GetElements answer purely
// local spatial queries with no further communication. It wires
// bbox/comm/meshtraits/rcb/planner/rzmesh/kdtree together the same way
// gofem/main.go wires inp+fem+mpi into one run, including the same
// rank-0-gated banner and panic/recover boundary.
package rendezvous

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/rzvs/bbox"
	"github.com/cpmech/rzvs/comm"
	"github.com/cpmech/rzvs/kdtree"
	"github.com/cpmech/rzvs/meshtraits"
	"github.com/cpmech/rzvs/planner"
	"github.com/cpmech/rzvs/rcb"
	"github.com/cpmech/rzvs/rzmesh"
)

// Facade is the rendezvous handle of spec.md §4.1: constructed once per
// communicator/box pair, then built against any number of source meshes
// over its lifetime (spec.md §8's deterministic-rebuild scenario rebuilds
// the same Facade twice).
type Facade struct {
	comm    comm.Communicator
	box     bbox.Box
	verbose bool

	tree  *rcb.Tree
	mesh  *rzmesh.Mesh
	index *kdtree.Tree
	stats *planner.Stats
}

// New returns a Facade bound to c and box. Verbose logging (rank-0-gated,
// gofem's io.Pf convention) is off by default; enable it with SetVerbose.
func New(c comm.Communicator, box bbox.Box) *Facade {
	return &Facade{comm: c, box: box}
}

// SetVerbose toggles the rank-0 progress banner Build prints.
func (o *Facade) SetVerbose(v bool) { o.verbose = v }

// Build runs the full rendezvous pipeline of spec.md §4: filter the
// caller's local mesh to its active node set, partition that set via
// RCB, redistribute the mesh onto the resulting decomposition, and index
// the arrived elements for local point queries. It may be called more
// than once on the same Facade (e.g. rebuilding after the caller's mesh
// changed); each call fully replaces the previous rendezvous state.
func (o *Facade) Build(mesh meshtraits.Traits) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = chk.Err("rendezvous: build panicked: %v", r)
		}
	}()

	if o.verbose && o.comm.Rank() == 0 {
		io.Pf(">> rendezvous: filtering %d local nodes, %d local elements\n", mesh.NumNodes(), mesh.NumElements())
	}

	// planner.Filter only ever fails from this rank's own local mesh (bad
	// dimension, invalid box, dangling connectivity); a rank that returns
	// early here without telling the others would leave them blocked in
	// rcb.Partition's collective AllReduceSumInt/AllReduceMinFloat below.
	// Route every local-only failure through AllReduceOrError before any
	// subsequent collective call (spec.md §7: collective failures are
	// detected collectively), at every phase boundary, not just this one.
	filt, ferr := planner.Filter(mesh, o.box)
	if err = o.comm.AllReduceOrError(ferr); err != nil {
		return err
	}

	var active [][3]float64
	for i, isActive := range filt.ActiveNode {
		if isActive {
			active = append(active, meshtraits.NodeCoord(mesh, i))
		}
	}

	tree, perr := rcb.Partition(o.comm, o.box, active)
	if err = o.comm.AllReduceOrError(perr); err != nil {
		return err
	}

	result, stats, planErr := planner.Plan(o.comm, mesh, filt, tree, o.verbose)
	if err = o.comm.AllReduceOrError(planErr); err != nil {
		return err
	}

	rz, rerr := rzmesh.New(result)
	if err = o.comm.AllReduceOrError(rerr); err != nil {
		return err
	}

	o.tree = tree
	o.mesh = rz
	o.index = kdtree.New(rz)
	o.stats = stats

	if o.verbose && o.comm.Rank() == 0 {
		io.Pf(">> rendezvous: built %d nodes, %d elements on this rank\n", rz.NumNodes(), rz.NumElements())
	}
	return nil
}

// Tree returns the diagnostic RCB decomposition built by the last Build
// call, or nil if Build has not succeeded yet.
func (o *Facade) Tree() *rcb.Tree { return o.tree }

// Mesh returns the RendezvousMesh built by the last Build call, or nil.
func (o *Facade) Mesh() *rzmesh.Mesh { return o.mesh }

// Stats returns the import planner's diagnostic shipment counts from the
// last Build call, or nil.
func (o *Facade) Stats() *planner.Stats { return o.stats }

// GetRendezvousProcs returns, for each of the n points in coords (a
// dimension-major blocked array per spec.md §3), the rank owning that
// point's RCB leaf. Points outside the global box still resolve to
// whichever leaf their coordinates walk into (spec.md §9: unspecified
// but deterministic for out-of-box queries).
func (o *Facade) GetRendezvousProcs(coords []float64, dim, n int) []int {
	if o.tree == nil {
		chk.Panic("rendezvous: GetRendezvousProcs called before a successful Build")
	}
	procs := make([]int, n)
	for i := 0; i < n; i++ {
		p := rcb.Pad3(coords, dim, n, i)
		procs[i] = o.tree.GetDestinationProc(p)
	}
	return procs
}

// GetElements returns, for each of the n points in coords, the
// GlobalOrdinal of the local rendezvous element containing it (kdtree.NotFound
// if none), using kdtree.BoxPredicate as the containment test.
func (o *Facade) GetElements(coords []float64, dim, n int) []meshtraits.GlobalOrdinal {
	return o.GetElementsWithPredicate(coords, dim, n, kdtree.BoxPredicate)
}

// GetElementsWithPredicate is GetElements with a caller-supplied
// PointInCell test, for callers that have an exact isoparametric inverse
// map for their element families instead of BoxPredicate's coarse test.
func (o *Facade) GetElementsWithPredicate(coords []float64, dim, n int, pic kdtree.PointInCell) []meshtraits.GlobalOrdinal {
	if o.index == nil {
		chk.Panic("rendezvous: GetElements called before a successful Build")
	}
	out := make([]meshtraits.GlobalOrdinal, n)
	for i := 0; i < n; i++ {
		p := rcb.Pad3(coords, dim, n, i)
		out[i] = o.index.FindPoint(p[:dim], pic)
	}
	return out
}
