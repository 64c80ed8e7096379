// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package comm wraps gosl/mpi into the "communicator handle supporting
// point-to-point and collective operations, a size, and a rank" that
// spec.md §6 requires as a construction input. gofem itself never wraps
// gosl/mpi this way — it calls the package-level mpi.Start/Stop/Rank/Size
// globals directly from fem/fem.go and main.go — so this module
// generalizes that global lifecycle into a passable object, the way
// spec.md §9 asks template-parameterized ownership to be re-expressed as
// an explicit capability.
package comm

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/mpi"
)

// Communicator is the collective/point-to-point handle the rendezvous is
// built against.
type Communicator interface {
	Rank() int
	Size() int

	// Barrier blocks until every rank in the communicator reaches it.
	Barrier()

	// AllReduceSumInt returns the sum of val across all ranks.
	AllReduceSumInt(val int) int

	// AllReduceMinFloat and AllReduceMaxFloat return the global min/max.
	AllReduceMinFloat(val float64) float64
	AllReduceMaxFloat(val float64) float64

	// AllReduceOrError returns a non-nil error on every rank iff any rank
	// passed a non-nil err (spec.md §7: collective failures are detected
	// collectively). The returned error's text is not guaranteed identical
	// across ranks, only its non-nilness.
	AllReduceOrError(err error) error

	// SendInt64/RecvInt64 and SendFloat64/RecvFloat64 are blocking
	// point-to-point operations, mirroring gosl/mpi.Communicator's typed
	// Send/Recv pair. RecvInt64/RecvFloat64 block until exactly n values
	// have arrived from src.
	SendInt64(dest int, vals []int64)
	RecvInt64(src int, n int) []int64
	SendFloat64(dest int, vals []float64)
	RecvFloat64(src int, n int) []float64

	// NewDistributor builds a fresh Distributor bound to this communicator.
	NewDistributor() (*Distributor, error)
}

// mpiCommunicator adapts gosl/mpi's process-global communicator to the
// Communicator interface. gosl/mpi exposes a single implicit
// MPI_COMM_WORLD-style communicator via package-level functions
// (mpi.Rank(), mpi.Size(), ...); WorldCommunicator is a thin handle over
// that global state, mirroring how fem/fem.go reads mpi.Rank()/mpi.Size()
// directly into o.Proc/o.Nproc.
type mpiCommunicator struct{}

// WorldCommunicator returns the communicator over all processes started by
// mpi.Start (gofem/main.go's lifecycle). Callers must have called
// mpi.Start before using it and mpi.Stop when done, exactly as
// gofem/main.go does.
func WorldCommunicator() Communicator {
	return mpiCommunicator{}
}

func (mpiCommunicator) Rank() int { return mpi.Rank() }
func (mpiCommunicator) Size() int { return mpi.Size() }

func (mpiCommunicator) Barrier() {
	// gosl/mpi's world communicator object; obtained lazily since it is
	// only valid after mpi.Start.
	mpi.NewCommunicator(nil).Barrier()
}

func (mpiCommunicator) AllReduceSumInt(val int) int {
	orig := []float64{float64(val)}
	dest := []float64{0}
	mpi.NewCommunicator(nil).AllReduceSum(dest, orig)
	return int(dest[0])
}

func (mpiCommunicator) AllReduceMinFloat(val float64) float64 {
	orig := []float64{val}
	dest := []float64{0}
	mpi.NewCommunicator(nil).AllReduceMin(dest, orig)
	return dest[0]
}

func (mpiCommunicator) AllReduceMaxFloat(val float64) float64 {
	orig := []float64{val}
	dest := []float64{0}
	mpi.NewCommunicator(nil).AllReduceMax(dest, orig)
	return dest[0]
}

func (o mpiCommunicator) AllReduceOrError(err error) error {
	flag := 0
	if err != nil {
		flag = 1
	}
	sum := o.AllReduceSumInt(flag)
	if sum > 0 {
		if err != nil {
			return err
		}
		return chk.Err("collective operation failed on another rank")
	}
	return nil
}

func (mpiCommunicator) SendInt64(dest int, vals []int64) {
	mpi.NewCommunicator(nil).SendI(vals, dest)
}

func (mpiCommunicator) RecvInt64(src int, n int) []int64 {
	vals := make([]int64, n)
	mpi.NewCommunicator(nil).RecvI(vals, src)
	return vals
}

func (mpiCommunicator) SendFloat64(dest int, vals []float64) {
	mpi.NewCommunicator(nil).Send(vals, dest)
}

func (mpiCommunicator) RecvFloat64(src int, n int) []float64 {
	vals := make([]float64, n)
	mpi.NewCommunicator(nil).Recv(vals, src)
	return vals
}

func (o mpiCommunicator) NewDistributor() (*Distributor, error) {
	return newMPIDistributor(o)
}
