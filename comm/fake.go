// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comm

import "github.com/cpmech/gosl/chk"

// FakeCommunicator is a single-process loopback Communicator: rank 0 of
// size 1. It lets every package above comm be exercised without MPI
// present, the same way gofem's non-distributed code path (!o.Distr in
// fem/domain.go) already runs a whole simulation on one process without
// touching gosl/mpi.
type FakeCommunicator struct{}

func (FakeCommunicator) Rank() int { return 0 }
func (FakeCommunicator) Size() int { return 1 }

func (FakeCommunicator) Barrier() {}

func (FakeCommunicator) AllReduceSumInt(val int) int        { return val }
func (FakeCommunicator) AllReduceMinFloat(val float64) float64 { return val }
func (FakeCommunicator) AllReduceMaxFloat(val float64) float64 { return val }

func (FakeCommunicator) AllReduceOrError(err error) error { return err }

func (FakeCommunicator) SendInt64(dest int, vals []int64) {
	chk.Panic("FakeCommunicator has a single rank; SendInt64 should never be called")
}

func (FakeCommunicator) RecvInt64(src int, n int) []int64 {
	chk.Panic("FakeCommunicator has a single rank; RecvInt64 should never be called")
	return nil
}

func (FakeCommunicator) SendFloat64(dest int, vals []float64) {
	chk.Panic("FakeCommunicator has a single rank; SendFloat64 should never be called")
}

func (FakeCommunicator) RecvFloat64(src int, n int) []float64 {
	chk.Panic("FakeCommunicator has a single rank; RecvFloat64 should never be called")
	return nil
}

func (o FakeCommunicator) NewDistributor() (*Distributor, error) {
	return newMPIDistributor(o)
}
