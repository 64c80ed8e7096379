// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comm

import (
	"sync"

	"github.com/cpmech/gosl/chk"
)

// LoopbackGroup simulates a communicator of n cooperating ranks inside a
// single test process, each driven by its own goroutine. Real multi-rank
// behaviour (RCB median exchange, the import planner's two distributor
// rounds) cannot otherwise be exercised without an actual MPI runtime;
// this harness is new relative to the teacher — gofem's tests only ever
// run single-process — but it is the natural way to give spec.md §8's
// "two ranks", "four ranks" seed tests a collective implementation to run
// against in a Go test binary.
type LoopbackGroup struct {
	n       int
	inbox   []*rankInbox
	barrier *barrierState
}

type rankInbox struct {
	mu   sync.Mutex
	cond *sync.Cond
	i64  map[int][][]int64   // keyed by sender rank, FIFO queue
	f64  map[int][][]float64 // keyed by sender rank, FIFO queue
}

// barrierState is a generation-counted barrier: every rank submits its
// contribution for the current round; the last arrival computes the
// reduction, stores it, advances the round, and wakes everyone else, who
// then read the stored result.
type barrierState struct {
	mu      sync.Mutex
	cond    *sync.Cond
	round   int
	arrived int

	sumI int
	minF float64
	maxF float64

	lastSum int
	lastMin float64
	lastMax float64
}

// NewLoopbackGroup returns n Communicators, one per simulated rank, wired
// to exchange with each other. Each must be driven by exactly one
// goroutine, mirroring one MPI process each.
func NewLoopbackGroup(n int) []Communicator {
	g := &LoopbackGroup{n: n, inbox: make([]*rankInbox, n)}
	for r := 0; r < n; r++ {
		ib := &rankInbox{i64: make(map[int][][]int64), f64: make(map[int][][]float64)}
		ib.cond = sync.NewCond(&ib.mu)
		g.inbox[r] = ib
	}
	g.barrier = &barrierState{}
	g.barrier.cond = sync.NewCond(&g.barrier.mu)

	comms := make([]Communicator, n)
	for r := 0; r < n; r++ {
		comms[r] = &loopbackCommunicator{group: g, rank: r}
	}
	return comms
}

type loopbackCommunicator struct {
	group *LoopbackGroup
	rank  int
}

func (o *loopbackCommunicator) Rank() int { return o.rank }
func (o *loopbackCommunicator) Size() int { return o.group.n }

func (o *loopbackCommunicator) Barrier() {
	o.allReduceSumInt(0)
}

func (o *loopbackCommunicator) AllReduceSumInt(val int) int {
	return o.allReduceSumInt(val)
}

func (o *loopbackCommunicator) AllReduceMinFloat(val float64) float64 {
	mn, _ := o.allReduceMinMax(val)
	return mn
}

func (o *loopbackCommunicator) AllReduceMaxFloat(val float64) float64 {
	_, mx := o.allReduceMinMax(val)
	return mx
}

func (o *loopbackCommunicator) AllReduceOrError(err error) error {
	flag := 0
	if err != nil {
		flag = 1
	}
	sum := o.allReduceSumInt(flag)
	if sum > 0 {
		if err != nil {
			return err
		}
		return chk.Err("collective operation failed on another rank")
	}
	return nil
}

func (o *loopbackCommunicator) allReduceSumInt(contrib int) int {
	b := o.group.barrier
	b.mu.Lock()
	defer b.mu.Unlock()
	myRound := b.round
	b.sumI += contrib
	b.arrived++
	if b.arrived == o.group.n {
		b.lastSum = b.sumI
		b.sumI = 0
		b.arrived = 0
		b.round++
		b.cond.Broadcast()
		return b.lastSum
	}
	for b.round == myRound {
		b.cond.Wait()
	}
	return b.lastSum
}

func (o *loopbackCommunicator) allReduceMinMax(val float64) (mn, mx float64) {
	b := o.group.barrier
	b.mu.Lock()
	defer b.mu.Unlock()
	myRound := b.round
	if b.arrived == 0 {
		b.minF, b.maxF = val, val
	} else {
		if val < b.minF {
			b.minF = val
		}
		if val > b.maxF {
			b.maxF = val
		}
	}
	b.arrived++
	if b.arrived == o.group.n {
		b.lastMin, b.lastMax = b.minF, b.maxF
		b.arrived = 0
		b.round++
		b.cond.Broadcast()
		return b.lastMin, b.lastMax
	}
	for b.round == myRound {
		b.cond.Wait()
	}
	return b.lastMin, b.lastMax
}

func (o *loopbackCommunicator) SendInt64(dest int, vals []int64) {
	cp := append([]int64(nil), vals...)
	ib := o.group.inbox[dest]
	ib.mu.Lock()
	ib.i64[o.rank] = append(ib.i64[o.rank], cp)
	ib.cond.Broadcast()
	ib.mu.Unlock()
}

func (o *loopbackCommunicator) RecvInt64(src int, n int) []int64 {
	ib := o.group.inbox[o.rank]
	ib.mu.Lock()
	for len(ib.i64[src]) == 0 {
		ib.cond.Wait()
	}
	msg := ib.i64[src][0]
	ib.i64[src] = ib.i64[src][1:]
	ib.mu.Unlock()
	if len(msg) != n {
		out := make([]int64, n)
		copy(out, msg)
		return out
	}
	return msg
}

func (o *loopbackCommunicator) SendFloat64(dest int, vals []float64) {
	cp := append([]float64(nil), vals...)
	ib := o.group.inbox[dest]
	ib.mu.Lock()
	ib.f64[o.rank] = append(ib.f64[o.rank], cp)
	ib.cond.Broadcast()
	ib.mu.Unlock()
}

func (o *loopbackCommunicator) RecvFloat64(src int, n int) []float64 {
	ib := o.group.inbox[o.rank]
	ib.mu.Lock()
	for len(ib.f64[src]) == 0 {
		ib.cond.Wait()
	}
	msg := ib.f64[src][0]
	ib.f64[src] = ib.f64[src][1:]
	ib.mu.Unlock()
	if len(msg) != n {
		out := make([]float64, n)
		copy(out, msg)
		return out
	}
	return msg
}

func (o *loopbackCommunicator) NewDistributor() (*Distributor, error) {
	return newMPIDistributor(o)
}
