// Copyright 2016 The Rzvs Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package comm

import (
	"sort"

	"github.com/cpmech/gosl/chk"
)

// Distributor is the all-to-all communication primitive of spec.md §4.4
// (the glossary's "Distributor"): built once from a per-item destination
// rank list, it can then ship any number of aligned payload arrays (ids,
// then coordinates, then connectivity) using the same plan, per §4.4
// phase 5's "using the resulting export_*_map → import_*_map maps, move
// coordinates ... using the same communication plan."
type Distributor struct {
	comm Communicator

	// send-side plan: items are grouped by destination rank, preserving
	// the caller's original per-item order within each destination group
	destOrder []int // permutation: destOrder[k] = original index of the k-th item to send, grouped by rank
	sendTo    []int // ranks in send order, one per group boundary
	sendCount []int // count per send group, aligned with sendTo

	// recv-side plan, discovered during Plan()
	recvFrom  []int // ranks we will receive from, ascending
	recvCount []int // count per recvFrom entry
	nrecv     int   // total items received
}

func newMPIDistributor(c Communicator) (*Distributor, error) {
	return &Distributor{comm: c}, nil
}

// Plan establishes the communication pattern: item i (0-indexed, len(dest)
// items) is destined for rank dest[i]. It performs one round of
// count-exchange so every rank learns how many items it will receive and
// from which ranks (spec.md §4.4 "hand them to a distributor primitive
// that performs an all-to-all").
//
// A destination rank out of [0,size) is a purely local, per-rank
// validation failure (spec.md §7): every caller must route Plan's error
// through Communicator.AllReduceOrError before any further collective
// call, the same way Facade.Build and planner.Plan do at their own phase
// boundaries, since a rank that returns here never reaches the
// count-exchange loop below and would otherwise leave its peers blocked
// in it.
func (o *Distributor) Plan(dest []int) error {
	size := o.comm.Size()
	rank := o.comm.Rank()

	// group local item indices by destination rank
	byRank := make([][]int, size)
	for i, r := range dest {
		if r < 0 || r >= size {
			return chk.Err("distributor: destination rank %d out of range [0,%d)", r, size)
		}
		byRank[r] = append(byRank[r], i)
	}

	o.destOrder = o.destOrder[:0]
	o.sendTo = o.sendTo[:0]
	o.sendCount = o.sendCount[:0]
	for r := 0; r < size; r++ {
		if len(byRank[r]) == 0 {
			continue
		}
		o.sendTo = append(o.sendTo, r)
		o.sendCount = append(o.sendCount, len(byRank[r]))
		o.destOrder = append(o.destOrder, byRank[r]...)
	}

	// exchange send counts so every rank knows how much it will receive
	// and from whom: rank r tells every other rank how many items are
	// headed its way (a dense size×size exchange; acceptable at rendezvous
	// build time, not a hot per-iteration path). Ordered by rank parity
	// (lower rank sends first, higher rank receives first) so that two
	// ranks exchanging with each other never both block on a synchronous
	// send waiting for the other's unposted receive.
	sendCountByRank := make([]int64, size)
	for k, r := range o.sendTo {
		sendCountByRank[r] = int64(o.sendCount[k])
	}
	recvCountByRank := make([]int64, size)
	for r := 0; r < size; r++ {
		if r == rank {
			recvCountByRank[r] = sendCountByRank[r]
			continue
		}
		if rank < r {
			o.comm.SendInt64(r, []int64{sendCountByRank[r]})
			recvCountByRank[r] = o.comm.RecvInt64(r, 1)[0]
		} else {
			recvCountByRank[r] = o.comm.RecvInt64(r, 1)[0]
			o.comm.SendInt64(r, []int64{sendCountByRank[r]})
		}
	}

	o.recvFrom = o.recvFrom[:0]
	o.recvCount = o.recvCount[:0]
	o.nrecv = 0
	for r := 0; r < size; r++ {
		if recvCountByRank[r] == 0 {
			continue
		}
		o.recvFrom = append(o.recvFrom, r)
		o.recvCount = append(o.recvCount, int(recvCountByRank[r]))
		o.nrecv += int(recvCountByRank[r])
	}
	return nil
}

// NumReceived returns the number of items this rank receives under the
// last Plan.
func (o *Distributor) NumReceived() int { return o.nrecv }

// peers returns the sorted, deduplicated set of ranks (excluding self)
// this distributor must either send to or receive from: the order every
// rank-parity exchange below walks in lockstep.
func (o *Distributor) peers(self int) []int {
	set := make(map[int]bool, len(o.sendTo)+len(o.recvFrom))
	for _, r := range o.sendTo {
		if r != self {
			set[r] = true
		}
	}
	for _, r := range o.recvFrom {
		if r != self {
			set[r] = true
		}
	}
	out := make([]int, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

// ExchangeInt64 ships values (one int64 per item, aligned with the dest
// slice passed to Plan) and returns the concatenated values received, in
// ascending sender-rank order.
func (o *Distributor) ExchangeInt64(values []int64) ([]int64, error) {
	return o.exchangeInt64(values, 1)
}

// ExchangeInt64Blocks ships block-sized int64 groups per item (e.g. a
// fixed nodes-per-element connectivity tuple) using the plan built by the
// most recent Plan call over the same item ordering.
func (o *Distributor) ExchangeInt64Blocks(values []int64, block int) ([]int64, error) {
	return o.exchangeInt64(values, block)
}

func (o *Distributor) exchangeInt64(values []int64, block int) ([]int64, error) {
	rank := o.comm.Rank()

	// reorder values into send groups
	ordered := make([]int64, len(o.destOrder)*block)
	for k, idx := range o.destOrder {
		copy(ordered[k*block:(k+1)*block], values[idx*block:(idx+1)*block])
	}

	sendChunk := make(map[int][]int64, len(o.sendTo))
	var selfChunk []int64
	off := 0
	for k, r := range o.sendTo {
		n := o.sendCount[k] * block
		chunk := ordered[off : off+n]
		off += n
		if r == rank {
			selfChunk = chunk
			continue
		}
		sendChunk[r] = chunk
	}

	recvSize := make(map[int]int, len(o.recvFrom))
	for k, r := range o.recvFrom {
		if r != rank {
			recvSize[r] = o.recvCount[k] * block
		}
	}

	// rank-parity exchange (see Plan): for every peer, whichever rank is
	// lower sends first, the higher one receives first, so a rank that
	// both sends to and receives from the same peer never deadlocks a
	// blocking transport against that peer's matching call.
	recvChunk := make(map[int][]int64, len(recvSize))
	for _, r := range o.peers(rank) {
		sc, hasSend := sendChunk[r]
		n, hasRecv := recvSize[r]
		if rank < r {
			if hasSend {
				o.comm.SendInt64(r, sc)
			}
			if hasRecv {
				recvChunk[r] = o.comm.RecvInt64(r, n)
			}
		} else {
			if hasRecv {
				recvChunk[r] = o.comm.RecvInt64(r, n)
			}
			if hasSend {
				o.comm.SendInt64(r, sc)
			}
		}
	}

	// assemble result, preserving ascending sender-rank order
	result := make([]int64, o.nrecv*block)
	off = 0
	for k, r := range o.recvFrom {
		n := o.recvCount[k] * block
		if r == rank {
			copy(result[off:off+n], selfChunk)
		} else {
			copy(result[off:off+n], recvChunk[r])
		}
		off += n
	}
	return result, nil
}

// ExchangeFloat64Blocks ships block-sized float64 groups per item (e.g. a
// node's d coordinates, or an element's nodes-per-element connectivity
// already converted to float64), using the same plan as the most recent
// Plan call.
func (o *Distributor) ExchangeFloat64Blocks(values []float64, block int) ([]float64, error) {
	rank := o.comm.Rank()

	ordered := make([]float64, len(o.destOrder)*block)
	for k, idx := range o.destOrder {
		copy(ordered[k*block:(k+1)*block], values[idx*block:(idx+1)*block])
	}

	sendChunk := make(map[int][]float64, len(o.sendTo))
	var selfChunk []float64
	off := 0
	for k, r := range o.sendTo {
		n := o.sendCount[k] * block
		chunk := ordered[off : off+n]
		off += n
		if r == rank {
			selfChunk = chunk
			continue
		}
		sendChunk[r] = chunk
	}

	recvSize := make(map[int]int, len(o.recvFrom))
	for k, r := range o.recvFrom {
		if r != rank {
			recvSize[r] = o.recvCount[k] * block
		}
	}

	recvChunk := make(map[int][]float64, len(recvSize))
	for _, r := range o.peers(rank) {
		sc, hasSend := sendChunk[r]
		n, hasRecv := recvSize[r]
		if rank < r {
			if hasSend {
				o.comm.SendFloat64(r, sc)
			}
			if hasRecv {
				recvChunk[r] = o.comm.RecvFloat64(r, n)
			}
		} else {
			if hasRecv {
				recvChunk[r] = o.comm.RecvFloat64(r, n)
			}
			if hasSend {
				o.comm.SendFloat64(r, sc)
			}
		}
	}

	result := make([]float64, o.nrecv*block)
	off = 0
	for k, r := range o.recvFrom {
		n := o.recvCount[k] * block
		if r == rank {
			copy(result[off:off+n], selfChunk)
		} else {
			copy(result[off:off+n], recvChunk[r])
		}
		off += n
	}
	return result, nil
}
