// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xmpi layers the typed collectives, chunked reductions,
// all-to-all-v exchange and stopwatch this module needs on top of
// github.com/cpmech/gosl/mpi, the same package gofem's fem.Domain and
// fem.FEM use for their own (much smaller) "am I rank 0" / AllReduceSum
// needs. gosl/mpi exposes only Start/Stop/IsOn/Rank/Size/Bcast and the
// AllReduce family; it has no native all-to-all-v, so this package
// builds one out of per-rank broadcast rounds over Bcast (see
// AllToAllV below and DESIGN.md).
package xmpi

import (
	"github.com/cpmech/gosl/mpi"

	"github.com/cpmech/goref/status"
)

// chunkLimit bounds how many float64/int64 values are reduced or
// broadcast in a single collective call. Above this, Comm splits the
// payload into sequential chunks, matching spec.md's "chunked
// automatically when ldim*total exceeds INT_MAX" rule, scaled down to a
// size that is easy to exercise in tests.
const chunkLimit = 1 << 20

// Comm is the typed collective wrapper used by every parallel component
// in this module (node table ghost exchange, edge index ghost
// exchange, partitioner, migration).
type Comm struct{}

// World is the single communicator this SPMD program ever uses; there
// is no sub-communicator support, matching spec.md §9's "no global
// state except the MPI world handle".
var World = &Comm{}

// Start boots the MPI runtime. Call once at process startup, the way
// gofem's main.go calls mpi.Start(false) before anything else runs.
func Start() { mpi.Start(false) }

// Stop shuts the MPI runtime down. Call once, deferred from main, the
// way gofem's main.go defers mpi.Stop(false).
func Stop() { mpi.Stop(false) }

// IsOn reports whether MPI was actually started (vs. a serial run).
func (c *Comm) IsOn() bool { return mpi.IsOn() }

// Rank returns this process's rank, or 0 when MPI is not running.
func (c *Comm) Rank() int {
	if !mpi.IsOn() {
		return 0
	}
	return mpi.Rank()
}

// Size returns the world size, or 1 when MPI is not running.
func (c *Comm) Size() int {
	if !mpi.IsOn() {
		return 1
	}
	return mpi.Size()
}

// Barrier blocks until every rank has entered it, the de-facto
// synchronization point after each operator pass.
func (c *Comm) Barrier() {
	if !mpi.IsOn() {
		return
	}
	mpi.Barrier()
}

// BcastFloats broadcasts buf from root to every rank, chunked when it
// exceeds chunkLimit.
func (c *Comm) BcastFloats(buf []float64, root int) {
	if !mpi.IsOn() || c.Size() < 2 {
		return
	}
	for lo := 0; lo < len(buf); lo += chunkLimit {
		hi := lo + chunkLimit
		if hi > len(buf) {
			hi = len(buf)
		}
		mpi.Bcast(buf[lo:hi], root)
	}
}

// AllReduceSumFloats sums orig element-wise across all ranks into dest,
// chunked when the payload is large.
func (c *Comm) AllReduceSumFloats(dest, orig []float64) {
	if !mpi.IsOn() || c.Size() < 2 {
		copy(dest, orig)
		return
	}
	for lo := 0; lo < len(orig); lo += chunkLimit {
		hi := lo + chunkLimit
		if hi > len(orig) {
			hi = len(orig)
		}
		mpi.AllReduceSum(dest[lo:hi], orig[lo:hi])
	}
}

// AllReduceMinInt returns the minimum of v across all ranks.
func (c *Comm) AllReduceMinInt(v int) int {
	if !mpi.IsOn() || c.Size() < 2 {
		return v
	}
	orig := []float64{float64(v)}
	dest := make([]float64, 1)
	mpi.AllReduceMin(dest, orig)
	return int(dest[0])
}

// AllReduceMaxInt returns the maximum of v across all ranks.
func (c *Comm) AllReduceMaxInt(v int) int {
	if !mpi.IsOn() || c.Size() < 2 {
		return v
	}
	orig := []float64{float64(v)}
	dest := make([]float64, 1)
	mpi.AllReduceMax(dest, orig)
	return int(dest[0])
}

// AllReduceSumInt sums v across all ranks.
func (c *Comm) AllReduceSumInt(v int) int {
	if !mpi.IsOn() || c.Size() < 2 {
		return v
	}
	orig := []float64{float64(v)}
	dest := make([]float64, 1)
	mpi.AllReduceSum(dest, orig)
	return int(dest[0])
}

// AllGatherInts gathers one int per rank into a Size()-length slice,
// the building block for "how many new globals did each lower rank
// allocate" in NodeTable.SynchronizeGlobals.
func (c *Comm) AllGatherInts(v int) []int {
	n := c.Size()
	out := make([]int, n)
	if !mpi.IsOn() || n < 2 {
		out[0] = v
		return out
	}
	for root := 0; root < n; root++ {
		buf := []float64{float64(v)}
		c.BcastFloats(buf, root)
		out[root] = int(buf[0])
	}
	return out
}

// Payload is one rank's contribution to, or share of, an all-to-all-v
// exchange: a flat slice of per-item values plus the item count bound
// for each peer (Counts[peer] items belong to peer, in send order /
// receive order respectively).
type Payload struct {
	Counts []int
	Data   []float64
}

// AllToAllV exchanges per-peer variable-length float64 payloads: each
// rank contributes send[peer] (one Payload segment per destination
// rank, send[r].Counts/Data describing what rank r is sending to every
// peer) and receives back, for each peer, the slice that peer sent to
// it. gosl/mpi (as used throughout gofem) exposes Bcast and the
// AllReduce family but no native alltoallv, so this builds the
// exchange out of Size() broadcast rounds: round r broadcasts rank r's
// full send table, and every other rank slices out the segment
// addressed to itself. This trades bandwidth (O(nproc) broadcast of
// the whole table) for not needing an unconfirmed point-to-point API;
// see DESIGN.md.
func (c *Comm) AllToAllV(send []Payload) ([]float64, error) {
	perPeer, err := c.AllToAllVPerPeer(send)
	if err != nil {
		return nil, err
	}
	recv := make([]float64, 0)
	for _, seg := range perPeer {
		recv = append(recv, seg...)
	}
	return recv, nil
}

// AllToAllVPerPeer is AllToAllV but keeps every source rank's
// contribution separate instead of flattening them into one recv
// slice (recv[r] is what rank r sent to me), the shape a two-phase
// request/response protocol needs to pair a reply with the rank that
// asked for it — e.g. NodeTable.GhostReal's "ask the owner for these
// globals, owner replies with their data" exchange.
func (c *Comm) AllToAllVPerPeer(send []Payload) ([][]float64, error) {
	n := c.Size()
	if len(send) != n {
		return nil, status.Errf(status.Invalid, "xmpi.AllToAllVPerPeer", "send table must have Size()=%d entries, got %d", n, len(send))
	}
	me := c.Rank()
	recv := make([][]float64, n)
	for root := 0; root < n; root++ {
		counts := make([]int, n)
		if root == me {
			copy(counts, send[root].Counts)
		}
		countsF := make([]float64, n)
		for i, v := range counts {
			countsF[i] = float64(v)
		}
		c.BcastFloats(countsF, root)

		total := 0
		offsetForMe := 0
		for i, v := range countsF {
			cnt := int(v)
			if i < me {
				offsetForMe += cnt
			}
			total += cnt
		}

		data := make([]float64, total)
		if root == me {
			copy(data, send[root].Data)
		}
		c.BcastFloats(data, root)

		myCount := int(countsF[me])
		recv[root] = append([]float64(nil), data[offsetForMe:offsetForMe+myCount]...)
	}
	return recv, nil
}

// Stopwatch is the single process-wide timer referenced by spec.md §9's
// "global state" note: one start/stop pair around the program, plus
// ad-hoc laps around operator passes.
type Stopwatch struct {
	running bool
	started int64
	elapsed int64
	nowFn   func() int64
}

// NewStopwatch creates a Stopwatch driven by nowFn (a monotonic-clock
// reader); production code passes time-based nanoseconds, tests pass a
// deterministic fake.
func NewStopwatch(nowFn func() int64) *Stopwatch {
	return &Stopwatch{nowFn: nowFn}
}

// Start begins timing; a no-op if already running.
func (s *Stopwatch) Start() {
	if s.running {
		return
	}
	s.running = true
	s.started = s.nowFn()
}

// Stop ends timing and accumulates the elapsed duration.
func (s *Stopwatch) Stop() {
	if !s.running {
		return
	}
	s.elapsed += s.nowFn() - s.started
	s.running = false
}

// Elapsed returns the total accumulated nanoseconds across every
// Start/Stop pair so far.
func (s *Stopwatch) Elapsed() int64 { return s.elapsed }
