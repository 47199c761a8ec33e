// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adapt

import (
	"github.com/cpmech/goref/edgeidx"
	"github.com/cpmech/goref/meshmodel"
	"github.com/cpmech/goref/metric"
	"github.com/cpmech/goref/status"
	"github.com/cpmech/goref/xmpi"
)

// PassCounts reports how many operations each stage of one outer-loop
// pass performed, the per-pass bookkeeping spec.md §7's "halt after
// two no-op passes" rule is built on.
type PassCounts struct {
	Collapsed int
	Split     int
	Swapped   int
	Smoothed  int
}

// swapSameNormalTol is the minimum cosine between the two triangles'
// normals that the driver lets SwapSurface accept (about 0.01 degrees).
const swapSameNormalTol = 1.0 - 1.0e-8

// Total is the sum of every operator's hit count this pass; a pass
// with Total()==0 is a no-op pass for the halt rule.
func (c PassCounts) Total() int { return c.Collapsed + c.Split + c.Swapped + c.Smoothed }

// Driver runs the collapse/split/swap/smooth outer loop of spec.md §7
// ("Adapt driver" table): collapse toward the target edge length,
// split toward it from the other side, swap for topology, smooth for
// shape, repeat, with a fixed iteration budget and a halt once two
// consecutive passes make no changes at all.
type Driver struct {
	Grid  *meshmodel.Grid
	Edges *edgeidx.Index
	Comm  *xmpi.Comm
	Rank  int
	P     Params

	MaxPasses int
}

// NewDriver wires a Driver over an already-populated grid and edge
// index, owned by rank, using p for every operator's gating thresholds
// and comm for the end-of-pass ghost-refresh/global-renumbering
// collectives spec.md §4.1/§5 require.
func NewDriver(g *meshmodel.Grid, idx *edgeidx.Index, comm *xmpi.Comm, rank int, p Params) *Driver {
	return &Driver{Grid: g, Edges: idx, Comm: comm, Rank: rank, P: p, MaxPasses: 10}
}

// Run executes passes until MaxPasses is reached or two consecutive
// no-op passes occur, returning the per-pass history.
func (d *Driver) Run() ([]PassCounts, error) {
	var history []PassCounts
	noOpStreak := 0
	for pass := 0; pass < d.MaxPasses; pass++ {
		counts, err := d.onePass()
		if err != nil {
			return history, status.Errf(status.Failure, "adapt.Driver.Run", "pass %d: %v", pass, err)
		}
		if err := d.syncAfterPass(); err != nil {
			return history, status.Errf(status.Failure, "adapt.Driver.Run", "pass %d sync: %v", pass, err)
		}
		history = append(history, counts)
		if counts.Total() == 0 {
			noOpStreak++
			if noOpStreak >= 2 {
				break
			}
		} else {
			noOpStreak = 0
		}
	}
	return history, nil
}

// syncAfterPass is the collective de-facto synchronization point
// spec.md §5 requires at the end of every barrier-free operator pass:
// a ghost_real refresh so every rank's ghost copies of nodes smoothed,
// split, or collapsed elsewhere this pass see the new coordinates and
// metric, followed by synchronize_globals (spec.md §4.1) to eliminate
// the globals freed by this pass's collapses and keep the id space
// dense before the next pass mints new ones during split. A nil Comm
// (single-rank use, e.g. the unit tests) is a no-op.
func (d *Driver) syncAfterPass() error {
	if d.Comm == nil {
		return nil
	}
	if err := d.Grid.Nodes.GhostReal(d.Comm); err != nil {
		return status.Errf(status.Failure, "adapt.Driver.syncAfterPass", "ghost_real: %v", err)
	}
	if err := d.Grid.Nodes.SynchronizeGlobals(d.Comm); err != nil {
		return status.Errf(status.Failure, "adapt.Driver.syncAfterPass", "synchronize_globals: %v", err)
	}
	d.Grid.Nodes.SynchronizeNextGlobal(d.Comm)
	return nil
}

// onePass runs one collapse -> split -> swap -> smooth sweep over
// every edge/node currently indexed.
func (d *Driver) onePass() (PassCounts, error) {
	var counts PassCounts
	d.Edges.UnlockAll()

	collapseCandidates := d.edgePairs()
	for _, e := range collapseCandidates {
		if !d.Grid.Nodes.IsLive(e[0]) || !d.Grid.Nodes.IsLive(e[1]) {
			continue
		}
		if d.Edges.Locked(d.handleOrZero(e)) {
			continue
		}
		if ratioOf(d.Grid.Nodes, e[0], e[1]) >= d.P.CollapseRatioLimit {
			continue
		}
		did, err := CollapseEdge(d.Grid, d.Edges, e[0], e[1], d.Rank, d.P)
		if err != nil {
			return counts, err
		}
		if did {
			counts.Collapsed++
		}
	}

	splitCandidates := d.edgePairsByDescendingRatio()
	for _, e := range splitCandidates {
		if !d.Grid.Nodes.IsLive(e[0]) || !d.Grid.Nodes.IsLive(e[1]) {
			continue
		}
		h := d.handleOrZero(e)
		if d.Edges.Locked(h) {
			continue
		}
		_, did, err := SplitEdge(d.Grid, d.Edges, e[0], e[1], d.Rank, d.P)
		if err != nil {
			return counts, err
		}
		if did {
			counts.Split++
			d.Edges.Lock(h)
		}
	}

	swapCandidates := d.edgePairs()
	for _, e := range swapCandidates {
		if !d.Grid.Nodes.IsLive(e[0]) || !d.Grid.Nodes.IsLive(e[1]) {
			continue
		}
		if d.Edges.Locked(d.handleOrZero(e)) {
			continue
		}
		didSurface, err := SwapSurface(d.Grid, e[0], e[1], d.Rank, swapSameNormalTol)
		if err != nil {
			return counts, err
		}
		if didSurface {
			counts.Swapped++
			continue
		}
		didVolume, err := SwapVolume(d.Grid, e[0], e[1], d.Rank, d.P.SwapQualityImprove)
		if err != nil {
			return counts, err
		}
		if didVolume {
			counts.Swapped++
		}
	}

	for local := 0; local < d.Grid.Nodes.NLocal(); local++ {
		if !d.Grid.Nodes.IsLive(local) {
			continue
		}
		did, err := SmoothNode(d.Grid, local, d.Rank, d.P)
		if err != nil {
			return counts, err
		}
		if did {
			counts.Smoothed++
		}
	}

	return counts, nil
}

// edgePairs enumerates every currently-live edge as a (n0,n1) node
// pair by walking the node table and each node's Around() ring,
// de-duplicating the unordered pair.
func (d *Driver) edgePairs() [][2]int {
	var out [][2]int
	for n0 := 0; n0 < d.Grid.Nodes.NLocal(); n0++ {
		if !d.Grid.Nodes.IsLive(n0) {
			continue
		}
		around, err := d.Edges.Around(n0)
		if err != nil {
			continue
		}
		for _, n1 := range around {
			if n1 > n0 {
				out = append(out, [2]int{n0, n1})
			}
		}
	}
	return out
}

// edgePairsByDescendingRatio sorts edgePairs by metric-space ratio,
// longest first, per spec.md §4.5 "Ordering: in a pass, edges are
// visited in descending ratio".
func (d *Driver) edgePairsByDescendingRatio() [][2]int {
	pairs := d.edgePairs()
	ratios := make([]float64, len(pairs))
	nt := d.Grid.Nodes
	for i, e := range pairs {
		ratios[i] = ratioOf(nt, e[0], e[1])
	}
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && ratios[j] > ratios[j-1]; j-- {
			ratios[j], ratios[j-1] = ratios[j-1], ratios[j]
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}
	return pairs
}

func ratioOf(nt *meshmodel.NodeTable, n0, n1 int) float64 {
	return metric.Ratio(nt.Metric(n0), nt.Metric(n1), toVec(nt.XYZ(n0)), toVec(nt.XYZ(n1)))
}

// handleOrZero looks up an edge's lock handle, returning an impossible
// handle (so Locked reports false) if the edge is not indexed, which
// should not happen for a pair freshly returned by edgePairs.
func (d *Driver) handleOrZero(e [2]int) int32 {
	h, err := d.Edges.Edge(e[0], e[1])
	if err != nil {
		return -1
	}
	return h
}
