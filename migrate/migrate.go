// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package migrate ships nodes and cells between ranks once the
// partitioner has decided a new owner per node, implementing spec.md
// §4.8's four migration steps. It reuses meshmodel.NodeTable's
// dedup-add (AddMany) and ghost-refresh (GhostReal) machinery the way
// the node table's own doc comments anticipate, and xmpi.Comm's
// all-to-all-v for the two collective rounds (node shipping, cell
// shipping) the step list calls for.
package migrate

import (
	"github.com/cpmech/goref/meshmodel"
	"github.com/cpmech/goref/status"
	"github.com/cpmech/goref/xmpi"
)

// Result reports what one migration pass moved, the counters an
// adapt driver logs alongside its own per-pass operator counts.
type Result struct {
	NodesSent    int
	NodesRecv    int
	CellsSent    int
	CellsRecv    int
	NodesDropped int
	CellsDropped int
}

// Migrate carries out spec.md §4.8's four steps against g, using
// newOwner to look up every node's post-partition owning rank by
// global id (nodes absent from newOwner keep their current owner).
// A failed collective aborts the whole pass and returns its error
// untouched, per spec.md §4.8 "Ordering and atomicity"; the caller is
// expected to treat that as a failed pass the way any other operator
// failure is treated, since additions made before the failure are
// idempotent on globals and safe to retry.
func Migrate(g *meshmodel.Grid, comm *xmpi.Comm, newOwner map[int64]int) (Result, error) {
	var res Result
	rank := comm.Rank()
	n := comm.Size()

	ownerOf := func(global int64, fallback int) int {
		if o, ok := newOwner[global]; ok {
			return o
		}
		return fallback
	}

	// Step 1: ship every locally-owned node moving to a new rank.
	nodeSend := make([]xmpi.Payload, n)
	mine := xmpi.Payload{Counts: make([]int, n)}
	nt := g.Nodes
	for local := 0; local < nt.NLocal(); local++ {
		if !nt.IsLive(local) || nt.IsGhost(local) {
			continue
		}
		global := nt.Global(local)
		dest := ownerOf(global, rank)
		if dest == rank {
			continue
		}
		xyz := nt.XYZ(local)
		m := nt.Metric(local)
		mine.Counts[dest] += 10
		mine.Data = append(mine.Data, float64(global), xyz[0], xyz[1], xyz[2], m[0], m[1], m[2], m[3], m[4], m[5], float64(dest))
		res.NodesSent++
	}
	// mine.Data is naturally grouped by destination only if appended
	// in destination order; re-sort it that way before handing it to
	// AllToAllV, which expects Data ordered "peer0 records, peer1
	// records, ...".
	mine = regroupByDest(mine, n, 11)
	nodeSend[rank] = mine

	recvNodes, err := comm.AllToAllVPerPeer(nodeSend)
	if err != nil {
		return res, status.Errf(status.Failure, "migrate.Migrate", "node exchange: %v", err)
	}

	var records []meshmodel.NodeRecord
	for _, seg := range recvNodes {
		for off := 0; off+10 <= len(seg); off += 10 {
			records = append(records, meshmodel.NodeRecord{
				Global: int64(seg[off]),
				XYZ:    [3]float64{seg[off+1], seg[off+2], seg[off+3]},
				M:      [6]float64{seg[off+4], seg[off+5], seg[off+6], seg[off+7], seg[off+8], seg[off+9]},
				Owner:  rank,
			})
			res.NodesRecv++
		}
	}
	if _, err := nt.AddMany(records); err != nil {
		return res, status.Errf(status.Failure, "migrate.Migrate", "AddMany nodes: %v", err)
	}
	// Any node this rank already held whose new owner is elsewhere
	// gives up ownership locally; any node it just received becomes
	// locally owned (AddMany already stamped Owner on new inserts, but
	// duplicates need their owner flipped explicitly).
	for local := 0; local < nt.NLocal(); local++ {
		if !nt.IsLive(local) {
			continue
		}
		dest := ownerOf(nt.Global(local), nt.Owner(local))
		nt.SetOwner(local, dest)
	}

	// Step 2: ship every local cell to every rank that will own any of
	// its corner nodes.
	for _, kind := range g.Kinds() {
		ct := g.Cells(kind)
		width := kind.NodesPerCell()
		cellSend := make([]xmpi.Payload, n)
		mineCells := xmpi.Payload{}
		counts := make([]int, n)
		byDest := make([][]float64, n)
		for local := 0; local < ct.NLocal(); local++ {
			if !ct.IsLive(local) || ct.IsGhost(local) {
				continue
			}
			nodes := ct.Nodes(local)
			dests := map[int]bool{}
			rec := make([]float64, 1+width)
			rec[0] = float64(ct.Global(local))
			ok := true
			for i, ln := range nodes {
				if !nt.IsLive(ln) {
					ok = false
					break
				}
				g := nt.Global(ln)
				rec[1+i] = float64(g)
				dests[ownerOf(g, nt.Owner(ln))] = true
			}
			if !ok {
				continue
			}
			for d := range dests {
				byDest[d] = append(byDest[d], rec...)
				counts[d] += len(rec)
				res.CellsSent++
			}
		}
		for d := 0; d < n; d++ {
			mineCells.Data = append(mineCells.Data, byDest[d]...)
		}
		mineCells.Counts = counts
		cellSend[rank] = mineCells

		recvCells, err := comm.AllToAllVPerPeer(cellSend)
		if err != nil {
			return res, status.Errf(status.Failure, "migrate.Migrate", "%s cell exchange: %v", kind, err)
		}
		for _, seg := range recvCells {
			stride := 1 + width
			for off := 0; off+stride <= len(seg); off += stride {
				global := int64(seg[off])
				if _, ok := ct.Local(global); ok {
					continue
				}
				locals := make([]int, width)
				anyMissing := false
				for i := 0; i < width; i++ {
					ln, ok := nt.Local(int64(seg[off+1+i]))
					if !ok {
						anyMissing = true
						break
					}
					locals[i] = ln
				}
				if anyMissing {
					continue
				}
				if _, err := ct.AddGhost(locals, global, rank); err != nil {
					continue
				}
				res.CellsRecv++
			}
		}
	}

	// Step 4: drop local cells none of whose nodes are still owned
	// here, then drop nodes no longer referenced by any local cell.
	for _, kind := range g.Kinds() {
		ct := g.Cells(kind)
		for local := 0; local < ct.NLocal(); local++ {
			if !ct.IsLive(local) {
				continue
			}
			keep := false
			for _, ln := range ct.Nodes(local) {
				if nt.IsLive(ln) && !nt.IsGhost(ln) {
					keep = true
					break
				}
			}
			if !keep {
				ct.Remove(local)
				res.CellsDropped++
			}
		}
	}
	referenced := func(local int) bool {
		for _, kind := range g.Kinds() {
			if len(g.Cells(kind).CellsAtNode(local)) > 0 {
				return true
			}
		}
		return false
	}
	for _, local := range nt.Unreferenced(referenced) {
		if err := nt.Remove(local); err == nil {
			res.NodesDropped++
		}
	}

	if err := nt.SynchronizeGlobals(comm); err != nil {
		return res, status.Errf(status.Failure, "migrate.Migrate", "SynchronizeGlobals: %v", err)
	}
	if err := nt.GhostReal(comm); err != nil {
		return res, status.Errf(status.Failure, "migrate.Migrate", "GhostReal: %v", err)
	}
	return res, nil
}

// regroupByDest reorders a flat, arbitrarily-ordered record stream
// into "peer0 records, peer1 records, ..." order, the layout
// xmpi.AllToAllV/AllToAllVPerPeer require, using the already-computed
// per-peer float counts in counts.
func regroupByDest(p xmpi.Payload, nPeers, recordWidth int) xmpi.Payload {
	offsets := make([]int, nPeers+1)
	for i := 0; i < nPeers; i++ {
		offsets[i+1] = offsets[i] + p.Counts[i]
	}
	out := xmpi.Payload{Counts: p.Counts, Data: make([]float64, len(p.Data))}
	cursor := append([]int(nil), offsets[:nPeers]...)
	for off := 0; off+recordWidth <= len(p.Data); off += recordWidth {
		dest := int(p.Data[off+recordWidth-1])
		copy(out.Data[cursor[dest]:], p.Data[off:off+recordWidth-1])
		cursor[dest] += recordWidth - 1
	}
	return out
}
