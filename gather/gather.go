// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gather assembles the rank-0 serialization of a distributed
// Grid into a single in-memory mesh, spec.md §2's "Gather/export"
// component and §6's "no partial/rank-local outputs (gather assembles
// on rank 0)" rule. It reuses xmpi.Comm.AllToAllVPerPeer the same way
// migrate does, just with every rank's whole owned mesh addressed to
// peer 0 instead of to a partition-assigned owner.
package gather

import (
	"github.com/cpmech/goref/meshmodel"
	"github.com/cpmech/goref/status"
	"github.com/cpmech/goref/xmpi"
)

// Mesh is the flattened, serial result of a Gather call: every owned
// node and cell across every rank, renumbered densely from 0 the way
// a single-rank Grid would already be, ready for meshio to write out.
type Mesh struct {
	NodeXYZ    [][3]float64
	NodeMetric [][6]float64

	// Cells maps each kind to its cells' corner node indices (into
	// NodeXYZ/NodeMetric), in gather order.
	Cells map[meshmodel.Kind][][]int
}

// Gather collects every rank's owned nodes and cells onto rank 0.
// Non-zero ranks get back an empty Mesh (spec.md §6: no partial
// rank-local output is meaningful without a companion process to read
// it).
func Gather(g *meshmodel.Grid, comm *xmpi.Comm) (*Mesh, error) {
	n := comm.Size()
	rank := comm.Rank()
	nt := g.Nodes

	// Phase 1: every rank ships its owned nodes to rank 0, tagging
	// each with its own global id so cells (shipped next, referencing
	// the same globals) can be re-keyed against the gathered mesh's
	// dense local indices.
	send := make([]xmpi.Payload, n)
	mine := xmpi.Payload{Counts: make([]int, n)}
	globalToGathered := make(map[int64]int)
	for local := 0; local < nt.NLocal(); local++ {
		if !nt.IsLive(local) || nt.IsGhost(local) {
			continue
		}
		xyz := nt.XYZ(local)
		m := nt.Metric(local)
		mine.Data = append(mine.Data, float64(nt.Global(local)), xyz[0], xyz[1], xyz[2], m[0], m[1], m[2], m[3], m[4], m[5])
	}
	mine.Counts[0] = len(mine.Data)
	send[rank] = mine

	recv, err := comm.AllToAllVPerPeer(send)
	if err != nil {
		return nil, status.Errf(status.Failure, "gather.Gather", "node gather: %v", err)
	}

	// Only rank 0 receives non-empty segments, so every other rank's
	// mesh stays empty; those ranks still take part in phase 2.
	mesh := &Mesh{Cells: make(map[meshmodel.Kind][][]int)}
	for _, seg := range recv {
		for off := 0; off+10 <= len(seg); off += 10 {
			global := int64(seg[off])
			idx := len(mesh.NodeXYZ)
			mesh.NodeXYZ = append(mesh.NodeXYZ, [3]float64{seg[off+1], seg[off+2], seg[off+3]})
			mesh.NodeMetric = append(mesh.NodeMetric, [6]float64{seg[off+4], seg[off+5], seg[off+6], seg[off+7], seg[off+8], seg[off+9]})
			globalToGathered[global] = idx
		}
	}

	// Phase 2: every rank ships its owned cells (by node globals) to
	// rank 0, which re-keys them against globalToGathered.
	for _, kind := range g.Kinds() {
		ct := g.Cells(kind)
		width := kind.NodesPerCell()
		csend := make([]xmpi.Payload, n)
		cmine := xmpi.Payload{}
		for local := 0; local < ct.NLocal(); local++ {
			if !ct.IsLive(local) || ct.IsGhost(local) {
				continue
			}
			for _, ln := range ct.Nodes(local) {
				cmine.Data = append(cmine.Data, float64(nt.Global(ln)))
			}
		}
		cmine.Counts = make([]int, n)
		cmine.Counts[0] = len(cmine.Data)
		csend[rank] = cmine

		crecv, err := comm.AllToAllVPerPeer(csend)
		if err != nil {
			return nil, status.Errf(status.Failure, "gather.Gather", "%s cell gather: %v", kind, err)
		}
		for _, seg := range crecv {
			for off := 0; off+width <= len(seg); off += width {
				cell := make([]int, width)
				ok := true
				for i := 0; i < width; i++ {
					idx, found := globalToGathered[int64(seg[off+i])]
					if !found {
						ok = false
						break
					}
					cell[i] = idx
				}
				if ok {
					mesh.Cells[kind] = append(mesh.Cells[kind], cell)
				}
			}
		}
	}
	return mesh, nil
}
