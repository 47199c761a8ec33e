// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meshmodel

import (
	"github.com/cpmech/goref/metric"
	"github.com/cpmech/goref/status"
)

// Grid ties a NodeTable to one CellTable per element kind present in
// the mesh, the same relationship inp.Mesh has between its Verts
// array and its Ctype2cells map — except every table here is mutable
// in place.
type Grid struct {
	Nodes *NodeTable
	cells map[Kind]*CellTable

	// TwoD marks a surface-only (triangle/quad) mesh, matching
	// spec.md's distinction between a 2D adaptation run (TwoD) and a
	// boundary representation attached to a 3D volume mesh (Surf).
	TwoD bool
	// Surf marks this Grid as the boundary-triangulation companion of
	// a volume Grid rather than a standalone 2D mesh.
	Surf bool

	rank, nranks int
}

// NewGrid allocates an empty grid owned by rank of nranks total.
func NewGrid(rank, nranks int) *Grid {
	return &Grid{
		Nodes:  NewNodeTable(rank, nranks),
		cells:  make(map[Kind]*CellTable),
		rank:   rank,
		nranks: nranks,
	}
}

// Cells returns the cell table for kind, allocating an empty one on
// first use.
func (g *Grid) Cells(kind Kind) *CellTable {
	ct, ok := g.cells[kind]
	if !ok {
		ct = NewCellTable(kind, g.rank, g.nranks, g.Nodes.NLocal())
		g.cells[kind] = ct
	}
	return ct
}

// KindIfPresent returns the cell table for kind only if one has
// already been allocated, without the allocate-on-first-use side
// effect Cells has; used by callers that only want to look, such as
// adapt's collapse predicates scanning for non-tet volume cells that
// may simply not exist in an all-tet mesh.
func (g *Grid) KindIfPresent(kind Kind) (*CellTable, bool) {
	ct, ok := g.cells[kind]
	return ct, ok
}

// Kinds returns every cell kind with at least one table allocated so
// far, in a fixed, deterministic order.
func (g *Grid) Kinds() []Kind {
	var out []Kind
	for _, k := range []Kind{Tet, Pyr, Pri, Hex, Tri, Qua, Edg} {
		if _, ok := g.cells[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// VolumeVerts returns the 4 corner coordinates and metric tensors of a
// live tet cell, the shape TetQualityEPIC/TetQualityJAC expect.
func (g *Grid) VolumeVerts(local int) (xyz [4][3]float64, m [4]metric.Tensor, err error) {
	ct := g.Cells(Tet)
	if !ct.IsLive(local) {
		return xyz, m, status.NotFoundf("meshmodel.Grid.VolumeVerts", "no live tet at local index %d", local)
	}
	nodes := ct.Nodes(local)
	for i, n := range nodes {
		xyz[i] = g.Nodes.XYZ(n)
		m[i] = g.Nodes.Metric(n)
	}
	return
}

// OrientOutward flips a surface triangle's winding if its normal
// points into the reference point inside (opposite of outward),
// matching the convention gofem's shp.FaceLocalVerts tables encode for
// volume cells, but enforced here explicitly since adapt's swap/split
// can reorder a triangle's corners.
func (g *Grid) OrientOutward(triLocal int, inside [3]float64) error {
	ct := g.Cells(Tri)
	if !ct.IsLive(triLocal) {
		return status.NotFoundf("meshmodel.Grid.OrientOutward", "no live tri at local index %d", triLocal)
	}
	nodes := ct.Nodes(triLocal)
	a := g.Nodes.XYZ(nodes[0])
	b := g.Nodes.XYZ(nodes[1])
	c := g.Nodes.XYZ(nodes[2])
	n := metric.TriNormal(a, b, c)
	toInside := metric.Sub(inside, a)
	if metric.Dot(n, toInside) > 0 {
		nodes[0], nodes[1] = nodes[1], nodes[0]
	}
	return nil
}

// Pack compacts every table's free-list slots into a dense prefix,
// mirroring the moment gofem's ReadMsh builds Part2cells/Ctype2cells
// once from a finished array: collapse/split/swap leave holes in the
// middle of the node/cell arrays, and Pack gives downstream I/O a
// dense 0..n range; the adapt driver and the CLI do not call it. It
// returns the old->new local index maps per table so callers
// that cached local indices (e.g. a partition assignment) can remap.
func (g *Grid) Pack() (nodeRemap map[int]int, cellRemap map[Kind]map[int]int) {
	nodeRemap = make(map[int]int)
	newXYZ := make([][3]float64, 0, g.Nodes.NLocal())
	newM := make([]metric.Tensor, 0, g.Nodes.NLocal())
	newGlobal := make([]int64, 0, g.Nodes.NLocal())
	newOwner := make([]int, 0, g.Nodes.NLocal())
	for i := 0; i < g.Nodes.NLocal(); i++ {
		if !g.Nodes.IsLive(i) {
			continue
		}
		nodeRemap[i] = len(newXYZ)
		newXYZ = append(newXYZ, g.Nodes.XYZ(i))
		newM = append(newM, g.Nodes.Metric(i))
		newGlobal = append(newGlobal, g.Nodes.Global(i))
		newOwner = append(newOwner, g.Nodes.Owner(i))
	}
	packed := NewNodeTable(g.rank, g.nranks)
	for i := range newXYZ {
		local, err := packed.AddGhost(newXYZ[i], newM[i], newGlobal[i], newOwner[i])
		if err != nil || local != i {
			// AddGhost only fails on a duplicate global id, which
			// cannot happen since the source table enforced
			// uniqueness; a mismatch would mean Pack's own bookkeeping
			// is broken.
			panic("meshmodel.Grid.Pack: inconsistent node remap")
		}
	}
	packed.nextGlobal = g.Nodes.nextGlobal
	g.Nodes = packed

	cellRemap = make(map[Kind]map[int]int)
	for kind, ct := range g.cells {
		remap := make(map[int]int)
		packedCT := NewCellTable(kind, g.rank, g.nranks, g.Nodes.NLocal())
		for i := 0; i < ct.NLocal(); i++ {
			if !ct.IsLive(i) {
				continue
			}
			old := ct.Nodes(i)
			remapped := make([]int, len(old))
			for j, n := range old {
				remapped[j] = nodeRemap[n]
			}
			local, err := packedCT.AddGhost(remapped, ct.Global(i), ct.Owner(i))
			if err != nil {
				panic("meshmodel.Grid.Pack: inconsistent cell remap")
			}
			remap[i] = local
		}
		packedCT.nextGlobal = ct.nextGlobal
		g.cells[kind] = packedCT
		cellRemap[kind] = remap
	}
	return
}
