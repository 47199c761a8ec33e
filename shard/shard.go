// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package shard converts mixed-element cells (pyramids, prisms,
// hexahedra) to tetrahedra once boundary-layer structure is no longer
// needed, spec.md §2's "Shard" component. Each mixed cell is split
// along a fixed corner-index diagonalization, the same "decompose a
// higher-order cell into simplices by a canonical diagonal cut" idiom
// shp.go's FaceLocalVerts tables encode for gofem's finite elements,
// generalized here from shape-function corner tables to an explicit
// tet decomposition since goref's cells carry no shape functions at
// all, only corner connectivity.
package shard

import (
	"github.com/cpmech/goref/meshmodel"
	"github.com/cpmech/goref/status"
)

// pyrTets lists the two corner-index tets a 5-node pyramid (base
// 0,1,2,3, apex 4) decomposes into, split along the 0-2 base
// diagonal.
var pyrTets = [][4]int{
	{0, 1, 2, 4},
	{0, 2, 3, 4},
}

// priTets lists the three corner-index tets a 6-node prism (bottom
// triangle 0,1,2, top triangle 3,4,5) decomposes into.
var priTets = [][4]int{
	{0, 1, 2, 3},
	{1, 2, 3, 4},
	{2, 3, 4, 5},
}

// hexTets lists the five corner-index tets a standard 8-node hexahedron
// (bottom 0,1,2,3, top 4,5,6,7) decomposes into without adding a
// center node.
var hexTets = [][4]int{
	{0, 1, 3, 4},
	{1, 2, 3, 6},
	{1, 3, 4, 6},
	{3, 4, 6, 7},
	{1, 4, 5, 6},
}

// ToTets replaces every pyramid/prism/hexahedron cell in g with its
// tet decomposition, removing the original mixed cell once its
// children are added, and returns how many cells of each kind were
// converted.
func ToTets(g *meshmodel.Grid) (converted map[meshmodel.Kind]int, err error) {
	converted = make(map[meshmodel.Kind]int)
	order := []struct {
		kind  meshmodel.Kind
		table [][4]int
	}{
		{meshmodel.Pyr, pyrTets},
		{meshmodel.Pri, priTets},
		{meshmodel.Hex, hexTets},
	}
	for _, o := range order {
		kind, table := o.kind, o.table
		ct, ok := g.KindIfPresent(kind)
		if !ok {
			continue
		}
		tetTable := g.Cells(meshmodel.Tet)
		for local := 0; local < ct.NLocal(); local++ {
			if !ct.IsLive(local) {
				continue
			}
			corners := ct.Nodes(local)
			if len(corners) != kind.NodesPerCell() {
				return converted, status.Errf(status.Failure, "shard.ToTets", "%s cell %d has %d corners, want %d", kind, local, len(corners), kind.NodesPerCell())
			}
			for _, tet := range table {
				nodes := make([]int, 4)
				for i, ci := range tet {
					nodes[i] = corners[ci]
				}
				if _, _, err := tetTable.Add(nodes); err != nil {
					return converted, status.Errf(status.Failure, "shard.ToTets", "adding tet decomposition of %s cell %d: %v", kind, local, err)
				}
			}
			if err := ct.Remove(local); err != nil {
				return converted, status.Errf(status.Failure, "shard.ToTets", "removing sharded %s cell %d: %v", kind, local, err)
			}
			converted[kind]++
		}
	}
	return converted, nil
}
