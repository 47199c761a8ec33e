// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package migrate

import (
	"math"
	"testing"

	"github.com/cpmech/goref/meshmodel"
	"github.com/cpmech/goref/xmpi"
)

func addRegularTet(t *testing.T, g *meshmodel.Grid) int {
	t.Helper()
	im := [6]float64{1, 0, 1, 0, 0, 1}
	a, _, _ := g.Nodes.Add([3]float64{0, 0, 0}, im)
	b, _, _ := g.Nodes.Add([3]float64{1, 0, 0}, im)
	c, _, _ := g.Nodes.Add([3]float64{0.5, math.Sqrt(3) / 2, 0}, im)
	h := math.Sqrt(2.0 / 3.0)
	d, _, _ := g.Nodes.Add([3]float64{0.5, math.Sqrt(3) / 6, h}, im)
	local, _, err := g.Cells(meshmodel.Tet).Add([]int{a, b, c, d})
	if err != nil {
		t.Fatalf("Add tet: %v", err)
	}
	return local
}

func TestMigrateSerialIsANoOp(t *testing.T) {
	g := meshmodel.NewGrid(0, 1)
	addRegularTet(t, g)
	beforeNodes := g.Nodes.NLocal()

	res, err := Migrate(g, xmpi.World, map[int64]int{})
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if res.NodesSent != 0 || res.CellsSent != 0 {
		t.Fatalf("a single-rank run should ship nothing, got %+v", res)
	}
	if g.Nodes.NLocal() != beforeNodes {
		t.Fatalf("node count changed under a serial no-op migrate: %d -> %d", beforeNodes, g.Nodes.NLocal())
	}
	live := 0
	for l := 0; l < g.Cells(meshmodel.Tet).NLocal(); l++ {
		if g.Cells(meshmodel.Tet).IsLive(l) {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("expected the tet to survive a no-op migrate, got %d live tets", live)
	}
}

func TestMigrateSerialIgnoresForeignOwnerRequest(t *testing.T) {
	// Even if newOwner names a rank other than 0, a single-rank world
	// has nowhere else to send to, so Migrate must not drop data.
	g := meshmodel.NewGrid(0, 1)
	addRegularTet(t, g)

	newOwner := map[int64]int{0: 0, 1: 0, 2: 0, 3: 0}
	if _, err := Migrate(g, xmpi.World, newOwner); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if g.Nodes.NLocal() == 0 {
		t.Fatalf("migrate must not have dropped every node")
	}
}
