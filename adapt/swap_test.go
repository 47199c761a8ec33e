// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adapt

import (
	"testing"

	"github.com/cpmech/goref/meshmodel"
)

// buildSwapPatch builds two coplanar triangles sharing the long
// diagonal of a rhombus, the classic "swap the diagonal" fixture: the
// (node0,node1) diagonal cuts it into two thin triangles, while
// (node2,node3) would cut it into two near-isoceles ones.
func buildSwapPatch(t *testing.T) (g *meshmodel.Grid, node0, node1, node2, node3 int) {
	t.Helper()
	g = meshmodel.NewGrid(0, 1)
	im := identityTensor()
	node0, _, _ = g.Nodes.Add([3]float64{0, 0, 0}, im)
	node1, _, _ = g.Nodes.Add([3]float64{1, 1, 0}, im)
	node2, _, _ = g.Nodes.Add([3]float64{0.8, 0.2, 0}, im)
	node3, _, _ = g.Nodes.Add([3]float64{0.2, 0.8, 0}, im)
	if _, _, err := g.Cells(meshmodel.Tri).Add([]int{node0, node1, node2}); err != nil {
		t.Fatalf("Add tri0: %v", err)
	}
	if _, _, err := g.Cells(meshmodel.Tri).Add([]int{node1, node0, node3}); err != nil {
		t.Fatalf("Add tri1: %v", err)
	}
	return
}

func TestSwapOppositesFindsFarNodes(t *testing.T) {
	g, node0, node1, node2, node3 := buildSwapPatch(t)
	_, _, n2, n3, ok := swapOpposites(g, node0, node1)
	if !ok {
		t.Fatalf("expected swapOpposites to resolve the shared-edge fixture")
	}
	if n2 != node2 || n3 != node3 {
		t.Fatalf("swapOpposites = (%d,%d), want (%d,%d)", n2, n3, node2, node3)
	}
}

func TestSwapSurfaceFlipsTheDiagonal(t *testing.T) {
	g, node0, node1, node2, node3 := buildSwapPatch(t)
	did, err := SwapSurface(g, node0, node1, 0, -2) // permissive same-normal tolerance
	if err != nil {
		t.Fatalf("SwapSurface: %v", err)
	}
	if !did {
		t.Fatalf("expected the diagonal swap to improve minimum quality and be performed")
	}
	ct := g.Cells(meshmodel.Tri)
	if triExists(ct, node0, node1, node2) || triExists(ct, node1, node0, node3) {
		t.Fatalf("expected the old diagonal triangles to be gone")
	}
	if !triExists(ct, node0, node3, node2) && !triExists(ct, node2, node0, node3) && !triExists(ct, node3, node2, node0) {
		t.Fatalf("expected a triangle along the new diagonal to exist")
	}
}

func TestSwapManifoldOKRejectsDuplicateEdge(t *testing.T) {
	g, node0, node1, node2, node3 := buildSwapPatch(t)
	if _, _, err := g.Cells(meshmodel.Tri).Add([]int{node2, node3, node0}); err != nil {
		t.Fatalf("Add extra tri: %v", err)
	}
	if swapManifoldOK(g, node0, node1, node2, node3) {
		t.Fatalf("expected rejection: (node2,node3) edge already exists")
	}
}

// buildThreeTetFan builds the canonical 3-tets-around-an-edge fixture:
// edge (node0,node1) on the z-axis, with a ring of 3 nodes at 120°
// spacing in the xy-plane, each consecutive pair fanning into a tet
// with the edge.
func buildThreeTetFan(t *testing.T, nranks int) (g *meshmodel.Grid, node0, node1, r0, r1, r2 int) {
	t.Helper()
	g = meshmodel.NewGrid(0, nranks)
	im := identityTensor()
	node0, _, _ = g.Nodes.Add([3]float64{0, 0, -1}, im)
	node1, _, _ = g.Nodes.Add([3]float64{0, 0, 1}, im)
	r0, _, _ = g.Nodes.Add([3]float64{1, 0, 0}, im)
	r1, _, _ = g.Nodes.Add([3]float64{-0.5, 0.8660254, 0}, im)
	r2, _, _ = g.Nodes.Add([3]float64{-0.5, -0.8660254, 0}, im)
	return
}

func TestSwapVolumeRejectsNonLocalTet(t *testing.T) {
	g, node0, node1, r0, r1, r2 := buildThreeTetFan(t, 2)
	if _, err := g.Cells(meshmodel.Tet).AddGhost([]int{node0, node1, r0, r1}, 0, 1); err != nil {
		t.Fatalf("AddGhost tet0: %v", err)
	}
	if _, _, err := g.Cells(meshmodel.Tet).Add([]int{node0, node1, r1, r2}); err != nil {
		t.Fatalf("Add tet1: %v", err)
	}
	if _, _, err := g.Cells(meshmodel.Tet).Add([]int{node0, node1, r2, r0}); err != nil {
		t.Fatalf("Add tet2: %v", err)
	}
	did, err := SwapVolume(g, node0, node1, 0, 0)
	if err != nil {
		t.Fatalf("SwapVolume: %v", err)
	}
	if did {
		t.Fatalf("expected rejection: one touching tet is owned by another rank")
	}
}

func TestSwapVolumeFlipsThreeTetsToTwo(t *testing.T) {
	g, node0, node1, r0, r1, r2 := buildThreeTetFan(t, 1)
	if _, _, err := g.Cells(meshmodel.Tet).Add([]int{node0, node1, r0, r1}); err != nil {
		t.Fatalf("Add tet0: %v", err)
	}
	if _, _, err := g.Cells(meshmodel.Tet).Add([]int{node0, node1, r1, r2}); err != nil {
		t.Fatalf("Add tet1: %v", err)
	}
	if _, _, err := g.Cells(meshmodel.Tet).Add([]int{node0, node1, r2, r0}); err != nil {
		t.Fatalf("Add tet2: %v", err)
	}
	did, err := SwapVolume(g, node0, node1, 0, -1e9) // permissive improvement floor
	if err != nil {
		t.Fatalf("SwapVolume: %v", err)
	}
	if !did {
		t.Fatalf("expected the 3-to-2 flip to be performed")
	}
	if len(tetsSharingEdge(g, node0, node1)) != 0 {
		t.Fatalf("expected the original edge to no longer be shared by any tet")
	}
	if len(countLiveTetsReferencing(g, r0, r1, r2)) != 2 {
		t.Fatalf("expected exactly 2 tets built on the ring face")
	}
}

func countLiveTetsReferencing(g *meshmodel.Grid, a, b, c int) []int {
	ct := g.Cells(meshmodel.Tet)
	var out []int
	for i := 0; i < ct.NLocal(); i++ {
		if ct.IsLive(i) && ct.HasNode(i, a) && ct.HasNode(i, b) && ct.HasNode(i, c) {
			out = append(out, i)
		}
	}
	return out
}
