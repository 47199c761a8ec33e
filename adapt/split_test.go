// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adapt

import (
	"testing"

	"github.com/cpmech/goref/edgeidx"
	"github.com/cpmech/goref/meshmodel"
)

// buildOneTetMesh builds a single regular-ish tet on a long edge
// (node0,node1) so a split is a sensible operation to attempt.
func buildOneTetMesh(t *testing.T) (g *meshmodel.Grid, node0, node1, n2, n3 int) {
	t.Helper()
	g = meshmodel.NewGrid(0, 1)
	im := identityTensor()
	node0, _, _ = g.Nodes.Add([3]float64{0, 0, 0}, im)
	node1, _, _ = g.Nodes.Add([3]float64{4, 0, 0}, im)
	n2, _, _ = g.Nodes.Add([3]float64{0, 4, 0}, im)
	n3, _, _ = g.Nodes.Add([3]float64{0, 0, 4}, im)
	if _, _, err := g.Cells(meshmodel.Tet).Add([]int{node0, node1, n2, n3}); err != nil {
		t.Fatalf("Add tet: %v", err)
	}
	return
}

func permissiveSplitParams() Params {
	p := DefaultParams()
	p.SplitRatioLimit = 0.1
	p.SplitQualityAbs = -1
	return p
}

func TestSplitEdgeRejectsShortEdge(t *testing.T) {
	g, node0, node1, _, _ := buildOneTetMesh(t)
	idx := edgeidx.New()
	idx.Edge(node0, node1)
	p := DefaultParams()
	p.SplitRatioLimit = 1000
	_, did, err := SplitEdge(g, idx, node0, node1, 0, p)
	if err != nil {
		t.Fatalf("SplitEdge: %v", err)
	}
	if did {
		t.Fatalf("expected rejection: edge ratio cannot exceed an impossibly high limit")
	}
}

func TestSplitEdgeInsertsMidpointAndBisectsTet(t *testing.T) {
	g, node0, node1, n2, n3 := buildOneTetMesh(t)
	idx := edgeidx.New()
	idx.Edge(node0, node1)
	idx.Edge(node0, n2)
	idx.Edge(node0, n3)
	idx.Edge(node1, n2)
	idx.Edge(node1, n3)
	idx.Edge(n2, n3)

	newNode, did, err := SplitEdge(g, idx, node0, node1, 0, permissiveSplitParams())
	if err != nil {
		t.Fatalf("SplitEdge: %v", err)
	}
	if !did {
		t.Fatalf("expected the split to be performed")
	}
	if !g.Nodes.IsLive(newNode) {
		t.Fatalf("expected the new midpoint node to be live")
	}
	got := g.Nodes.XYZ(newNode)
	want := [3]float64{2, 0, 0}
	for i := range want {
		if diff := got[i] - want[i]; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("midpoint = %v, want %v", got, want)
		}
	}

	ct := g.Cells(meshmodel.Tet)
	live := 0
	for i := 0; i < ct.NLocal(); i++ {
		if ct.IsLive(i) {
			live++
			if !ct.HasNode(i, newNode) {
				t.Fatalf("expected every surviving tet to reference the new node, got %v", ct.Nodes(i))
			}
		}
	}
	if live != 2 {
		t.Fatalf("expected the original tet to be replaced by exactly 2 children, got %d live tets", live)
	}
	if idx.Has(node0, node1) {
		t.Fatalf("expected the original edge to be gone from the index")
	}
	if !idx.Has(node0, newNode) || !idx.Has(node1, newNode) {
		t.Fatalf("expected both half-edges to be indexed")
	}
}

func TestSplitEdgeRollsBackOnQualityRejection(t *testing.T) {
	g, node0, node1, _, _ := buildOneTetMesh(t)
	idx := edgeidx.New()
	idx.Edge(node0, node1)

	p := permissiveSplitParams()
	p.SplitQualityAbs = 1e9 // impossible to satisfy

	liveNodesBefore := countLiveNodes(g)
	liveTetsBefore := countLiveTets(g)

	_, did, err := SplitEdge(g, idx, node0, node1, 0, p)
	if err != nil {
		t.Fatalf("SplitEdge: %v", err)
	}
	if did {
		t.Fatalf("expected rejection under an impossible quality floor")
	}
	if countLiveNodes(g) != liveNodesBefore {
		t.Fatalf("expected live node count unchanged after rollback, got %d vs %d", countLiveNodes(g), liveNodesBefore)
	}
	if countLiveTets(g) != liveTetsBefore {
		t.Fatalf("expected live tet count unchanged after rollback")
	}
	if !idx.Has(node0, node1) {
		t.Fatalf("expected the original edge to remain indexed after rollback")
	}
}

func countLiveNodes(g *meshmodel.Grid) int {
	n := 0
	for i := 0; i < g.Nodes.NLocal(); i++ {
		if g.Nodes.IsLive(i) {
			n++
		}
	}
	return n
}

func countLiveTets(g *meshmodel.Grid) int {
	ct := g.Cells(meshmodel.Tet)
	n := 0
	for i := 0; i < ct.NLocal(); i++ {
		if ct.IsLive(i) {
			n++
		}
	}
	return n
}
