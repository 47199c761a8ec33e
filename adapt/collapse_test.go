// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adapt

import (
	"testing"

	"github.com/cpmech/goref/edgeidx"
	"github.com/cpmech/goref/meshmodel"
	"github.com/cpmech/goref/metric"
)

func identityTensor() metric.Tensor { return metric.Tensor{1, 0, 1, 0, 0, 1} }

// buildTwoTetMesh builds two tets glued along the triangle (n1,n2,node1):
// tet A = (node0,n1,n2,node1) already touches both collapse endpoints and
// must be dropped outright by a collapse; tet B = (node1,n1,n2,n3) touches
// only node1 and must be repointed to node0.
func buildTwoTetMesh(t *testing.T) (g *meshmodel.Grid, node0, node1, n1, n2, n3 int) {
	t.Helper()
	g = meshmodel.NewGrid(0, 1)
	im := identityTensor()
	node0, _, _ = g.Nodes.Add([3]float64{0, 0, 0}, im)
	node1, _, _ = g.Nodes.Add([3]float64{1, 0, 0}, im)
	n1, _, _ = g.Nodes.Add([3]float64{0, 1, 0}, im)
	n2, _, _ = g.Nodes.Add([3]float64{0, 0, 1}, im)
	n3, _, _ = g.Nodes.Add([3]float64{2, 1, 1}, im)
	if _, _, err := g.Cells(meshmodel.Tet).Add([]int{node0, n1, n2, node1}); err != nil {
		t.Fatalf("Add tet A: %v", err)
	}
	if _, _, err := g.Cells(meshmodel.Tet).Add([]int{node1, n1, n2, n3}); err != nil {
		t.Fatalf("Add tet B: %v", err)
	}
	return
}

func permissiveParams() Params {
	p := DefaultParams()
	p.CollapseRatioLimit = 100
	p.CollapseQualityAbs = -1
	return p
}

func TestCollapseMixedOKRejectsNonTetVolumeCell(t *testing.T) {
	g, _, node1, n1, n2, _ := buildTwoTetMesh(t)
	if !collapseMixedOK(g, node1) {
		t.Fatalf("expected collapseMixedOK true when node1 only touches tets")
	}
	// a geometrically degenerate pyramid is fine here: only its
	// presence in node1's adjacency matters to collapseMixedOK.
	if _, _, err := g.Cells(meshmodel.Pyr).Add([]int{node1, n1, n2, n1, n2}); err != nil {
		t.Fatalf("Add pyramid: %v", err)
	}
	if collapseMixedOK(g, node1) {
		t.Fatalf("expected collapseMixedOK false once node1 touches a pyramid")
	}
}

func TestCollapseLocalOKRejectsGhostOwnedTet(t *testing.T) {
	g := meshmodel.NewGrid(0, 2)
	im := identityTensor()
	node0, _, _ := g.Nodes.Add([3]float64{0, 0, 0}, im)
	node1, _, _ := g.Nodes.Add([3]float64{1, 0, 0}, im)
	n1, _, _ := g.Nodes.Add([3]float64{0, 1, 0}, im)
	n2, _, _ := g.Nodes.Add([3]float64{0, 0, 1}, im)
	if _, err := g.Cells(meshmodel.Tet).AddGhost([]int{node0, node1, n1, n2}, 42, 1); err != nil {
		t.Fatalf("AddGhost: %v", err)
	}
	if collapseLocalOK(g, node0, node1, 0) {
		t.Fatalf("expected collapseLocalOK false when a touching tet is owned by another rank")
	}
}

func TestCollapseQualityOKRejectsExcessiveRatio(t *testing.T) {
	g, node0, node1, _, _, _ := buildTwoTetMesh(t)
	p := DefaultParams()
	p.CollapseRatioLimit = 1e-6
	ok, err := collapseQualityOK(g, node0, node1, p)
	if err != nil {
		t.Fatalf("collapseQualityOK: %v", err)
	}
	if ok {
		t.Fatalf("expected rejection once the ratio limit is far below any real edge length")
	}
}

func TestCollapseQualityOKAcceptsUnderPermissiveParams(t *testing.T) {
	g, node0, node1, _, _, _ := buildTwoTetMesh(t)
	ok, err := collapseQualityOK(g, node0, node1, permissiveParams())
	if err != nil {
		t.Fatalf("collapseQualityOK: %v", err)
	}
	if !ok {
		t.Fatalf("expected acceptance under permissive thresholds")
	}
}

func TestCollapseEdgeDropsSharedTetAndRepointsTheOther(t *testing.T) {
	g, node0, node1, n1, n2, n3 := buildTwoTetMesh(t)
	idx := edgeidx.New()
	idx.Edge(node0, node1)
	idx.Edge(node1, n1)
	idx.Edge(node1, n2)

	ct := g.Cells(meshmodel.Tet)
	tetB := -1
	for i := 0; i < ct.NLocal(); i++ {
		if ct.IsLive(i) && ct.HasNode(i, n3) {
			tetB = i
		}
	}
	if tetB < 0 {
		t.Fatalf("could not locate tet B in the fixture")
	}

	did, err := CollapseEdge(g, idx, node0, node1, 0, permissiveParams())
	if err != nil {
		t.Fatalf("CollapseEdge: %v", err)
	}
	if !did {
		t.Fatalf("expected the collapse to be performed")
	}
	if g.Nodes.IsLive(node1) {
		t.Fatalf("expected node1 to be removed")
	}
	if !ct.IsLive(tetB) {
		t.Fatalf("expected tet B to survive, repointed to node0")
	}
	if !ct.HasNode(tetB, node0) || ct.HasNode(tetB, node1) {
		t.Fatalf("expected tet B nodes = %v to reference node0 and not node1", ct.Nodes(tetB))
	}
	if idx.Has(node1, n1) || idx.Has(node1, n2) {
		t.Fatalf("expected every edge touching node1 to be gone from the index")
	}
}

func TestCollapseEdgeRejectsWithoutMutatingMesh(t *testing.T) {
	g, node0, node1, _, _, _ := buildTwoTetMesh(t)
	idx := edgeidx.New()
	idx.Edge(node0, node1)
	p := DefaultParams()
	p.CollapseRatioLimit = 1e-6

	did, err := CollapseEdge(g, idx, node0, node1, 0, p)
	if err != nil {
		t.Fatalf("CollapseEdge: %v", err)
	}
	if did {
		t.Fatalf("expected the collapse to be rejected")
	}
	if !g.Nodes.IsLive(node1) {
		t.Fatalf("expected node1 to remain live after a rejected collapse")
	}
}
