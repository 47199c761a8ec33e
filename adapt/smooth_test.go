// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adapt

import (
	"testing"

	"github.com/cpmech/goref/meshmodel"
	"github.com/cpmech/goref/metric"
)

// buildSlightlySkewedTet builds a tet where the apex sits slightly off
// the position that maximizes quality, so a smoothing step has
// somewhere useful to go.
func buildSlightlySkewedTet(t *testing.T) (g *meshmodel.Grid, apex int) {
	t.Helper()
	g = meshmodel.NewGrid(0, 1)
	im := identityTensor()
	a, _, _ := g.Nodes.Add([3]float64{0, 0, 0}, im)
	b, _, _ := g.Nodes.Add([3]float64{1, 0, 0}, im)
	c, _, _ := g.Nodes.Add([3]float64{0, 1, 0}, im)
	apex, _, _ = g.Nodes.Add([3]float64{0.2, 0.2, 0.3}, im)
	if _, _, err := g.Cells(meshmodel.Tet).Add([]int{a, b, c, apex}); err != nil {
		t.Fatalf("Add tet: %v", err)
	}
	return
}

func TestLocalQualityAndGradReportsWorstTet(t *testing.T) {
	g, apex := buildSlightlySkewedTet(t)
	q, grad, tets := localQualityAndGrad(g, apex)
	if len(tets) != 1 {
		t.Fatalf("expected apex to touch exactly 1 tet, got %d", len(tets))
	}
	if q <= 0 {
		t.Fatalf("expected a positive quality for a non-degenerate tet, got %v", q)
	}
	if grad == (metric.Vec3{}) {
		t.Fatalf("expected a nonzero gradient for a skewed tet")
	}
}

func TestSmoothNodeRejectsGhostOwner(t *testing.T) {
	g := meshmodel.NewGrid(0, 2)
	im := identityTensor()
	a, _, _ := g.Nodes.Add([3]float64{0, 0, 0}, im)
	b, _, _ := g.Nodes.Add([3]float64{1, 0, 0}, im)
	c, _, _ := g.Nodes.Add([3]float64{0, 1, 0}, im)
	apex, err := g.Nodes.AddGhost([3]float64{0.2, 0.2, 0.3}, im, 99, 1)
	if err != nil {
		t.Fatalf("AddGhost: %v", err)
	}
	if _, _, err := g.Cells(meshmodel.Tet).Add([]int{a, b, c, apex}); err != nil {
		t.Fatalf("Add tet: %v", err)
	}
	did, err := SmoothNode(g, apex, 0, DefaultParams())
	if err != nil {
		t.Fatalf("SmoothNode: %v", err)
	}
	if did {
		t.Fatalf("expected rejection: node is not owned by this rank")
	}
}

func TestSmoothNodeBumpsAgeOnNoImprovement(t *testing.T) {
	g := meshmodel.NewGrid(0, 1)
	im := identityTensor()
	// a regular tet is already locally quality-optimal: every
	// direction should fail to improve, so smoothing bumps age rather
	// than moving the node.
	a, _, _ := g.Nodes.Add([3]float64{0, 0, 0}, im)
	b, _, _ := g.Nodes.Add([3]float64{1, 0, 0}, im)
	c, _, _ := g.Nodes.Add([3]float64{0.5, 0.8660254, 0}, im)
	apex, _, _ := g.Nodes.Add([3]float64{0.5, 0.28867513, 0.81649658}, im)
	if _, _, err := g.Cells(meshmodel.Tet).Add([]int{a, b, c, apex}); err != nil {
		t.Fatalf("Add tet: %v", err)
	}
	p := DefaultParams()
	ageBefore := g.Nodes.Age(apex)
	SmoothNode(g, apex, 0, p)
	if g.Nodes.Age(apex) <= ageBefore {
		// A regular tet has zero quality gradient (it's already the
		// optimum), so both strategies should fail and age should bump.
		t.Fatalf("expected age to increase after a no-op smooth, got %d from %d", g.Nodes.Age(apex), ageBefore)
	}
}
