// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gather

import (
	"math"
	"testing"

	"github.com/cpmech/goref/meshmodel"
	"github.com/cpmech/goref/xmpi"
)

func TestGatherSerialRoundTrip(t *testing.T) {
	g := meshmodel.NewGrid(0, 1)
	im := [6]float64{1, 0, 1, 0, 0, 1}
	a, _, _ := g.Nodes.Add([3]float64{0, 0, 0}, im)
	b, _, _ := g.Nodes.Add([3]float64{1, 0, 0}, im)
	c, _, _ := g.Nodes.Add([3]float64{0.5, math.Sqrt(3) / 2, 0}, im)
	h := math.Sqrt(2.0 / 3.0)
	d, _, _ := g.Nodes.Add([3]float64{0.5, math.Sqrt(3) / 6, h}, im)
	if _, _, err := g.Cells(meshmodel.Tet).Add([]int{a, b, c, d}); err != nil {
		t.Fatalf("Add tet: %v", err)
	}

	mesh, err := Gather(g, xmpi.World)
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(mesh.NodeXYZ) != 4 {
		t.Fatalf("expected 4 gathered nodes, got %d", len(mesh.NodeXYZ))
	}
	tets := mesh.Cells[meshmodel.Tet]
	if len(tets) != 1 || len(tets[0]) != 4 {
		t.Fatalf("expected one gathered tet with 4 corners, got %v", tets)
	}
	for _, idx := range tets[0] {
		if idx < 0 || idx >= len(mesh.NodeXYZ) {
			t.Fatalf("gathered tet references out-of-range node index %d", idx)
		}
	}
}
