// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meshmodel

import (
	"math"
	"testing"

	"github.com/cpmech/goref/metric"
)

func addRegularTet(t *testing.T, g *Grid) int {
	t.Helper()
	im := identityTensor()
	a, _, _ := g.Nodes.Add([3]float64{0, 0, 0}, im)
	b, _, _ := g.Nodes.Add([3]float64{1, 0, 0}, im)
	c, _, _ := g.Nodes.Add([3]float64{0.5, math.Sqrt(3) / 2, 0}, im)
	h := math.Sqrt(2.0 / 3.0)
	d, _, _ := g.Nodes.Add([3]float64{0.5, math.Sqrt(3) / 6, h}, im)
	local, _, err := g.Cells(Tet).Add([]int{a, b, c, d})
	if err != nil {
		t.Fatalf("Add tet: %v", err)
	}
	return local
}

func TestGridVolumeVertsRoundTrip(t *testing.T) {
	g := NewGrid(0, 1)
	local := addRegularTet(t, g)
	xyz, m, err := g.VolumeVerts(local)
	if err != nil {
		t.Fatalf("VolumeVerts: %v", err)
	}
	vol := metric.TetVol(xyz[0], xyz[1], xyz[2], xyz[3])
	if vol <= 0 {
		t.Fatalf("expected positive volume, got %v", vol)
	}
	for _, mi := range m {
		if mi != identityTensor() {
			t.Fatalf("expected identity metric at every corner, got %v", mi)
		}
	}
}

func TestGridKindsReportsOnlyAllocated(t *testing.T) {
	g := NewGrid(0, 1)
	addRegularTet(t, g)
	kinds := g.Kinds()
	if len(kinds) != 1 || kinds[0] != Tet {
		t.Fatalf("Kinds() = %v, want [Tet]", kinds)
	}
}

func TestGridPackCompactsFreedSlots(t *testing.T) {
	g := NewGrid(0, 1)
	im := identityTensor()
	a, _, _ := g.Nodes.Add([3]float64{0, 0, 0}, im)
	b, _, _ := g.Nodes.Add([3]float64{1, 0, 0}, im)
	c, _, _ := g.Nodes.Add([3]float64{0, 1, 0}, im)
	stray, _, _ := g.Nodes.Add([3]float64{9, 9, 9}, im)
	g.Nodes.Remove(stray)
	triLocal, _, err := g.Cells(Tri).Add([]int{a, b, c})
	if err != nil {
		t.Fatalf("Add tri: %v", err)
	}

	nodeRemap, cellRemap := g.Pack()
	if g.Nodes.NLocal() != 3 {
		t.Fatalf("expected 3 live nodes after Pack, got %d", g.Nodes.NLocal())
	}
	newTriLocal, ok := cellRemap[Tri][triLocal]
	if !ok {
		t.Fatalf("expected the triangle to survive Pack")
	}
	got := g.Cells(Tri).Nodes(newTriLocal)
	want := []int{nodeRemap[a], nodeRemap[b], nodeRemap[c]}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("packed triangle nodes = %v, want %v", got, want)
		}
	}
}

func TestGridOrientOutwardFlipsTowardInside(t *testing.T) {
	g := NewGrid(0, 1)
	im := identityTensor()
	a, _, _ := g.Nodes.Add([3]float64{0, 0, 0}, im)
	b, _, _ := g.Nodes.Add([3]float64{1, 0, 0}, im)
	c, _, _ := g.Nodes.Add([3]float64{0, 1, 0}, im)
	local, _, _ := g.Cells(Tri).Add([]int{a, b, c})

	// (a,b,c) wound counter-clockwise in the xy-plane has normal
	// (0,0,1); an inside point on the +z side means the normal faces
	// toward the interior (wrong), so OrientOutward must flip it.
	before := append([]int(nil), g.Cells(Tri).Nodes(local)...)
	if err := g.OrientOutward(local, [3]float64{0, 0, 1}); err != nil {
		t.Fatalf("OrientOutward: %v", err)
	}
	after := g.Cells(Tri).Nodes(local)
	if after[0] != before[1] || after[1] != before[0] {
		t.Fatalf("expected winding flip, got %v from %v", after, before)
	}
}
