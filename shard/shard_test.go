// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shard

import (
	"testing"

	"github.com/cpmech/goref/meshmodel"
)

func identity() [6]float64 { return [6]float64{1, 0, 1, 0, 0, 1} }

func TestToTetsConvertsPyramid(t *testing.T) {
	g := meshmodel.NewGrid(0, 1)
	im := identity()
	n := make([]int, 5)
	coords := [][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {0.5, 0.5, 1}}
	for i, c := range coords {
		n[i], _, _ = g.Nodes.Add(c, im)
	}
	if _, _, err := g.Cells(meshmodel.Pyr).Add(n); err != nil {
		t.Fatalf("Add pyr: %v", err)
	}

	converted, err := ToTets(g)
	if err != nil {
		t.Fatalf("ToTets: %v", err)
	}
	if converted[meshmodel.Pyr] != 1 {
		t.Fatalf("expected 1 converted pyramid, got %v", converted)
	}
	if _, ok := g.KindIfPresent(meshmodel.Pyr); ok {
		tbl := g.Cells(meshmodel.Pyr)
		for l := 0; l < tbl.NLocal(); l++ {
			if tbl.IsLive(l) {
				t.Fatalf("expected no live pyramids after ToTets")
			}
		}
	}
	tets := g.Cells(meshmodel.Tet)
	live := 0
	for l := 0; l < tets.NLocal(); l++ {
		if tets.IsLive(l) {
			live++
		}
	}
	if live != len(pyrTets) {
		t.Fatalf("expected %d tets from the pyramid decomposition, got %d", len(pyrTets), live)
	}
}

func TestToTetsNoOpWithoutMixedCells(t *testing.T) {
	g := meshmodel.NewGrid(0, 1)
	converted, err := ToTets(g)
	if err != nil {
		t.Fatalf("ToTets: %v", err)
	}
	if len(converted) != 0 {
		t.Fatalf("expected nothing converted on an empty grid, got %v", converted)
	}
}
