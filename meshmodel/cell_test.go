// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package meshmodel

import (
	"testing"

	"github.com/cpmech/goref/status"
)

func TestCellTableAddRejectsWrongNodeCount(t *testing.T) {
	ct := NewCellTable(Tet, 0, 1, 8)
	_, _, err := ct.Add([]int{0, 1, 2})
	if !status.Is(err, status.Invalid) {
		t.Fatalf("expected Invalid for a 3-node tet, got %v", err)
	}
}

func TestCellTableAddAndAdjacency(t *testing.T) {
	ct := NewCellTable(Tet, 0, 1, 8)
	local, _, err := ct.Add([]int{0, 1, 2, 3})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	for _, n := range []int{0, 1, 2, 3} {
		touching := ct.CellsAtNode(n)
		if len(touching) != 1 || int(touching[0]) != local {
			t.Fatalf("CellsAtNode(%d) = %v, want [%d]", n, touching, local)
		}
	}
	if !ct.HasNode(local, 2) {
		t.Fatalf("expected cell to reference node 2")
	}
}

func TestCellTableRemoveClearsAdjacency(t *testing.T) {
	ct := NewCellTable(Tet, 0, 1, 8)
	local, _, _ := ct.Add([]int{0, 1, 2, 3})
	if err := ct.Remove(local); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(ct.CellsAtNode(0)) != 0 {
		t.Fatalf("expected no cells touching node 0 after Remove")
	}
	if ct.IsLive(local) {
		t.Fatalf("slot should not be live after Remove")
	}
}

func TestCellTableReplaceNode(t *testing.T) {
	ct := NewCellTable(Tet, 0, 1, 8)
	local, _, _ := ct.Add([]int{0, 1, 2, 3})
	if err := ct.ReplaceNode(local, 1, 9); err != nil {
		t.Fatalf("ReplaceNode: %v", err)
	}
	got := ct.Nodes(local)
	want := []int{0, 9, 2, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Nodes after ReplaceNode = %v, want %v", got, want)
		}
	}
	if len(ct.CellsAtNode(1)) != 0 {
		t.Fatalf("old node 1 should no longer reference the cell")
	}
	if len(ct.CellsAtNode(9)) != 1 {
		t.Fatalf("new node 9 should reference the cell")
	}
}

func TestCellTableReplaceNodeUnknownFails(t *testing.T) {
	ct := NewCellTable(Tet, 0, 1, 8)
	local, _, _ := ct.Add([]int{0, 1, 2, 3})
	err := ct.ReplaceNode(local, 99, 100)
	if !status.Is(err, status.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCellTableFreeSlotReuse(t *testing.T) {
	ct := NewCellTable(Tri, 0, 1, 8)
	l0, _, _ := ct.Add([]int{0, 1, 2})
	ct.Remove(l0)
	l1, _, _ := ct.Add([]int{3, 4, 5})
	if l1 != l0 {
		t.Fatalf("expected freed slot %d reused, got %d", l0, l1)
	}
}
