// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package edgeidx

import "testing"

func TestEdgeCreatesOnFirstUseAndIsStable(t *testing.T) {
	x := New()
	h1, err := x.Edge(0, 1)
	if err != nil {
		t.Fatalf("Edge: %v", err)
	}
	h2, err := x.Edge(0, 1)
	if err != nil {
		t.Fatalf("Edge: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected the same handle on repeated Edge(0,1), got %d and %d", h1, h2)
	}
	// order must not matter.
	h3, err := x.Edge(1, 0)
	if err != nil {
		t.Fatalf("Edge: %v", err)
	}
	if h3 != h1 {
		t.Fatalf("Edge(1,0) should return the same handle as Edge(0,1)")
	}
}

func TestHasReportsFalseForUnknownEdge(t *testing.T) {
	x := New()
	if x.Has(0, 1) {
		t.Fatalf("expected Has(0,1) to be false before any Edge() call")
	}
	x.Edge(0, 1)
	if !x.Has(0, 1) {
		t.Fatalf("expected Has(0,1) to be true after Edge() call")
	}
}

func TestRemoveDropsEdge(t *testing.T) {
	x := New()
	x.Edge(0, 1)
	if err := x.Remove(0, 1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if x.Has(0, 1) {
		t.Fatalf("expected Has(0,1) to be false after Remove")
	}
}

func TestRemoveUnknownEdgeFails(t *testing.T) {
	x := New()
	if err := x.Remove(3, 4); err == nil {
		t.Fatalf("expected an error removing a never-added edge")
	}
}

func TestAroundListsNeighbors(t *testing.T) {
	x := New()
	x.Edge(0, 1)
	x.Edge(0, 2)
	x.Edge(0, 3)
	around, err := x.Around(0)
	if err != nil {
		t.Fatalf("Around: %v", err)
	}
	if len(around) != 3 {
		t.Fatalf("Around(0) = %v, want 3 neighbors", around)
	}
}

func TestRemoveNodeDropsAllIncidentEdges(t *testing.T) {
	x := New()
	x.Edge(0, 1)
	x.Edge(0, 2)
	if err := x.RemoveNode(0); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if x.Has(0, 1) || x.Has(0, 2) {
		t.Fatalf("expected every edge touching node 0 to be gone")
	}
}

func TestLockUnlock(t *testing.T) {
	x := New()
	h, _ := x.Edge(0, 1)
	if x.Locked(h) {
		t.Fatalf("edge should not be locked initially")
	}
	x.Lock(h)
	if !x.Locked(h) {
		t.Fatalf("expected edge to be locked after Lock")
	}
	x.UnlockAll()
	if x.Locked(h) {
		t.Fatalf("expected UnlockAll to clear the lock")
	}
}

func TestNonManifoldEdgesDetectsOversharedEdge(t *testing.T) {
	counts := map[[2]int]int{
		{0, 1}: 2,
		{1, 2}: 5,
	}
	err := NonManifoldEdges(counts, 2)
	if err == nil {
		t.Fatalf("expected an error for an edge shared by 5 cells")
	}
}

func TestNonManifoldEdgesAcceptsManifoldMesh(t *testing.T) {
	counts := map[[2]int]int{
		{0, 1}: 2,
		{1, 2}: 2,
	}
	if err := NonManifoldEdges(counts, 2); err != nil {
		t.Fatalf("expected no error for a manifold edge set, got %v", err)
	}
}
