// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adapt

import (
	"github.com/cpmech/goref/edgeidx"
	"github.com/cpmech/goref/meshmodel"
	"github.com/cpmech/goref/metric"
	"github.com/cpmech/goref/status"
)

// SplitEdge bisects every tet (and, for a surface grid, every tri)
// containing edge (n0,n1), inserting one new node at the geodesic
// midpoint under the metric. It mirrors CollapseEdge's contract: a
// false/nil result is an ordinary gate rejection, not a failure.
//
// This implementation has no CAD/geometry model to project onto (no
// faceid-bearing boundary representation is tracked per node), so it
// omits spec.md §4.5 step 2 unconditionally rather than approximating
// it; every node this operator creates is an interior/linear-geometry
// node.
func SplitEdge(g *meshmodel.Grid, idx *edgeidx.Index, n0, n1 int, rank int, p Params) (newNode int, did bool, err error) {
	ratio := metric.Ratio(g.Nodes.Metric(n0), g.Nodes.Metric(n1), toVec(g.Nodes.XYZ(n0)), toVec(g.Nodes.XYZ(n1)))
	if ratio < p.SplitRatioLimit {
		return 0, false, nil
	}

	tetCells := splitTouchingCells(g, meshmodel.Tet, n0, n1)
	triCells := splitTouchingCells(g, meshmodel.Tri, n0, n1)
	if len(tetCells) == 0 && len(triCells) == 0 {
		return 0, false, nil
	}
	for _, local := range append(append([]int{}, tetCells...), triCells...) {
		kind := meshmodel.Tet
		if contains(triCells, local) {
			kind = meshmodel.Tri
		}
		if g.Cells(kind).Owner(local) != rank {
			return 0, false, nil
		}
	}

	xyz, m, err := metric.Interpolate(toVec(g.Nodes.XYZ(n0)), toVec(g.Nodes.XYZ(n1)), g.Nodes.LogMetric(n0), g.Nodes.LogMetric(n1), 0.5)
	if err != nil {
		return 0, false, status.Errf(status.Failure, "adapt.SplitEdge", "metric interpolation: %v", err)
	}

	newNode, _, err = g.Nodes.Add([3]float64{xyz[0], xyz[1], xyz[2]}, m)
	if err != nil {
		return 0, false, status.Errf(status.Failure, "adapt.SplitEdge", "adding midpoint node: %v", err)
	}

	var createdTets, createdTris []int
	var removedTets, removedTris [][]int
	rollback := func() {
		for _, c := range createdTets {
			g.Cells(meshmodel.Tet).Remove(c)
		}
		for _, c := range createdTris {
			g.Cells(meshmodel.Tri).Remove(c)
		}
		for _, nodes := range removedTets {
			g.Cells(meshmodel.Tet).Add(nodes)
		}
		for _, nodes := range removedTris {
			g.Cells(meshmodel.Tri).Add(nodes)
		}
		g.Nodes.Remove(newNode)
	}

	for _, local := range tetCells {
		removedTets = append(removedTets, append([]int(nil), g.Cells(meshmodel.Tet).Nodes(local)...))
		children, e := bisectTet(g, local, n0, n1, newNode)
		if e != nil {
			rollback()
			return 0, false, status.Errf(status.Failure, "adapt.SplitEdge", "bisecting tet: %v", e)
		}
		createdTets = append(createdTets, children...)
	}
	for _, local := range triCells {
		removedTris = append(removedTris, append([]int(nil), g.Cells(meshmodel.Tri).Nodes(local)...))
		children, e := bisectTri(g, local, n0, n1, newNode)
		if e != nil {
			rollback()
			return 0, false, status.Errf(status.Failure, "adapt.SplitEdge", "bisecting tri: %v", e)
		}
		createdTris = append(createdTris, children...)
	}

	if ok, e := splitGateOK(g, newNode, n0, n1, ratio, createdTets, createdTris, p); e != nil {
		rollback()
		return 0, false, e
	} else if !ok {
		rollback()
		return 0, false, nil
	}

	if _, e := idx.Edge(n0, newNode); e != nil {
		rollback()
		return 0, false, status.Errf(status.Failure, "adapt.SplitEdge", "%v", e)
	}
	if _, e := idx.Edge(n1, newNode); e != nil {
		rollback()
		return 0, false, status.Errf(status.Failure, "adapt.SplitEdge", "%v", e)
	}
	if e := idx.Remove(n0, n1); e != nil && !status.Is(e, status.NotFound) {
		rollback()
		return 0, false, status.Errf(status.Failure, "adapt.SplitEdge", "%v", e)
	}
	return newNode, true, nil
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// splitTouchingCells returns the live cells of kind referencing both
// n0 and n1.
func splitTouchingCells(g *meshmodel.Grid, kind meshmodel.Kind, n0, n1 int) []int {
	ct, ok := g.KindIfPresent(kind)
	if !ok {
		return nil
	}
	var out []int
	for _, c := range ct.CellsAtNode(n0) {
		if ct.IsLive(int(c)) && ct.HasNode(int(c), n1) {
			out = append(out, int(c))
		}
	}
	return out
}

// bisectTet replaces tet `local` (which references both n0 and n1)
// with two children sharing newNode in place of n0 in one and n1 in
// the other, per spec.md §4.5 step 3.
func bisectTet(g *meshmodel.Grid, local, n0, n1, newNode int) ([]int, error) {
	ct := g.Cells(meshmodel.Tet)
	nodes := append([]int(nil), ct.Nodes(local)...)
	childA := make([]int, len(nodes))
	childB := make([]int, len(nodes))
	copy(childA, nodes)
	copy(childB, nodes)
	for i, n := range nodes {
		if n == n0 {
			childA[i] = newNode
		}
		if n == n1 {
			childB[i] = newNode
		}
	}
	if err := ct.Remove(local); err != nil {
		return nil, err
	}
	la, _, err := ct.Add(childA)
	if err != nil {
		return nil, err
	}
	lb, _, err := ct.Add(childB)
	if err != nil {
		return nil, err
	}
	return []int{la, lb}, nil
}

// bisectTri mirrors bisectTet for a triangle's two children.
func bisectTri(g *meshmodel.Grid, local, n0, n1, newNode int) ([]int, error) {
	ct := g.Cells(meshmodel.Tri)
	nodes := append([]int(nil), ct.Nodes(local)...)
	childA := make([]int, len(nodes))
	childB := make([]int, len(nodes))
	copy(childA, nodes)
	copy(childB, nodes)
	for i, n := range nodes {
		if n == n0 {
			childA[i] = newNode
		}
		if n == n1 {
			childB[i] = newNode
		}
	}
	if err := ct.Remove(local); err != nil {
		return nil, err
	}
	la, _, err := ct.Add(childA)
	if err != nil {
		return nil, err
	}
	lb, _, err := ct.Add(childB)
	if err != nil {
		return nil, err
	}
	return []int{la, lb}, nil
}

// splitGateOK reproduces spec.md §4.5 step 4: both new half-edges
// touching newNode must be strictly shorter, in metric-ratio terms,
// than the edge that triggered the split (so the split actually made
// progress toward the target length), and every new cell must clear
// the absolute quality floor.
func splitGateOK(g *meshmodel.Grid, newNode, n0, n1 int, preSplitRatio float64, tets, tris []int, p Params) (bool, error) {
	for _, nb := range []int{n0, n1} {
		r := metric.Ratio(g.Nodes.Metric(newNode), g.Nodes.Metric(nb), toVec(g.Nodes.XYZ(newNode)), toVec(g.Nodes.XYZ(nb)))
		if r <= 0 || r >= preSplitRatio {
			return false, nil
		}
	}
	for _, local := range tets {
		xyz, m, err := g.VolumeVerts(local)
		if err != nil {
			return false, status.Errf(status.Failure, "adapt.splitGateOK", "%v", err)
		}
		q := metric.TetQualityEPIC(toVec(xyz[0]), toVec(xyz[1]), toVec(xyz[2]), toVec(xyz[3]), m[0], m[1], m[2], m[3])
		if q < p.SplitQualityAbs {
			return false, nil
		}
	}
	tct, ok := g.KindIfPresent(meshmodel.Tri)
	if ok {
		for _, local := range tris {
			nodes := tct.Nodes(local)
			a, b, c := g.Nodes.XYZ(nodes[0]), g.Nodes.XYZ(nodes[1]), g.Nodes.XYZ(nodes[2])
			ma, mb, mc := g.Nodes.Metric(nodes[0]), g.Nodes.Metric(nodes[1]), g.Nodes.Metric(nodes[2])
			q := metric.TriQualityEPIC(toVec(a), toVec(b), toVec(c), ma, mb, mc)
			if q < p.SplitQualityAbs {
				return false, nil
			}
		}
	}
	return true, nil
}
