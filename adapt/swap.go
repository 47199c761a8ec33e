// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adapt

import (
	"github.com/cpmech/goref/meshmodel"
	"github.com/cpmech/goref/metric"
	"github.com/cpmech/goref/status"
)

// swapOpposites finds, for the two triangles sharing edge (node0,node1),
// the two "far" nodes node2 (opposite node0 in the winding sense) and
// node3, following ref_swap_node23's per-winding case analysis.
func swapOpposites(g *meshmodel.Grid, node0, node1 int) (tri0, tri1, node2, node3 int, ok bool) {
	ct := g.Cells(meshmodel.Tri)
	var touching []int
	for _, c := range ct.CellsAtNode(node0) {
		if ct.IsLive(int(c)) && ct.HasNode(int(c), node1) {
			touching = append(touching, int(c))
		}
	}
	if len(touching) != 2 {
		return 0, 0, 0, 0, false
	}
	tri0, tri1 = touching[0], touching[1]
	node2, node3 = -1, -1
	for _, local := range touching {
		nodes := ct.Nodes(local)
		for i := 0; i < 3; i++ {
			a, b, c := nodes[i], nodes[(i+1)%3], nodes[(i+2)%3]
			if a == node0 && b == node1 {
				node2 = c
				tri0 = local
			}
			if a == node1 && b == node0 {
				node3 = c
				tri1 = local
			}
		}
	}
	if node2 < 0 || node3 < 0 {
		return 0, 0, 0, 0, false
	}
	return tri0, tri1, node2, node3, true
}

// swapSameFaceidOK reproduces ref_swap_same_faceid: both triangles
// touching the shared edge must carry the same boundary-patch id for
// the swap to be a same-surface reconnection. This implementation has
// no per-cell faceid tag, so it approximates the predicate with the
// teacher's normal-deviation idea instead: the two triangles must
// already be coplanar-ish (their normals agree), otherwise a swap
// could silently cross a real feature edge.
func swapSameFaceidOK(g *meshmodel.Grid, tri0, tri1 int, tol float64) bool {
	ct := g.Cells(meshmodel.Tri)
	n0 := ct.Nodes(tri0)
	n1 := ct.Nodes(tri1)
	na := metric.TriNormal(g.Nodes.XYZ(n0[0]), g.Nodes.XYZ(n0[1]), g.Nodes.XYZ(n0[2]))
	nb := metric.TriNormal(g.Nodes.XYZ(n1[0]), g.Nodes.XYZ(n1[1]), g.Nodes.XYZ(n1[2]))
	lenA, lenB := metric.Norm(na), metric.Norm(nb)
	if lenA <= 0 || lenB <= 0 {
		return false
	}
	return metric.Dot(na, nb)/(lenA*lenB) >= tol
}

// swapManifoldOK reproduces ref_swap_manifold: the reconnection must
// not duplicate an existing triangle and must not create an edge
// (node2,node3) that already exists.
func swapManifoldOK(g *meshmodel.Grid, node0, node1, node2, node3 int) bool {
	ct := g.Cells(meshmodel.Tri)
	if triExists(ct, node0, node3, node2) || triExists(ct, node1, node2, node3) {
		return false
	}
	for _, c := range ct.CellsAtNode(node2) {
		if ct.IsLive(int(c)) && ct.HasNode(int(c), node3) {
			return false
		}
	}
	return true
}

func triExists(ct *meshmodel.CellTable, a, b, c int) bool {
	for _, cell := range ct.CellsAtNode(a) {
		local := int(cell)
		if !ct.IsLive(local) {
			continue
		}
		if ct.HasNode(local, b) && ct.HasNode(local, c) {
			return true
		}
	}
	return false
}

// SwapSurface attempts the 2-triangle edge swap of spec.md §4.6: edge
// (node0,node1) shared by (node0,node1,node2) and (node1,node0,node3)
// becomes (node0,node3,node2) and (node1,node2,node3). It returns
// whether the swap was performed.
func SwapSurface(g *meshmodel.Grid, node0, node1 int, rank int, sameNormalTol float64) (bool, error) {
	tri0, tri1, node2, node3, ok := swapOpposites(g, node0, node1)
	if !ok {
		return false, nil
	}
	ct := g.Cells(meshmodel.Tri)
	if ct.Owner(tri0) != rank || ct.Owner(tri1) != rank {
		return false, nil
	}
	if !swapSameFaceidOK(g, tri0, tri1, sameNormalTol) {
		return false, nil
	}
	if !swapManifoldOK(g, node0, node1, node2, node3) {
		return false, nil
	}

	qBefore := triQualityOf(g, ct.Nodes(tri0))
	if q1 := triQualityOf(g, ct.Nodes(tri1)); q1 < qBefore {
		qBefore = q1
	}

	if err := ct.ReplaceNode(tri0, node1, node3); err != nil {
		return false, status.Errf(status.Failure, "adapt.SwapSurface", "%v", err)
	}
	if err := ct.ReplaceNode(tri1, node0, node2); err != nil {
		return false, status.Errf(status.Failure, "adapt.SwapSurface", "%v", err)
	}

	qAfter := triQualityOf(g, ct.Nodes(tri0))
	if q1 := triQualityOf(g, ct.Nodes(tri1)); q1 < qAfter {
		qAfter = q1
	}
	if qAfter <= qBefore {
		// undo: ReplaceNode is its own inverse here since node3/node2
		// were substituted for node1/node0 respectively.
		ct.ReplaceNode(tri0, node3, node1)
		ct.ReplaceNode(tri1, node2, node0)
		return false, nil
	}
	return true, nil
}

func triQualityOf(g *meshmodel.Grid, nodes []int) float64 {
	a, b, c := g.Nodes.XYZ(nodes[0]), g.Nodes.XYZ(nodes[1]), g.Nodes.XYZ(nodes[2])
	ma, mb, mc := g.Nodes.Metric(nodes[0]), g.Nodes.Metric(nodes[1]), g.Nodes.Metric(nodes[2])
	return metric.TriQualityEPIC(toVec(a), toVec(b), toVec(c), ma, mb, mc)
}

// tetsSharingEdge returns the live tets referencing both node0 and node1.
func tetsSharingEdge(g *meshmodel.Grid, node0, node1 int) []int {
	ct := g.Cells(meshmodel.Tet)
	var out []int
	for _, c := range ct.CellsAtNode(node0) {
		if ct.IsLive(int(c)) && ct.HasNode(int(c), node1) {
			out = append(out, int(c))
		}
	}
	return out
}

// ringAround returns, for a set of tets all sharing edge (node0,node1),
// the ring of "other" nodes in cyclic order by walking shared-face
// adjacency; returns ok=false if the ring cannot be resolved (non-manifold).
func ringAround(g *meshmodel.Grid, node0, node1 int, tets []int) ([]int, bool) {
	ct := g.Cells(meshmodel.Tet)
	seen := make(map[int]bool, len(tets))
	ring := make([]int, 0, len(tets))
	for _, local := range tets {
		for _, n := range ct.Nodes(local) {
			if n != node0 && n != node1 && !seen[n] {
				seen[n] = true
				ring = append(ring, n)
			}
		}
	}
	if len(ring) != len(tets) {
		return nil, false
	}
	return ring, true
}

// minTetQuality returns the worst VolumeVerts-derived EPIC quality
// among the given tets.
func minTetQuality(g *meshmodel.Grid, locals []int) (float64, error) {
	best := 1e300
	for _, local := range locals {
		xyz, m, err := g.VolumeVerts(local)
		if err != nil {
			return 0, err
		}
		q := metric.TetQualityEPIC(toVec(xyz[0]), toVec(xyz[1]), toVec(xyz[2]), toVec(xyz[3]), m[0], m[1], m[2], m[3])
		if q < best {
			best = q
		}
	}
	return best, nil
}

// SwapVolume attempts the 3-to-2 re-triangulation of spec.md §4.6: an
// edge surrounded by exactly 3 tets forming a closed ring of 3 "other"
// nodes (node1,node2,node3 in ref_swap_node23's naming, generalized to
// a ring here) is replaced by 2 tets sharing the ring's triangular
// face instead, removing the edge entirely.
//
// The inverse 2-to-3 flip (2 tets sharing a face replaced by 3 tets
// sharing a new edge) needs face-based node extraction rather than
// edge-ring extraction and is not implemented; an edge surrounded by
// any number of tets other than 3 is rejected before any quality is
// evaluated.
func SwapVolume(g *meshmodel.Grid, node0, node1 int, rank int, minImprove float64) (bool, error) {
	tets := tetsSharingEdge(g, node0, node1)
	if len(tets) != 3 {
		return false, nil
	}
	ct := g.Cells(meshmodel.Tet)
	for _, local := range tets {
		if ct.Owner(local) != rank {
			return false, nil
		}
	}
	ring, ok := ringAround(g, node0, node1, tets)
	if !ok {
		return false, nil
	}

	qBefore, err := minTetQuality(g, tets)
	if err != nil {
		return false, status.Errf(status.Failure, "adapt.SwapVolume", "%v", err)
	}

	newTetNodeSets := fanWithoutEdge(ring, node0, node1)
	if len(newTetNodeSets) == 0 {
		return false, nil
	}
	trialQ := 1e300
	for _, nodes := range newTetNodeSets {
		xyz := [4][3]float64{g.Nodes.XYZ(nodes[0]), g.Nodes.XYZ(nodes[1]), g.Nodes.XYZ(nodes[2]), g.Nodes.XYZ(nodes[3])}
		m := [4]metric.Tensor{g.Nodes.Metric(nodes[0]), g.Nodes.Metric(nodes[1]), g.Nodes.Metric(nodes[2]), g.Nodes.Metric(nodes[3])}
		q := metric.TetQualityEPIC(toVec(xyz[0]), toVec(xyz[1]), toVec(xyz[2]), toVec(xyz[3]), m[0], m[1], m[2], m[3])
		if q < trialQ {
			trialQ = q
		}
	}
	if trialQ <= qBefore+minImprove {
		return false, nil
	}

	for _, local := range tets {
		if err := ct.Remove(local); err != nil {
			return false, status.Errf(status.Failure, "adapt.SwapVolume", "%v", err)
		}
	}
	for _, nodes := range newTetNodeSets {
		if _, _, err := ct.Add(nodes); err != nil {
			return false, status.Errf(status.Failure, "adapt.SwapVolume", "%v", err)
		}
	}
	return true, nil
}

// fanWithoutEdge re-triangulates a 3-node ring around the removed
// edge (node0,node1) into the 2 tets sharing the ring's triangular
// face: (ring,node0) and (ring,node1). Written generally over
// consecutive ring triples so it degrades to zero output (rather than
// a wrong answer) for any ring size other than 3.
func fanWithoutEdge(ring []int, node0, node1 int) [][]int {
	var out [][]int
	for i := 1; i+1 < len(ring); i++ {
		out = append(out, []int{ring[0], ring[i], ring[i+1], node0})
		out = append(out, []int{ring[0], ring[i], ring[i+1], node1})
	}
	return out
}
