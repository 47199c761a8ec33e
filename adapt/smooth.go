// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adapt

import (
	"github.com/cpmech/goref/meshmodel"
	"github.com/cpmech/goref/metric"
)

// localQualityAndGrad returns the worst incident-tet quality at node
// and its gradient with respect to node's own position, taken from
// metric.TetEPICDQualityDNode0 (each tet's nodes are reordered so node
// plays the "node0" role that function differentiates with respect
// to). Per-tet gradients are not summed: only the minimum-quality
// tet's gradient is returned, so a step along it points the worst tet
// toward improvement, matching the way ref_node.c's smoothing always
// targets the binding constraint rather than averaging over every tet.
func localQualityAndGrad(g *meshmodel.Grid, node int) (minQ float64, grad metric.Vec3, tets []int) {
	tets = tetsAt(g, node)
	minQ = 1e300
	for _, local := range tets {
		nodes := rotateToFront(g.Cells(meshmodel.Tet).Nodes(local), node)
		a, b, c, d := g.Nodes.XYZ(nodes[0]), g.Nodes.XYZ(nodes[1]), g.Nodes.XYZ(nodes[2]), g.Nodes.XYZ(nodes[3])
		ma, mb, mc, md := g.Nodes.Metric(nodes[0]), g.Nodes.Metric(nodes[1]), g.Nodes.Metric(nodes[2]), g.Nodes.Metric(nodes[3])
		q, g0 := metric.TetEPICDQualityDNode0(toVec(a), toVec(b), toVec(c), toVec(d), ma, mb, mc, md)
		if q < minQ {
			minQ = q
			grad = g0
		}
	}
	return
}

// rotateToFront returns a tet's four nodes with target moved to index
// 0 by an even permutation (swapping two disjoint pairs), so the
// reordered tet keeps the orientation, and hence the volume sign, of
// the original; the orientation-sensitive quality formulas then see
// the same tet with target as the differentiation node.
func rotateToFront(nodes []int, target int) []int {
	out := make([]int, len(nodes))
	idx := 0
	for i, n := range nodes {
		if n == target {
			idx = i
		}
	}
	for i := range nodes {
		out[i] = nodes[idx^i]
	}
	return out
}

// SmoothNode relocates an owned, non-boundary node to improve the
// worst quality among its incident tets, per spec.md §4.7: first a
// backtracking gradient-ascent step (the objective is quality, so the
// step moves along +grad), falling back to simplex-of-neighbours
// relaxation (moving to the centroid of the incident ring) if the
// gradient step never improves. It returns whether the node moved;
// age is bumped on a reject so the caller can feed high-age nodes to
// the next rebalance, matching spec.md §4.6's age-counter convention
// reused here for smoothing rejects.
func SmoothNode(g *meshmodel.Grid, node int, rank int, p Params) (bool, error) {
	if g.Nodes.Owner(node) != rank {
		return false, nil
	}
	if tri, ok := g.KindIfPresent(meshmodel.Tri); ok && len(tri.CellsAtNode(node)) > 0 {
		return false, nil
	}
	if g.Nodes.Age(node) >= p.SmoothMaxAge {
		return false, nil
	}
	for _, local := range tetsAt(g, node) {
		if g.Cells(meshmodel.Tet).Owner(local) != rank {
			g.Nodes.BumpAge(node)
			return false, nil
		}
	}

	q0, grad, tets := localQualityAndGrad(g, node)
	if len(tets) == 0 {
		return false, nil
	}
	x0 := g.Nodes.XYZ(node)

	if moved := tryGradientStep(g, node, x0, q0, grad, p); moved {
		g.Nodes.ResetAge(node)
		return true, nil
	}
	if moved := trySimplexFallback(g, node, x0, q0, tets, p); moved {
		g.Nodes.ResetAge(node)
		return true, nil
	}
	g.Nodes.BumpAge(node)
	return false, nil
}

// tryGradientStep takes successively shorter steps along the quality
// gradient, accepting the first one that strictly improves the node's
// worst incident quality without dropping any incident tet below
// SmoothQualityAbs.
func tryGradientStep(g *meshmodel.Grid, node int, x0 [3]float64, q0 float64, grad metric.Vec3, p Params) bool {
	gn := metric.Norm(grad)
	if gn <= 0 {
		return false
	}
	dir := metric.Vec3{grad[0] / gn, grad[1] / gn, grad[2] / gn}
	step := characteristicLength(g, node)
	for i := 0; i < p.SmoothMaxBacktracks; i++ {
		trial := [3]float64{x0[0] + step*dir[0], x0[1] + step*dir[1], x0[2] + step*dir[2]}
		g.Nodes.SetXYZ(node, trial)
		q, _, _ := localQualityAndGrad(g, node)
		if q > q0 && q >= p.SmoothQualityAbs {
			return true
		}
		step *= p.SmoothBacktrackFactor
	}
	g.Nodes.SetXYZ(node, x0)
	return false
}

// trySimplexFallback relocates node to the centroid of its incident
// ring (the nodes of every tet it touches, excluding itself), the
// "simplex of neighbours" relaxation spec.md §4.7 falls back to when
// the gradient step stalls.
func trySimplexFallback(g *meshmodel.Grid, node int, x0 [3]float64, q0 float64, tets []int, p Params) bool {
	sum := [3]float64{}
	n := 0
	seen := map[int]bool{node: true}
	ct := g.Cells(meshmodel.Tet)
	for _, local := range tets {
		for _, nb := range ct.Nodes(local) {
			if seen[nb] {
				continue
			}
			seen[nb] = true
			xyz := g.Nodes.XYZ(nb)
			sum[0] += xyz[0]
			sum[1] += xyz[1]
			sum[2] += xyz[2]
			n++
		}
	}
	if n == 0 {
		return false
	}
	trial := [3]float64{sum[0] / float64(n), sum[1] / float64(n), sum[2] / float64(n)}
	g.Nodes.SetXYZ(node, trial)
	q, _, _ := localQualityAndGrad(g, node)
	if q > q0 && q >= p.SmoothQualityAbs {
		return true
	}
	g.Nodes.SetXYZ(node, x0)
	return false
}

// characteristicLength estimates a sensible initial step size as the
// shortest edge (in plain Euclidean distance) from node to any of its
// incident-tet neighbours, so the line search starts near the local
// mesh scale instead of an arbitrary constant.
func characteristicLength(g *meshmodel.Grid, node int) float64 {
	x0 := g.Nodes.XYZ(node)
	best := -1.0
	ct := g.Cells(meshmodel.Tet)
	for _, local := range tetsAt(g, node) {
		for _, nb := range ct.Nodes(local) {
			if nb == node {
				continue
			}
			d := metric.Norm(metric.Sub(toVec(g.Nodes.XYZ(nb)), toVec(x0)))
			if best < 0 || d < best {
				best = d
			}
		}
	}
	if best <= 0 {
		return 1.0
	}
	return 0.25 * best
}
