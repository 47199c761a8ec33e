// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package adapt implements the four mesh-adaptation operators
// (collapse, split, swap, smooth) and the driver loop that applies
// them in passes, in the predicate-cascade style of
// original_source/two/ref_collapse.c and
// original_source/src/ref_swap.c: each operator tries a sequence of
// independent "is this allowed" checks and bails at the first one that
// rejects the operation, rather than building one monolithic
// condition.
package adapt

import (
	"github.com/cpmech/goref/edgeidx"
	"github.com/cpmech/goref/meshmodel"
	"github.com/cpmech/goref/metric"
	"github.com/cpmech/goref/status"
)

// Params bundles the tunable thresholds the operators read, mirroring
// ref_collapse.c's ref_adapt_collapse_ratio_limit /
// ref_adapt_collapse_quality_absolute globals as explicit,
// per-Driver-instance fields instead of process-wide state.
type Params struct {
	CollapseRatioLimit     float64 // only edges shorter than this metric-ratio are collapse candidates, and collapsing must not create an edge longer than it
	CollapseQualityAbs     float64 // collapsing must not drop any surviving tet below this quality
	SplitRatioLimit        float64 // only edges longer than this metric-ratio are split candidates
	SplitQualityAbs        float64 // splitting must not create a tet below this quality
	SwapQualityImprove     float64 // a swap must raise the worst local quality by at least this much
	SmoothQualityAbs       float64 // smoothing backs off a step that would drop quality below this
	SmoothMaxAge           int     // nodes swept this many times without improvement are skipped
	SmoothBacktrackFactor  float64 // step-length shrink factor per backtrack iteration
	SmoothMaxBacktracks    int
}

// DefaultParams returns the default thresholds: collapse edges below
// 0.6 of the target metric length, split edges above 1.5 times it.
func DefaultParams() Params {
	return Params{
		CollapseRatioLimit:    0.6,
		CollapseQualityAbs:    1.0e-3,
		SplitRatioLimit:       1.5,
		SplitQualityAbs:       1.0e-3,
		SwapQualityImprove:    1.0e-6,
		SmoothQualityAbs:      1.0e-3,
		SmoothMaxAge:          3,
		SmoothBacktrackFactor: 0.5,
		SmoothMaxBacktracks:   6,
	}
}

// tetsAt returns the live tet-cell local indices touching node.
func tetsAt(g *meshmodel.Grid, node int) []int {
	touching := g.Cells(meshmodel.Tet).CellsAtNode(node)
	out := make([]int, 0, len(touching))
	for _, c := range touching {
		if g.Cells(meshmodel.Tet).IsLive(int(c)) {
			out = append(out, int(c))
		}
	}
	return out
}

// collapseMixedOK reproduces ref_collapse_edge_mixed: node1 (the node
// being removed) must not be referenced by any non-tet volume cell
// (pyramid/prism/hex), since this module's operators only know how to
// repair tet connectivity.
func collapseMixedOK(g *meshmodel.Grid, node1 int) bool {
	for _, k := range []meshmodel.Kind{meshmodel.Pyr, meshmodel.Pri, meshmodel.Hex} {
		if ct, ok := g.KindIfPresent(k); ok && len(ct.CellsAtNode(node1)) > 0 {
			return false
		}
	}
	return true
}

// collapseLocalOK reproduces ref_collapse_edge_local_tets: every tet
// touching either endpoint must be owned by this rank, since folding a
// ghost-owned tet would desynchronize the owning rank's copy.
func collapseLocalOK(g *meshmodel.Grid, node0, node1, rank int) bool {
	ct := g.Cells(meshmodel.Tet)
	for _, node := range [2]int{node0, node1} {
		for _, c := range tetsAt(g, node) {
			if ct.Owner(c) != rank {
				return false
			}
		}
	}
	return true
}

// collapseQualityOK reproduces ref_collapse_edge_quality: simulate
// folding node1 into node0 across every tet that survives (those not
// already touching both endpoints), and reject if any surviving edge
// would exceed the ratio limit or any surviving tet would drop below
// the absolute quality floor.
func collapseQualityOK(g *meshmodel.Grid, node0, node1 int, p Params) (bool, error) {
	ct := g.Cells(meshmodel.Tet)
	nt := g.Nodes
	for _, c := range tetsAt(g, node1) {
		nodes := ct.Nodes(c)
		willCollapse := false
		for _, n := range nodes {
			if n == node0 {
				willCollapse = true
			}
		}
		if willCollapse {
			continue
		}
		for _, n := range nodes {
			if n == node1 {
				continue
			}
			r := metric.Ratio(nt.Metric(node0), nt.Metric(n), toVec(nt.XYZ(node0)), toVec(nt.XYZ(n)))
			if r > p.CollapseRatioLimit {
				return false, nil
			}
		}
		replaced := make([]int, len(nodes))
		copy(replaced, nodes)
		for i, n := range replaced {
			if n == node1 {
				replaced[i] = node0
			}
		}
		if len(replaced) != 4 {
			return false, status.Errf(status.Failure, "adapt.collapseQualityOK", "expected a 4-node tet, got %d nodes", len(replaced))
		}
		a, b, cc, d := nt.XYZ(replaced[0]), nt.XYZ(replaced[1]), nt.XYZ(replaced[2]), nt.XYZ(replaced[3])
		ma, mb, mc, md := nt.Metric(replaced[0]), nt.Metric(replaced[1]), nt.Metric(replaced[2]), nt.Metric(replaced[3])
		q := metric.TetQualityEPIC(toVec(a), toVec(b), toVec(cc), toVec(d), ma, mb, mc, md)
		if q < p.CollapseQualityAbs {
			return false, nil
		}
	}
	return true, nil
}

func toVec(a [3]float64) metric.Vec3 { return metric.Vec3{a[0], a[1], a[2]} }

// CollapseEdge attempts to fold node1 into node0, removing the edge
// between them and every tet that referenced both. It returns whether
// the collapse was performed; a false result with a nil error is an
// ordinary rejection (one of the predicates said no), matching
// ref_collapse_to_remove_node1's "the answer is no" contract rather
// than an exceptional failure.
func CollapseEdge(g *meshmodel.Grid, idx *edgeidx.Index, node0, node1 int, rank int, p Params) (bool, error) {
	if !collapseMixedOK(g, node1) {
		return false, nil
	}
	if !collapseLocalOK(g, node0, node1, rank) {
		return false, nil
	}
	ok, err := collapseQualityOK(g, node0, node1, p)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	ct := g.Cells(meshmodel.Tet)
	for _, c := range tetsAt(g, node1) {
		if ct.HasNode(c, node0) {
			if err := ct.Remove(c); err != nil {
				return false, status.Errf(status.Failure, "adapt.CollapseEdge", "removing collapsed tet: %v", err)
			}
			continue
		}
		if err := ct.ReplaceNode(c, node1, node0); err != nil {
			return false, status.Errf(status.Failure, "adapt.CollapseEdge", "repointing surviving tet: %v", err)
		}
	}
	if err := idx.RemoveNode(node1); err != nil {
		return false, status.Errf(status.Failure, "adapt.CollapseEdge", "edge index cleanup: %v", err)
	}
	if err := g.Nodes.Remove(node1); err != nil {
		return false, status.Errf(status.Failure, "adapt.CollapseEdge", "node table cleanup: %v", err)
	}
	return true, nil
}
