// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package partition implements the recursive-coordinate-bisection
// (RCB) geometric partitioner spec.md §4.8 assigns to the
// "Partitioner" component. spec.md §9 notes the reference
// implementation's dependence on Zoltan is optional and that a
// geometric space-filling-curve partitioner of equivalent contract
// ("take (xyz, weight) tuples, produce new-part assignments") is an
// acceptable substitute; this package is that substitute: it uses
// sortutil.ByKeyAscending to sort points by a scalar key, recursively
// sorting and bisecting along whichever coordinate axis carries the
// most spread.
package partition

import "github.com/cpmech/goref/sortutil"

// Point is one RCB input: a node's coordinates and its partitioning
// weight (spec.md §4.8 "weights default to 1.0 per node").
type Point struct {
	XYZ    [3]float64
	Weight float64
}

// RCB assigns each point a part index in [0,nparts), splitting the
// point set recursively in half by total weight along its
// longest-extent axis until nparts leaf buckets remain. nparts need
// not be a power of two: at each recursion the current bucket is
// split into a low half sized proportionally to the number of parts
// it must eventually cover.
func RCB(points []Point, nparts int) []int {
	parts := make([]int, len(points))
	if nparts <= 1 || len(points) == 0 {
		return parts
	}
	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}
	bisect(points, idx, 0, nparts, parts)
	return parts
}

// bisect assigns every point in idx a part in [partLo, partLo+nparts),
// recursing on the half that still covers more than one part.
func bisect(points []Point, idx []int, partLo, nparts int, parts []int) {
	if nparts <= 1 {
		for _, i := range idx {
			parts[i] = partLo
		}
		return
	}
	axis := longestAxis(points, idx)
	sortutil.ByKeyAscending(idx, func(i int) float64 { return points[i].XYZ[axis] })

	// splitParts is how many parts the low half should cover,
	// proportional to nparts so an uneven nparts still balances.
	splitParts := nparts / 2
	if splitParts < 1 {
		splitParts = 1
	}
	total := 0.0
	for _, i := range idx {
		total += points[i].Weight
	}
	target := total * float64(splitParts) / float64(nparts)

	cum := 0.0
	cut := len(idx)
	for k, i := range idx {
		cum += points[i].Weight
		if cum >= target {
			cut = k + 1
			break
		}
	}
	if cut == 0 {
		cut = 1
	}
	if cut == len(idx) && nparts > 1 {
		cut = len(idx) - 1
	}

	bisect(points, idx[:cut], partLo, splitParts, parts)
	bisect(points, idx[cut:], partLo+splitParts, nparts-splitParts, parts)
}

// longestAxis returns the coordinate axis (0=x,1=y,2=z) with the
// largest bounding-box extent over idx, the axis RCB splits along
// next.
func longestAxis(points []Point, idx []int) int {
	var lo, hi [3]float64
	lo = points[idx[0]].XYZ
	hi = points[idx[0]].XYZ
	for _, i := range idx[1:] {
		for a := 0; a < 3; a++ {
			v := points[i].XYZ[a]
			if v < lo[a] {
				lo[a] = v
			}
			if v > hi[a] {
				hi[a] = v
			}
		}
	}
	best, bestSpread := 0, hi[0]-lo[0]
	for a := 1; a < 3; a++ {
		if spread := hi[a] - lo[a]; spread > bestSpread {
			best, bestSpread = a, spread
		}
	}
	return best
}

// AgglomerateVerticalPairs fuses points that share the same (x,y)
// footprint (within tol) into a single RCB point whose weight is the
// sum of the pair's weights, the "agglomeration may fuse
// vertically-paired nodes in 2D extrusions into a single RCB point to
// keep layers together" rule of spec.md §4.8. key must return an
// identical string for every node sharing a vertical column (e.g. a
// caller-supplied "layer" identifier); points sharing a key are
// merged into one Point located at the first member's xyz. It returns
// the agglomerated points plus, for every original index, which
// agglomerated point it maps to.
func AgglomerateVerticalPairs(points []Point, key func(i int) string) (agg []Point, owner []int) {
	owner = make([]int, len(points))
	groupOf := make(map[string]int)
	for i, p := range points {
		k := key(i)
		g, ok := groupOf[k]
		if !ok {
			g = len(agg)
			groupOf[k] = g
			agg = append(agg, Point{XYZ: p.XYZ})
		}
		agg[g].Weight += p.Weight
		owner[i] = g
	}
	return
}

// Expand maps an agglomerated-point part assignment back onto the
// original per-node indices via the owner slice AgglomerateVerticalPairs
// returned.
func Expand(aggParts []int, owner []int) []int {
	out := make([]int, len(owner))
	for i, g := range owner {
		out[i] = aggParts[g]
	}
	return out
}
