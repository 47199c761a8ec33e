// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metric

import "math"

// tetQualityConst is 36/3^(1/3), the normalization constant that maps
// a regular simplex to quality 1.0 in both EPIC and JAC tet quality
// measures, carried over verbatim from
// original_source/src/ref_node.c.
const tetQualityConst = 24.9610058766228

// MinVolume is the tolerance below which tet/tri quality falls back
// to "volume minus tolerance" so its sign still conveys direction to
// the smoother, per spec.md §4.3.
const MinVolume = 1e-15

// TetQualityEPIC returns the EPIC tet quality variant: minimum-det-M
// pre-scaling of the volume, normalized by the sum of squared metric
// edge ratios.
func TetQualityEPIC(a, b, c, d Vec3, ma, mb, mc, md Tensor) float64 {
	vol := TetVol(a, b, c, d)
	if vol <= MinVolume {
		return vol - MinVolume
	}
	l0 := Ratio(ma, mb, a, b)
	l1 := Ratio(ma, mc, a, c)
	l2 := Ratio(ma, md, a, d)
	l3 := Ratio(mb, mc, b, c)
	l4 := Ratio(mb, md, b, d)
	l5 := Ratio(mc, md, c, d)

	minDet := math.Min(math.Min(ma.Det(), mb.Det()), math.Min(mc.Det(), md.Det()))
	volInMetric := math.Sqrt(minDet) * vol
	num := math.Pow(volInMetric, 2.0/3.0)
	denom := l0*l0 + l1*l1 + l2*l2 + l3*l3 + l4*l4 + l5*l5
	if !divisible(num, denom) {
		return -1.0
	}
	return tetQualityConst * num / denom
}

// TetQualityJAC returns the JAC tet quality variant: map the tet's
// nodes into Euclidean space by the Cholesky-equivalent Jacobian of
// exp(average(logM)), then measure shape there.
func TetQualityJAC(a, b, c, d Vec3, logMa, logMb, logMc, logMd Tensor) (float64, error) {
	vol := TetVol(a, b, c, d)
	if vol <= MinVolume {
		return vol - MinVolume, nil
	}
	avg := average(logMa, logMb, logMc, logMd)
	m, err := ExpM(avg)
	if err != nil {
		return 0, err
	}
	e := [6]Vec3{Sub(b, a), Sub(c, a), Sub(d, a), Sub(c, b), Sub(d, b), Sub(d, c)}
	l2 := 0.0
	for _, ei := range e {
		l2 += m.VtMV(ei)
	}
	det := m.Det()
	volInMetric := math.Sqrt(det) * vol
	num := math.Pow(volInMetric, 2.0/3.0)
	if !divisible(num, l2) {
		return -1.0, nil
	}
	return tetQualityConst * num / l2, nil
}

// TriQualityEPIC returns the EPIC triangle quality variant.
func TriQualityEPIC(a, b, c Vec3, ma, mb, mc Tensor) float64 {
	l0 := Ratio(ma, mb, a, b)
	l1 := Ratio(ma, mc, a, c)
	l2 := Ratio(mb, mc, b, c)
	area := TriArea(a, b, c)
	minDet := math.Min(math.Min(ma.Det(), mb.Det()), mc.Det())
	areaInMetric := math.Pow(minDet, 1.0/3.0) * area
	denom := l0*l0 + l1*l1 + l2*l2
	if !divisible(areaInMetric, denom) {
		return -1.0
	}
	return 4.0 / math.Sqrt(3.0) * 3 * areaInMetric / denom
}

// TriQualityJAC returns the JAC triangle quality variant: map the
// triangle's nodes by the symmetric square root (the "jac" of
// ref_node_tri_jac_quality, there computed via Cholesky; any S with
// S^T S = M measures the same lengths) of exp(average(logM)), then
// measure area/edge-lengths in the mapped Euclidean space.
func TriQualityJAC(a, b, c Vec3, logMa, logMb, logMc Tensor) (float64, error) {
	avg := average(logMa, logMb, logMc)
	m, err := ExpM(avg)
	if err != nil {
		return 0, err
	}
	s := m.SqrtSym()
	xa, xb, xc := s.MulVec(a), s.MulVec(b), s.MulVec(c)
	e0 := Sub(xc, xb)
	e1 := Sub(xa, xc)
	e2 := Sub(xb, xa)
	n := Cross(e2, e0)
	l2 := Dot(e0, e0) + Dot(e1, e1) + Dot(e2, e2)
	area := 0.5 * math.Sqrt(Dot(n, n))
	if !divisible(area, l2) {
		return -1.0, nil
	}
	return 4.0 * math.Sqrt(3.0) * (area / l2), nil
}
