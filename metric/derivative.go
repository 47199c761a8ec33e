// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metric

import "math"

// RatioDNode0 returns Ratio(ma,mb,a,b) together with its gradient with
// respect to node a (node0), mirroring
// original_source/src/ref_node.c's ref_node_dratio_dnode0: each of the
// degenerate branches Ratio itself takes (near-zero edge, r close to
// 1) gets its own matching derivative branch, and the general case
// differentiates the closed-form log-mean through both endpoint
// ratios.
func RatioDNode0(ma, mb Tensor, a, b Vec3) (ratio float64, grad Vec3) {
	direction := Sub(b, a)
	ratio0, g0dir := ma.SqrtVtMVDeriv(direction)
	ratio1, g1dir := mb.SqrtVtMVDeriv(direction)
	// d(direction)/da = -I, so d(ratio_i)/da = -g_i_dir.
	g0 := Vec3{-g0dir[0], -g0dir[1], -g0dir[2]}
	g1 := Vec3{-g1dir[0], -g1dir[1], -g1dir[2]}

	if ratio0 < 1.0e-12 || ratio1 < 1.0e-12 {
		if ratio0 < ratio1 {
			return ratio0, g0
		}
		return ratio1, g1
	}

	rMinVal := math.Min(ratio0, ratio1)
	rMaxVal := math.Max(ratio0, ratio1)
	r := rMinVal / rMaxVal
	if math.Abs(r-1.0) < 1.0e-8 {
		val := 0.5 * (ratio0 + ratio1)
		return val, Vec3{0.5 * (g0[0] + g1[0]), 0.5 * (g0[1] + g1[1]), 0.5 * (g0[2] + g1[2])}
	}

	u, v := rMinVal, rMaxVal
	var du, dv Vec3
	if ratio0 <= ratio1 {
		du, dv = g0, g1
	} else {
		du, dv = g1, g0
	}
	l := math.Log(v / u)
	// value = (v-u)/l; partials derived by hand from that closed form
	// (quotient rule against u and against v in turn) — matching the
	// rMin*(r-1)/(r*log(r)), r=rMin/rMax form Ratio evaluates, which
	// reduces algebraically to this same (v-u)/l expression.
	dfdu := (v/u - 1.0 - l) / (l * l)
	dfdv := (l - 1.0 + u/v) / (l * l)
	ratio = (v - u) / l
	grad = Vec3{
		dfdu*du[0] + dfdv*dv[0],
		dfdu*du[1] + dfdv*dv[1],
		dfdu*du[2] + dfdv*dv[2],
	}
	return
}

// TetEPICDQualityDNode0 returns TetQualityEPIC and its gradient with
// respect to node a, matching
// ref_node_tet_epic_dquality_dnode0: only the three edges touching
// node a (l0,l1,l2) contribute a ratio derivative, the opposite-face
// edges (l3,l4,l5) are plain Ratio calls with zero gradient.
func TetEPICDQualityDNode0(a, b, c, d Vec3, ma, mb, mc, md Tensor) (quality float64, grad Vec3) {
	vol, gradVol := TetDVolDNode0(a, b, c, d)
	if vol <= MinVolume {
		return vol - MinVolume, gradVol
	}
	l0, dl0 := RatioDNode0(ma, mb, a, b)
	l1, dl1 := RatioDNode0(ma, mc, a, c)
	l2, dl2 := RatioDNode0(ma, md, a, d)
	l3 := Ratio(mb, mc, b, c)
	l4 := Ratio(mb, md, b, d)
	l5 := Ratio(mc, md, c, d)

	minDet := math.Min(math.Min(ma.Det(), mb.Det()), math.Min(mc.Det(), md.Det()))
	sqrtMinDet := math.Sqrt(minDet)
	volInMetric := sqrtMinDet * vol
	num := math.Pow(volInMetric, 2.0/3.0)
	denom := l0*l0 + l1*l1 + l2*l2 + l3*l3 + l4*l4 + l5*l5
	if !divisible(num, denom) {
		return -1.0, Vec3{}
	}
	quality = tetQualityConst * num / denom

	var dNum, dDenom Vec3
	if volInMetric > 0 {
		coeff := (2.0 / 3.0) * math.Pow(volInMetric, -1.0/3.0) * sqrtMinDet
		dNum = Vec3{coeff * gradVol[0], coeff * gradVol[1], coeff * gradVol[2]}
	}
	for i := 0; i < 3; i++ {
		dDenom[i] = 2*l0*dl0[i] + 2*l1*dl1[i] + 2*l2*dl2[i]
	}
	for i := 0; i < 3; i++ {
		grad[i] = tetQualityConst * (dNum[i]*denom - num*dDenom[i]) / (denom * denom)
	}
	return
}

// TetJACDQualityDNode0 is the JAC-quality analog of
// TetEPICDQualityDNode0, matching
// ref_node_tet_jac_dquality_dnode0: the metric at the shared average
// exp(logM) is frozen (it does not depend on node position), so only
// the three edges touching node a contribute to d(l2)/da.
func TetJACDQualityDNode0(a, b, c, d Vec3, logMa, logMb, logMc, logMd Tensor) (quality float64, grad Vec3, err error) {
	vol, gradVol := TetDVolDNode0(a, b, c, d)
	if vol <= MinVolume {
		return vol - MinVolume, gradVol, nil
	}
	avg := average(logMa, logMb, logMc, logMd)
	m, err := ExpM(avg)
	if err != nil {
		return 0, Vec3{}, err
	}
	e0, e1, e2 := Sub(b, a), Sub(c, a), Sub(d, a)
	e3, e4, e5 := Sub(c, b), Sub(d, b), Sub(d, c)
	l2 := m.VtMV(e0) + m.VtMV(e1) + m.VtMV(e2) + m.VtMV(e3) + m.VtMV(e4) + m.VtMV(e5)

	det := m.Det()
	sqrtDet := math.Sqrt(det)
	volInMetric := sqrtDet * vol
	num := math.Pow(volInMetric, 2.0/3.0)
	if !divisible(num, l2) {
		return -1.0, Vec3{}, nil
	}
	quality = tetQualityConst * num / l2

	var dNum, dL2 Vec3
	if volInMetric > 0 {
		coeff := (2.0 / 3.0) * math.Pow(volInMetric, -1.0/3.0) * sqrtDet
		dNum = Vec3{coeff * gradVol[0], coeff * gradVol[1], coeff * gradVol[2]}
	}
	// d(e_i)/da = -I for e0,e1,e2 (they contain a); e3,e4,e5 don't
	// touch a. d(v^T M v)/de = 2*M*v, so d/da = -2*M*(e0+e1+e2).
	sum := Vec3{e0[0] + e1[0] + e2[0], e0[1] + e1[1] + e2[1], e0[2] + e1[2] + e2[2]}
	mv := m.MulVec(sum)
	dL2 = Vec3{-2 * mv[0], -2 * mv[1], -2 * mv[2]}

	for i := 0; i < 3; i++ {
		grad[i] = tetQualityConst * (dNum[i]*l2 - num*dL2[i]) / (l2 * l2)
	}
	return
}

// TriEPICDQualityDNode0 returns TriQualityEPIC and its gradient with
// respect to node a, matching ref_node_tri_epic_dquality_dnode0: the
// edge opposite a (l2 = Ratio(b,c)) contributes no derivative, and
// the area derivative comes from TriDAreaDNode0.
func TriEPICDQualityDNode0(a, b, c Vec3, ma, mb, mc Tensor) (quality float64, grad Vec3) {
	area, gradArea := TriDAreaDNode0(a, b, c)
	l0, dl0 := RatioDNode0(ma, mb, a, b)
	l1, dl1 := RatioDNode0(ma, mc, a, c)
	l2 := Ratio(mb, mc, b, c)

	minDet := math.Min(math.Min(ma.Det(), mb.Det()), mc.Det())
	cube := math.Pow(minDet, 1.0/3.0)
	areaInMetric := cube * area
	denom := l0*l0 + l1*l1 + l2*l2
	if !divisible(areaInMetric, denom) {
		return -1.0, Vec3{}
	}
	triConst := 4.0 / math.Sqrt(3.0) * 3
	quality = triConst * areaInMetric / denom

	dArea := Vec3{cube * gradArea[0], cube * gradArea[1], cube * gradArea[2]}
	var dDenom Vec3
	for i := 0; i < 3; i++ {
		dDenom[i] = 2*l0*dl0[i] + 2*l1*dl1[i]
	}
	for i := 0; i < 3; i++ {
		grad[i] = triConst * (dArea[i]*denom - areaInMetric*dDenom[i]) / (denom * denom)
	}
	return
}

// TriJACDQualityDNode0 is the JAC-quality analog of
// TriEPICDQualityDNode0, matching ref_node_tri_jac_dquality_dnode0.
// Unlike the tet case the JAC area measure is a cross product of
// mapped edges, not a sum of quadratic forms, so its node0 gradient
// is computed by mapping TriDAreaDNode0's construction through the
// symmetric square root S of exp(average(logM)): since S is frozen
// w.r.t. node position, d(area(Sa,Sb,Sc))/da = S^T * d(area)/d(Sa).
func TriJACDQualityDNode0(a, b, c Vec3, logMa, logMb, logMc Tensor) (quality float64, grad Vec3, err error) {
	avg := average(logMa, logMb, logMc)
	m, err := ExpM(avg)
	if err != nil {
		return 0, Vec3{}, err
	}
	s := m.SqrtSym()
	xa, xb, xc := s.MulVec(a), s.MulVec(b), s.MulVec(c)
	area, gradAreaX := TriDAreaDNode0(xa, xb, xc)
	e0 := Sub(xc, xb)
	e1 := Sub(xa, xc)
	e2 := Sub(xb, xa)
	l2 := Dot(e0, e0) + Dot(e1, e1) + Dot(e2, e2)
	if !divisible(area, l2) {
		return -1.0, Vec3{}, nil
	}
	quality = 4.0 * math.Sqrt(3.0) * (area / l2)

	// d(l2)/da: only e1 (xa-xc) and e2 (xb-xa) touch xa, with
	// coefficients +1 and -1 respectively on d(xa).
	dl2dxa := Vec3{2*e1[0] - 2*e2[0], 2*e1[1] - 2*e2[1], 2*e1[2] - 2*e2[2]}
	// chain through xa = S*a: d(f)/da = S^T * d(f)/dxa = S * d(f)/dxa
	// (S symmetric).
	gradArea := s.MulVec(gradAreaX)
	dl2 := s.MulVec(dl2dxa)

	for i := 0; i < 3; i++ {
		grad[i] = 4.0 * math.Sqrt(3.0) * (gradArea[i]*l2 - area*dl2[i]) / (l2 * l2)
	}
	return
}
