// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metric

import (
	"math"
	"testing"
)

// fdGrad perturbs each coordinate of a by h and returns the central
// finite-difference gradient of f, used to cross-check the analytic
// derivatives per spec.md §8.
func fdGrad(a Vec3, h float64, f func(Vec3) float64) Vec3 {
	var grad Vec3
	for i := 0; i < 3; i++ {
		plus := a
		minus := a
		plus[i] += h
		minus[i] -= h
		grad[i] = (f(plus) - f(minus)) / (2 * h)
	}
	return grad
}

func assertGradClose(t *testing.T, name string, got, want Vec3, tol float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("%s gradient[%d] = %v, want %v (tol %v); got=%v want=%v", name, i, got[i], want[i], tol, got, want)
		}
	}
}

func TestTetDVolDNode0MatchesFiniteDifference(t *testing.T) {
	a := Vec3{0.1, 0.2, 0.05}
	b := Vec3{1, 0, 0}
	c := Vec3{0, 1, 0.1}
	d := Vec3{0, 0, 1}
	_, grad := TetDVolDNode0(a, b, c, d)
	fd := fdGrad(a, 1e-6, func(x Vec3) float64 { return TetVol(x, b, c, d) })
	assertGradClose(t, "TetDVolDNode0", grad, fd, 1e-4)
}

func TestTriDAreaDNode0MatchesFiniteDifference(t *testing.T) {
	a := Vec3{0.1, 0.2, 0.05}
	b := Vec3{1, 0, 0}
	c := Vec3{0, 1, 0.2}
	_, grad := TriDAreaDNode0(a, b, c)
	fd := fdGrad(a, 1e-6, func(x Vec3) float64 { return TriArea(x, b, c) })
	assertGradClose(t, "TriDAreaDNode0", grad, fd, 1e-4)
}

func TestRatioDNode0MatchesFiniteDifference(t *testing.T) {
	ma := Tensor{2, 0.1, 3, 0, 0.05, 1.5}
	mb := Tensor{1.5, 0, 2, 0.1, 0, 1}
	a := Vec3{0.2, 0.1, -0.1}
	b := Vec3{1, 0.5, 0.3}
	_, grad := RatioDNode0(ma, mb, a, b)
	fd := fdGrad(a, 1e-6, func(x Vec3) float64 { return Ratio(ma, mb, x, b) })
	assertGradClose(t, "RatioDNode0", grad, fd, 1e-3)
}

func TestTetEPICDQualityDNode0MatchesFiniteDifference(t *testing.T) {
	ma := Tensor{1.2, 0.05, 1.1, 0, 0.02, 1.3}
	mb := Tensor{1, 0, 1, 0, 0, 1}
	mc := Tensor{1.1, 0, 0.9, 0.05, 0, 1}
	md := Tensor{1, 0.02, 1, 0, 0, 1.05}
	a := Vec3{0.1, 0.1, 0.05}
	b := Vec3{1, 0, 0}
	c := Vec3{0, 1, 0}
	d := Vec3{0, 0, 1}
	_, grad := TetEPICDQualityDNode0(a, b, c, d, ma, mb, mc, md)
	fd := fdGrad(a, 1e-6, func(x Vec3) float64 { return TetQualityEPIC(x, b, c, d, ma, mb, mc, md) })
	assertGradClose(t, "TetEPICDQualityDNode0", grad, fd, 1e-3)
}

func TestTriEPICDQualityDNode0MatchesFiniteDifference(t *testing.T) {
	ma := Tensor{1.2, 0.05, 1.1, 0, 0.02, 1.3}
	mb := Tensor{1, 0, 1, 0, 0, 1}
	mc := Tensor{1.1, 0, 0.9, 0.05, 0, 1}
	a := Vec3{0.1, 0.1, 0.05}
	b := Vec3{1, 0, 0}
	c := Vec3{0, 1, 0}
	_, grad := TriEPICDQualityDNode0(a, b, c, ma, mb, mc)
	fd := fdGrad(a, 1e-6, func(x Vec3) float64 { return TriQualityEPIC(x, b, c, ma, mb, mc) })
	assertGradClose(t, "TriEPICDQualityDNode0", grad, fd, 1e-3)
}

func TestTetJACDQualityDNode0MatchesFiniteDifference(t *testing.T) {
	im := identity()
	a := Vec3{0.1, 0.1, 0.05}
	b := Vec3{1, 0, 0}
	c := Vec3{0, 1, 0}
	d := Vec3{0, 0, 1}
	logIm, err := LogM(im)
	if err != nil {
		t.Fatalf("LogM: %v", err)
	}
	_, grad, err := TetJACDQualityDNode0(a, b, c, d, logIm, logIm, logIm, logIm)
	if err != nil {
		t.Fatalf("TetJACDQualityDNode0: %v", err)
	}
	fd := fdGrad(a, 1e-6, func(x Vec3) float64 {
		q, _ := TetQualityJAC(x, b, c, d, logIm, logIm, logIm, logIm)
		return q
	})
	assertGradClose(t, "TetJACDQualityDNode0", grad, fd, 1e-3)
}

func TestTriJACDQualityDNode0MatchesFiniteDifference(t *testing.T) {
	im := identity()
	a := Vec3{0.1, 0.1, 0.05}
	b := Vec3{1, 0, 0}
	c := Vec3{0, 1, 0}
	logIm, err := LogM(im)
	if err != nil {
		t.Fatalf("LogM: %v", err)
	}
	_, grad, err := TriJACDQualityDNode0(a, b, c, logIm, logIm, logIm)
	if err != nil {
		t.Fatalf("TriJACDQualityDNode0: %v", err)
	}
	fd := fdGrad(a, 1e-6, func(x Vec3) float64 {
		q, _ := TriQualityJAC(x, b, c, logIm, logIm, logIm)
		return q
	})
	assertGradClose(t, "TriJACDQualityDNode0", grad, fd, 1e-3)
}
