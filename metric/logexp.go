// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package metric

import (
	"math"

	"github.com/cpmech/goref/status"
)

// LogM and ExpM implement the matrix logarithm and exponential of a
// symmetric positive-definite 3x3 tensor via an eigendecomposition
// (log/exp the eigenvalues, keep the eigenvectors): classic Jacobi
// rotation, chosen by hand here rather than over gosl/tsr's eigen
// helpers because tsr's numeric eigen routines (M_EigenValsProjsNum
// and friends) are scoped to Mandel-notation stress/strain invariants
// (p, q, octahedral values) for solid constitutive models, not a
// general SPD matrix log/exp — see DESIGN.md.

// LogM returns the matrix logarithm of m, which must be SPD. Returns
// status.Invalid if an eigenvalue is non-positive.
func LogM(m Tensor) (Tensor, error) {
	vals, vecs := jacobiEigen(m.Mat())
	for _, v := range vals {
		if v <= 0 {
			return Tensor{}, status.Errf(status.Invalid, "metric.LogM", "metric is not SPD, eigenvalue=%.6e", v)
		}
	}
	logVals := [3]float64{math.Log(vals[0]), math.Log(vals[1]), math.Log(vals[2])}
	return FromMat(reconstruct(vecs, logVals)), nil
}

// ExpM returns the matrix exponential of a symmetric tensor logm
// (typically the log-Euclidean-interpolated log of a metric).
func ExpM(logm Tensor) (Tensor, error) {
	vals, vecs := jacobiEigen(logm.Mat())
	expVals := [3]float64{math.Exp(vals[0]), math.Exp(vals[1]), math.Exp(vals[2])}
	return FromMat(reconstruct(vecs, expVals)), nil
}

// reconstruct rebuilds V * diag(vals) * V^T.
func reconstruct(vecs [3][3]float64, vals [3]float64) [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			s := 0.0
			for k := 0; k < 3; k++ {
				s += vecs[i][k] * vals[k] * vecs[j][k]
			}
			out[i][j] = s
		}
	}
	return out
}

// jacobiEigen computes the eigenvalues and eigenvectors (as columns of
// a row-major [3][3], i.e. vecs[row][col]) of the symmetric matrix a
// via the classical cyclic Jacobi rotation method, converging to
// machine precision in a handful of sweeps for 3x3 inputs.
func jacobiEigen(a [3][3]float64) (vals [3]float64, vecs [3][3]float64) {
	const n = 3
	var A [n][n]float64
	A = a
	var V [n][n]float64
	for i := 0; i < n; i++ {
		V[i][i] = 1
	}
	for sweep := 0; sweep < 100; sweep++ {
		off := 0.0
		for p := 0; p < n; p++ {
			for q := p + 1; q < n; q++ {
				off += A[p][q] * A[p][q]
			}
		}
		if off < 1e-30 {
			break
		}
		for p := 0; p < n; p++ {
			for q := p + 1; q < n; q++ {
				if math.Abs(A[p][q]) < 1e-300 {
					continue
				}
				theta := (A[q][q] - A[p][p]) / (2 * A[p][q])
				t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				if theta == 0 {
					t = 1
				}
				c := 1 / math.Sqrt(t*t+1)
				s := t * c
				app := A[p][p]
				aqq := A[q][q]
				apq := A[p][q]
				A[p][p] = c*c*app - 2*s*c*apq + s*s*aqq
				A[q][q] = s*s*app + 2*s*c*apq + c*c*aqq
				A[p][q] = 0
				A[q][p] = 0
				for i := 0; i < n; i++ {
					if i != p && i != q {
						aip := A[i][p]
						aiq := A[i][q]
						A[i][p] = c*aip - s*aiq
						A[p][i] = A[i][p]
						A[i][q] = s*aip + c*aiq
						A[q][i] = A[i][q]
					}
				}
				for i := 0; i < n; i++ {
					vip := V[i][p]
					viq := V[i][q]
					V[i][p] = c*vip - s*viq
					V[i][q] = s*vip + c*viq
				}
			}
		}
	}
	for i := 0; i < n; i++ {
		vals[i] = A[i][i]
		for j := 0; j < n; j++ {
			vecs[j][i] = V[j][i]
		}
	}
	return vals, vecs
}
