// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metric implements the geometric and metric-space calculus
// spec.md §4.3 assigns to the "Metric kernel" component: log-Euclidean
// interpolation, ratio (edge length in the metric), tet/tri quality
// (EPIC and JAC variants), and their analytic derivatives with respect
// to node 0, used by the smoother.
//
// A metric tensor is a symmetric positive-definite 3x3 matrix stored
// as six doubles in the .solb on-disk order noted in spec.md §6:
// m11, m12, m22, m13, m23, m33.
package metric

import (
	"math"

	"github.com/cpmech/goref/status"
)

// Tensor is a symmetric 3x3 metric tensor in m11,m12,m22,m13,m23,m33
// packed order.
type Tensor [6]float64

// Vec3 is a plain 3-vector (coordinates or an edge direction).
type Vec3 [3]float64

// Sub returns a-b.
func Sub(a, b Vec3) Vec3 { return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

// Dot returns a.b.
func Dot(a, b Vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

// Cross returns a x b.
func Cross(a, b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Norm returns the Euclidean length of v.
func Norm(v Vec3) float64 { return math.Sqrt(Dot(v, v)) }

// Mat returns M as a dense 3x3 matrix.
func (m Tensor) Mat() [3][3]float64 {
	return [3][3]float64{
		{m[0], m[1], m[3]},
		{m[1], m[2], m[4]},
		{m[3], m[4], m[5]},
	}
}

// FromMat packs a dense symmetric 3x3 matrix into Tensor order.
func FromMat(a [3][3]float64) Tensor {
	return Tensor{a[0][0], a[0][1], a[1][1], a[0][2], a[1][2], a[2][2]}
}

// Det returns det(M).
func (m Tensor) Det() float64 {
	a := m.Mat()
	return a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
}

// SqrtSym returns the symmetric square root S of the SPD tensor m,
// i.e. S with S*S = m, computed via the same eigendecomposition as
// LogM/ExpM. Any S with S^T*S = m (Cholesky included) measures the
// same transformed lengths; the symmetric root is used here because
// jacobiEigen is already on hand and avoids a second decomposition
// style in the package.
func (m Tensor) SqrtSym() Tensor {
	vals, vecs := jacobiEigen(m.Mat())
	sqrtVals := [3]float64{math.Sqrt(math.Max(vals[0], 0)), math.Sqrt(math.Max(vals[1], 0)), math.Sqrt(math.Max(vals[2], 0))}
	return FromMat(reconstruct(vecs, sqrtVals))
}

// VtMV returns v^T M v.
func (m Tensor) VtMV(v Vec3) float64 {
	return m[0]*v[0]*v[0] + 2*m[1]*v[0]*v[1] + m[2]*v[1]*v[1] +
		2*m[3]*v[0]*v[2] + 2*m[4]*v[1]*v[2] + m[5]*v[2]*v[2]
}

// MulVec returns M*v.
func (m Tensor) MulVec(v Vec3) Vec3 {
	a := m.Mat()
	return Vec3{
		a[0][0]*v[0] + a[0][1]*v[1] + a[0][2]*v[2],
		a[1][0]*v[0] + a[1][1]*v[1] + a[1][2]*v[2],
		a[2][0]*v[0] + a[2][1]*v[1] + a[2][2]*v[2],
	}
}

// SqrtVtMV returns sqrt(v^T M v), clamping tiny negative round-off to 0.
func (m Tensor) SqrtVtMV(v Vec3) float64 {
	q := m.VtMV(v)
	if q < 0 {
		q = 0
	}
	return math.Sqrt(q)
}

// SqrtVtMVDeriv returns sqrt(v^T M v) and its gradient with respect to
// v, i.e. d/dv sqrt(v^T M v) = (M v)/sqrt(v^T M v). At v==0 (or where
// the quadratic form underflows) the gradient is reported as zero,
// matching the DIV_ZERO-safe-default rule of spec.md §7.
func (m Tensor) SqrtVtMVDeriv(v Vec3) (val float64, grad Vec3) {
	val = m.SqrtVtMV(v)
	if val < 1e-15 {
		return val, Vec3{}
	}
	mv := m.MulVec(v)
	return val, Vec3{mv[0] / val, mv[1] / val, mv[2] / val}
}

// average returns the arithmetic mean of Mandel-packed tensors.
func average(ts ...Tensor) Tensor {
	var out Tensor
	for _, t := range ts {
		for i := range out {
			out[i] += t[i]
		}
	}
	n := float64(len(ts))
	for i := range out {
		out[i] /= n
	}
	return out
}

// Ratio returns the edge length of (a,b) measured in the metric, using
// the log-Euclidean closed form
//
//	r_min * (r-1) / (r*log(r)),  r = ratio_min/ratio_max
//
// with the degenerate branches documented in spec.md §4.3/§4.5 and
// exercised against original_source/src/ref_node.c's
// ref_node_ratio: near r==1 the two endpoint ratios are averaged, and
// when either endpoint ratio underflows, the smaller of the two is
// returned directly rather than dividing by a vanishing log(r).
func Ratio(ma, mb Tensor, a, b Vec3) float64 {
	direction := Sub(b, a)
	ratio0 := ma.SqrtVtMV(direction)
	ratio1 := mb.SqrtVtMV(direction)
	if ratio0 < 1.0e-12 || ratio1 < 1.0e-12 {
		return math.Min(ratio0, ratio1)
	}
	rMin := math.Min(ratio0, ratio1)
	rMax := math.Max(ratio0, ratio1)
	r := rMin / rMax
	if math.Abs(r-1.0) < 1.0e-8 {
		return 0.5 * (ratio0 + ratio1)
	}
	return rMin * (r - 1.0) / (r * math.Log(r))
}

// quadratureNodes/Weights are a 4-point Gauss-Legendre rule on [0,1],
// used by RatioQuadrature to integrate sqrt(d^T M(s) d) along the
// segment, where M(s) = exp((1-s) logMa + s logMb).
var quadratureNodes = [4]float64{
	0.5 - 0.5*0.861136311594053,
	0.5 - 0.5*0.339981043584856,
	0.5 + 0.5*0.339981043584856,
	0.5 + 0.5*0.861136311594053,
}
var quadratureWeights = [4]float64{
	0.5 * 0.347854845137454,
	0.5 * 0.652145154862546,
	0.5 * 0.652145154862546,
	0.5 * 0.347854845137454,
}

// RatioQuadrature is the alternative edge-length policy of spec.md
// §3/§4.3: quadrature of sqrt(d^T M(s) d) along the segment, rather
// than the closed-form log-Euclidean interpolation Ratio uses. Both
// must agree on degenerate inputs (ratio 0 for a zero-length edge).
func RatioQuadrature(logMa, logMb Tensor, a, b Vec3) (float64, error) {
	direction := Sub(b, a)
	if Norm(direction) < 1e-15 {
		return 0, nil
	}
	total := 0.0
	for i, s := range quadratureNodes {
		var blend Tensor
		for k := range blend {
			blend[k] = (1-s)*logMa[k] + s*logMb[k]
		}
		m, err := ExpM(blend)
		if err != nil {
			return 0, err
		}
		total += 0.5 * quadratureWeights[i] * m.SqrtVtMV(direction)
	}
	return total, nil
}

// Interpolate returns the coordinates and metric tensor at parameter w
// along edge (a,Ma)-(b,Mb): coordinates are linear in w, the metric is
// log-Euclidean (linear in logM then exponentiated back), per spec.md
// §4.5 step 1.
func Interpolate(a, b Vec3, logMa, logMb Tensor, w float64) (Vec3, Tensor, error) {
	xyz := Vec3{
		(1-w)*a[0] + w*b[0],
		(1-w)*a[1] + w*b[1],
		(1-w)*a[2] + w*b[2],
	}
	var blend Tensor
	for i := range blend {
		blend[i] = (1-w)*logMa[i] + w*logMb[i]
	}
	m, err := ExpM(blend)
	return xyz, m, err
}

// TetVol returns the signed volume of tetrahedron (a,b,c,d):
// (a-d).((c-d)x(b-d))/6, positive when b-a, c-a, d-a form a
// right-handed frame (1/6 for (0,0,0),(1,0,0),(0,1,0),(0,0,1)), identical to
// original_source/src/ref_node.c's ref_node_tet_vol /
// ref_node_xyz_vol (so that spec.md §8's "Tet vol = ref_node_xyz_vol
// identically" invariant holds by construction).
func TetVol(a, b, c, d Vec3) float64 {
	e1 := Sub(b, d)
	e2 := Sub(c, d)
	e3 := Sub(a, d)
	return Dot(e3, Cross(e2, e1)) / 6.0
}

// TetDVolDNode0 returns the volume and its gradient with respect to
// node a (node0), matching ref_node_tet_dvol_dnode0.
func TetDVolDNode0(a, b, c, d Vec3) (vol float64, grad Vec3) {
	vol = TetVol(a, b, c, d)
	m11 := (b[1]-d[1])*(c[2]-d[2]) - (c[1]-d[1])*(b[2]-d[2])
	m12 := (b[0]-d[0])*(c[2]-d[2]) - (c[0]-d[0])*(b[2]-d[2])
	m13 := (b[0]-d[0])*(c[1]-d[1]) - (c[0]-d[0])*(b[1]-d[1])
	grad = Vec3{-m11 / 6.0, m12 / 6.0, -m13 / 6.0}
	return
}

// TriArea returns half the magnitude of the cross product of two
// triangle edges.
func TriArea(a, b, c Vec3) float64 {
	return 0.5 * Norm(Cross(Sub(b, a), Sub(c, a)))
}

// TriNormal returns the (non-unit) normal (b-a) x (c-a).
func TriNormal(a, b, c Vec3) Vec3 { return Cross(Sub(b, a), Sub(c, a)) }

// TriDAreaDNode0 returns the triangle area and its gradient with
// respect to node a (node0), built the same way as TetDVolDNode0:
// area = 0.5|n|, n = (b-a)x(c-a) is affine in a, so
// d(area)/da = 0.5 * ((b-c) x n-hat).
func TriDAreaDNode0(a, b, c Vec3) (area float64, grad Vec3) {
	n := TriNormal(a, b, c)
	norm := Norm(n)
	area = 0.5 * norm
	if norm < 1e-15 {
		return area, Vec3{}
	}
	nhat := Vec3{n[0] / norm, n[1] / norm, n[2] / norm}
	cr := Cross(Sub(b, c), nhat)
	grad = Vec3{0.5 * cr[0], 0.5 * cr[1], 0.5 * cr[2]}
	return
}

// SegNormal returns a vector perpendicular to segment (a,b) in the
// plane spanned by (a,b) and the auxiliary point aux, used to check
// surface-edge orientation during collapse/swap.
func SegNormal(a, b, aux Vec3) Vec3 {
	dir := Sub(b, a)
	ref := Sub(aux, a)
	perp := Cross(dir, Cross(ref, dir))
	return perp
}

// TriCentroid returns the arithmetic mean of three points.
func TriCentroid(a, b, c Vec3) Vec3 {
	return Vec3{(a[0] + b[0] + c[0]) / 3, (a[1] + b[1] + c[1]) / 3, (a[2] + b[2] + c[2]) / 3}
}

// Bary3 returns the barycentric coordinates of p with respect to
// triangle (a,b,c), using signed sub-triangle areas. On a degenerate
// (zero-area) triangle it falls back to flagging the smallest
// component as a walking direction, per spec.md §4.3, and reports
// status.DivZero rather than aborting the caller.
func Bary3(a, b, c, p Vec3) ([3]float64, error) {
	n := TriNormal(a, b, c)
	total := Dot(n, n)
	var bary [3]float64
	bary[0] = Dot(n, TriNormal(p, b, c))
	bary[1] = Dot(n, TriNormal(a, p, c))
	bary[2] = Dot(n, TriNormal(a, b, p))
	return normalizeBary(bary[:], total, "metric.Bary3")
}

// Bary3D projects p onto the plane of (a,b,c) first, then computes
// barycentric coordinates exactly as Bary3.
func Bary3D(a, b, c, p Vec3) ([3]float64, error) {
	n := TriNormal(a, b, c)
	nn := Dot(n, n)
	if nn < 1e-30 {
		return Bary3(a, b, c, p)
	}
	d := Dot(n, Sub(p, a)) / nn
	proj := Vec3{p[0] - d*n[0], p[1] - d*n[1], p[2] - d*n[2]}
	return Bary3(a, b, c, proj)
}

// Bary4 returns the barycentric coordinates of p with respect to
// tetrahedron (a,b,c,d), matching ref_node_bary4's sub-volume
// construction and its divide-by-zero walking-direction fallback
// (the smallest component is set to -1 as a walking direction).
func Bary4(a, b, c, d, p Vec3) ([4]float64, error) {
	var bary [4]float64
	bary[0] = signedVol6(p, b, c, d)
	bary[1] = signedVol6(a, p, c, d)
	bary[2] = signedVol6(a, b, p, d)
	bary[3] = signedVol6(a, b, c, p)
	total := bary[0] + bary[1] + bary[2] + bary[3]

	ok := true
	for _, v := range bary {
		if !divisible(v, total) {
			ok = false
			break
		}
	}
	if ok {
		for i := range bary {
			bary[i] /= total
		}
		return bary, nil
	}
	smallest := 0
	for i := 1; i < 4; i++ {
		if bary[i] < bary[smallest] {
			smallest = i
		}
	}
	var out [4]float64
	out[smallest] = -1.0
	return out, status.Errf(status.DivZero, "metric.Bary4", "degenerate element, total=%.3e", total)
}

// signedVol6 reproduces the unnormalized m11-m12+m13 expression
// ref_node_bary4 evaluates per vertex (6x the signed sub-tet volume).
func signedVol6(a, b, c, d Vec3) float64 {
	m11 := (a[0] - d[0]) * ((b[1]-d[1])*(c[2]-d[2]) - (c[1]-d[1])*(b[2]-d[2]))
	m12 := (a[1] - d[1]) * ((b[0]-d[0])*(c[2]-d[2]) - (c[0]-d[0])*(b[2]-d[2]))
	m13 := (a[2] - d[2]) * ((b[0]-d[0])*(c[1]-d[1]) - (c[0]-d[0])*(b[1]-d[1]))
	return m11 - m12 + m13
}

// normalizeBary divides each component by total when safe; otherwise
// it zeroes every component except the smallest, which is set to -1
// as a walking direction, and returns a status.DivZero error.
func normalizeBary(bary []float64, total float64, op string) ([3]float64, error) {
	var out [3]float64
	if len(bary) == 3 {
		ok := divisible(bary[0], total) && divisible(bary[1], total) && divisible(bary[2], total)
		if ok {
			out[0] = bary[0] / total
			out[1] = bary[1] / total
			out[2] = bary[2] / total
			return out, nil
		}
		smallest := 0
		for i := 1; i < 3; i++ {
			if bary[i] < bary[smallest] {
				smallest = i
			}
		}
		out[smallest] = -1.0
		return out, status.Errf(status.DivZero, op, "degenerate element, total=%.3e", total)
	}
	// len(bary) == 4 path returns a 3-wide placeholder; Bary4 repacks it.
	return out, status.Errf(status.Invalid, op, "normalizeBary only supports len 3 directly")
}

func divisible(num, den float64) bool {
	if den == 0 {
		return false
	}
	return math.Abs(num/den) < 1e300
}
