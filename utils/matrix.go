package utils

import (
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

// Matrix wraps a gonum Dense with the small set of dense operations the
// optimizer needs: products, outer products and the symmetric rank-two
// BFGS update of an inverse Hessian approximation.
type Matrix struct {
	M *mat.Dense
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	if len(dataO) != 0 {
		checkLen("NewMatrix", nr*nc, len(dataO[0]))
		return Matrix{mat.NewDense(nr, nc, dataO[0])}
	}
	return Matrix{mat.NewDense(nr, nc, make([]float64, nr*nc))}
}

func NewIdentity(n int) (R Matrix) {
	R = NewMatrix(n, n)
	for i := 0; i < n; i++ {
		R.M.Set(i, i, 1)
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)          { return m.M.Dims() }
func (m Matrix) At(i, j int) float64       { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }

func (m Matrix) Copy() (R Matrix) {
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nr, nc)
	R.M.CloneFrom(m.M)
	return
}

// Mul does not change the receiver.
func (m Matrix) Mul(a Matrix) (R Matrix) {
	var (
		nrM, ncM = m.Dims()
		nrA, ncA = a.Dims()
	)
	checkLen("Matrix.Mul", ncM, nrA)
	R = NewMatrix(nrM, ncA)
	R.M.Mul(m.M, a.M)
	return
}

// MulVec does not change the receiver.
func (m Matrix) MulVec(v Vector) (r Vector) {
	var (
		nr, nc = m.Dims()
	)
	checkLen("Matrix.MulVec", nc, v.Len())
	r = NewVector(nr)
	r.V.MulVec(m.M, v.V)
	return
}

// Outer builds a*bT scaled by alpha. Does not change the receiver.
func Outer(alpha float64, a, b Vector) (R Matrix) {
	var (
		nr, nc = a.Len(), b.Len()
		aD     = a.DataP()
		bD     = b.DataP()
	)
	R = NewMatrix(nr, nc)
	data := R.M.RawMatrix().Data
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			data[i*nc+j] = alpha * aD[i] * bD[j]
		}
	}
	return
}

// BFGSUpdate applies the standard inverse-Hessian rank-two update
//
//	H <- (I - rho*s*yT) H (I - rho*y*sT) + rho*s*sT,  rho = 1/(yTs)
//
// changing the receiver. A non-positive curvature pair (yTs <= 0) would
// destroy positive definiteness, so it is skipped and the method reports
// whether the update was applied.
func (m Matrix) BFGSUpdate(s, y Vector) (updated bool) {
	var (
		n, _ = m.Dims()
	)
	checkLen("Matrix.BFGSUpdate", n, s.Len())
	checkLen("Matrix.BFGSUpdate", n, y.Len())
	ys := y.Dot(s)
	if ys <= 0 {
		return false
	}
	rho := 1. / ys
	var left, right mat.Dense
	I := NewIdentity(n)
	left.Sub(I.M, Outer(rho, s, y).M)
	right.Sub(I.M, Outer(rho, y, s).M)
	var tmp mat.Dense
	tmp.Mul(&left, m.M)
	m.M.Mul(&tmp, &right)
	m.M.Add(m.M, Outer(rho, s, s).M)
	return true
}
