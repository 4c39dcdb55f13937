package utils

import (
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Vector wraps a gonum VecDense with chainable methods sized for
// configuration-space work: node positions, gradients and search directions.
type Vector struct {
	V *mat.VecDense
}

func NewVector(n int, dataO ...[]float64) (v Vector) {
	if len(dataO) != 0 {
		checkLen("NewVector", n, len(dataO[0]))
		return Vector{mat.NewVecDense(n, dataO[0])}
	}
	return Vector{mat.NewVecDense(n, make([]float64, n))}
}

func NewVectorConstant(n int, val float64) (v Vector) {
	var (
		x = make([]float64, n)
	)
	for i := range x {
		x[i] = val
	}
	return Vector{mat.NewVecDense(n, x)}
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (v Vector) Dims() (r, c int)         { return v.V.Dims() }
func (v Vector) At(i, j int) float64      { return v.V.At(i, j) }
func (v Vector) T() mat.Matrix            { return v.V.T() }
func (v Vector) AtVec(i int) float64      { return v.V.AtVec(i) }
func (v Vector) RawVector() blas64.Vector { return v.V.RawVector() }
func (v Vector) Len() int                 { return v.V.Len() }
func (v Vector) DataP() []float64         { return v.V.RawVector().Data }

func (v Vector) Copy() (r Vector) {
	var (
		data  = v.DataP()
		dataR = make([]float64, len(data))
	)
	copy(dataR, data)
	return NewVector(len(dataR), dataR)
}

// Chainable (extended) methods, all change the receiver unless noted.
func (v Vector) Set(i int, val float64) Vector { v.V.SetVec(i, val); return v }

func (v Vector) Add(a Vector) Vector {
	checkLen("Vector.Add", v.Len(), a.Len())
	v.V.AddVec(v.V, a.V)
	return v
}

func (v Vector) Subtract(a Vector) Vector {
	checkLen("Vector.Subtract", v.Len(), a.Len())
	v.V.SubVec(v.V, a.V)
	return v
}

func (v Vector) Scale(a float64) Vector {
	v.V.ScaleVec(a, v.V)
	return v
}

// AXPY adds a*x to the receiver.
func (v Vector) AXPY(a float64, x Vector) Vector {
	checkLen("Vector.AXPY", v.Len(), x.Len())
	floats.AddScaled(v.DataP(), a, x.DataP())
	return v
}

func (v Vector) Apply(f func(float64) float64) Vector {
	var (
		data = v.DataP()
	)
	for i, val := range data {
		data[i] = f(val)
	}
	return v
}

// Dot does not change the receiver.
func (v Vector) Dot(a Vector) float64 {
	checkLen("Vector.Dot", v.Len(), a.Len())
	return floats.Dot(v.DataP(), a.DataP())
}

// Norm is the Euclidean norm. Does not change the receiver.
func (v Vector) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// MaxAbs is the L-infinity norm. Does not change the receiver.
func (v Vector) MaxAbs() (max float64) {
	for _, val := range v.DataP() {
		if a := math.Abs(val); a > max {
			max = a
		}
	}
	return
}

func (v Vector) Min() (min float64) {
	var (
		data = v.DataP()
	)
	min = data[0]
	for _, val := range data {
		if val < min {
			min = val
		}
	}
	return
}

func (v Vector) Max() (max float64) {
	var (
		data = v.DataP()
	)
	max = data[0]
	for _, val := range data {
		if val > max {
			max = val
		}
	}
	return
}

// Equal does not change the receiver. Comparison is bitwise, no tolerance.
func (v Vector) Equal(a Vector) bool {
	if v.Len() != a.Len() {
		return false
	}
	var (
		d1, d2 = v.DataP(), a.DataP()
	)
	for i := range d1 {
		if d1[i] != d2[i] {
			return false
		}
	}
	return true
}

// Lerp returns (1-t)*v + t*a without changing the receiver.
func (v Vector) Lerp(a Vector, t float64) (r Vector) {
	checkLen("Vector.Lerp", v.Len(), a.Len())
	r = v.Copy().Scale(1 - t)
	return r.AXPY(t, a)
}
