package utils

import (
	"math"

	"github.com/james-bowman/sparse"
)

// MassMatrix is the diagonal mass matrix of the molecular system, stored in
// DIA form. Norms of configuration-space displacements are taken with
// respect to it, so a heavy atom moving a little costs as much as a light
// atom moving a lot.
type MassMatrix struct {
	D    *sparse.DIA
	diag []float64
}

// NewMassMatrix builds the configuration-space mass matrix from per-atom
// masses: each mass is repeated once per spatial coordinate of its atom.
func NewMassMatrix(masses []float64, coordsPerAtom int) (M MassMatrix) {
	var (
		n    = len(masses) * coordsPerAtom
		diag = make([]float64, n)
	)
	for i, m := range masses {
		for j := 0; j < coordsPerAtom; j++ {
			diag[i*coordsPerAtom+j] = m
		}
	}
	return MassMatrix{sparse.NewDIA(n, n, diag), diag}
}

// NewUnitMass is the identity mass matrix in n configuration coordinates.
func NewUnitMass(n int) (M MassMatrix) {
	var (
		diag = make([]float64, n)
	)
	for i := range diag {
		diag[i] = 1
	}
	return MassMatrix{sparse.NewDIA(n, n, diag), diag}
}

func (M MassMatrix) Len() int { return len(M.diag) }

// MulVec does not change v.
func (M MassMatrix) MulVec(v Vector) (r Vector) {
	checkLen("MassMatrix.MulVec", M.Len(), v.Len())
	var (
		data = make([]float64, v.Len())
		vD   = v.DataP()
	)
	for i := range data {
		data[i] = M.diag[i] * vD[i]
	}
	return NewVector(len(data), data)
}

// Norm is the mass-weighted norm sqrt(<v, Mv>).
func (M MassMatrix) Norm(v Vector) float64 {
	checkLen("MassMatrix.Norm", M.Len(), v.Len())
	var (
		sum float64
		vD  = v.DataP()
	)
	for i, val := range vD {
		sum += M.diag[i] * val * val
	}
	return math.Sqrt(sum)
}

// InvNorm is the norm weighted by the inverse mass, sqrt(<v, M^-1 v>).
// Gradients live in the dual space, so their size is measured this way.
func (M MassMatrix) InvNorm(v Vector) float64 {
	checkLen("MassMatrix.InvNorm", M.Len(), v.Len())
	var (
		sum float64
		vD  = v.DataP()
	)
	for i, val := range vD {
		sum += val * val / M.diag[i]
	}
	return math.Sqrt(sum)
}
