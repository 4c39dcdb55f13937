package potential

import (
	"math"

	"github.com/geodyn/birkhoff/utils"
)

// Morse is a pairwise Morse surface over an atomic configuration laid out as
// (x1,y1,z1, x2,y2,z2, ...). It stands in for the effective-medium evaluator
// in runs that do not have the external oracle attached:
//
//	V = sum_{i<j} De * (1 - exp(-alpha(r_ij - r0)))^2
type Morse struct {
	De    float64 // well depth
	Alpha float64 // stiffness
	R0    float64 // equilibrium pair distance
}

func NewMorse(de, alpha, r0 float64) Morse {
	return Morse{De: de, Alpha: alpha, R0: r0}
}

func (m Morse) Evaluate(x utils.Vector) (v float64, grad utils.Vector, err error) {
	var (
		d      = x.Len()
		nAtoms = d / 3
		xD     = x.DataP()
		gD     = make([]float64, d)
	)
	for i := 0; i < nAtoms; i++ {
		for j := i + 1; j < nAtoms; j++ {
			var rij [3]float64
			var r2 float64
			for k := 0; k < 3; k++ {
				rij[k] = xD[3*i+k] - xD[3*j+k]
				r2 += rij[k] * rij[k]
			}
			r := math.Sqrt(r2)
			e := math.Exp(-m.Alpha * (r - m.R0))
			v += m.De * (1 - e) * (1 - e)
			// dV/dr = 2 De alpha e (1 - e)
			dVdr := 2 * m.De * m.Alpha * e * (1 - e)
			for k := 0; k < 3; k++ {
				f := dVdr * rij[k] / r
				gD[3*i+k] += f
				gD[3*j+k] -= f
			}
		}
	}
	grad = utils.NewVector(d, gD)
	return
}
