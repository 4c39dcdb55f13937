// Package potential provides built-in potential energy surfaces satisfying
// the metric.Potential oracle contract. The real effective-medium evaluator
// lives outside this repository; these surfaces cover testing and small
// self-contained runs.
package potential

import (
	"fmt"

	"github.com/geodyn/birkhoff/utils"
)

// Free is the zero potential, V(x) = 0. Geodesics under it are straight
// lines.
type Free struct{}

func (Free) Evaluate(x utils.Vector) (v float64, grad utils.Vector, err error) {
	return 0, utils.NewVector(x.Len()), nil
}

// Harmonic is the isotropic quadratic well V(x) = k/2 * |x - center|^2.
type Harmonic struct {
	K      float64
	Center utils.Vector
}

func NewHarmonic(k float64, center utils.Vector) Harmonic {
	return Harmonic{K: k, Center: center.Copy()}
}

func (h Harmonic) Evaluate(x utils.Vector) (v float64, grad utils.Vector, err error) {
	d := x.Copy().Subtract(h.Center)
	v = 0.5 * h.K * d.Dot(d)
	grad = d.Scale(h.K)
	return
}

// New looks a built-in surface up by its configuration name.
func New(name string, params []float64, dim int) (p interface {
	Evaluate(x utils.Vector) (float64, utils.Vector, error)
}, err error) {
	switch name {
	case "free", "":
		return Free{}, nil
	case "harmonic":
		k := 1.0
		if len(params) > 0 {
			k = params[0]
		}
		return NewHarmonic(k, utils.NewVector(dim)), nil
	case "morse":
		return NewMorse(paramOr(params, 0, 1), paramOr(params, 1, 1), paramOr(params, 2, 1)), nil
	default:
		return nil, fmt.Errorf("potential: unknown surface %q", name)
	}
}

func paramOr(params []float64, i int, def float64) float64 {
	if i < len(params) {
		return params[i]
	}
	return def
}
