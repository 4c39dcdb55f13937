// Package metric evaluates the energy-dependent Riemannian metric of the
// Maupertuis functional. The metric coefficient at a configuration x is
//
//	a(x) = sqrt(2(E - V(x)))
//
// where V is supplied by an external potential oracle and E is the fixed
// total energy of the run. The geodesic problem is only well posed while
// E - V(x) stays positive; crossing that boundary surfaces as a DomainError.
package metric

import (
	"fmt"
	"math"

	"github.com/geodyn/birkhoff/utils"
)

// Potential is the external effective-medium oracle. Implementations must be
// deterministic and side-effect free from the caller's perspective.
type Potential interface {
	// Evaluate returns the potential energy and its gradient at x.
	Evaluate(x utils.Vector) (v float64, grad utils.Vector, err error)
}

// DomainError reports that E - V(x) dropped to or below zero at a sampled
// configuration. The optimizer treats it as a constraint violation and
// shrinks the offending step; it only escalates after the shrink budget is
// exhausted.
type DomainError struct {
	NodeIndex int
	V         float64
	E         float64
}

func (e DomainError) Error() string {
	return fmt.Sprintf("metric: E - V = %g <= 0 at node %d, curve crossed the energy boundary",
		e.E-e.V, e.NodeIndex)
}

// Sample is the cached per-node tuple of potential and metric values. The
// position field is a copy, so a sample stays internally consistent even if
// the node it came from moves on.
type Sample struct {
	X    utils.Vector // position the sample was taken at
	V    float64      // potential energy V(X)
	Grad utils.Vector // gradient of V at X
	A    float64      // metric coefficient sqrt(2(E - V))
}

// GradA is the position derivative of the metric coefficient, -Grad/A.
func (s Sample) GradA() (g utils.Vector) {
	return s.Grad.Copy().Scale(-1. / s.A)
}

// Evaluator derives metric samples at a fixed total energy E.
type Evaluator struct {
	E   float64
	Pot Potential
}

func NewEvaluator(totalEnergy float64, pot Potential) *Evaluator {
	return &Evaluator{E: totalEnergy, Pot: pot}
}

// Derive builds a sample from an already computed oracle result. This is the
// path used when the oracle ran on a worker and only (V, grad) came back.
func (ev *Evaluator) Derive(nodeIndex int, x utils.Vector, v float64, grad utils.Vector) (s Sample, err error) {
	if ev.E-v <= 0 {
		return Sample{}, DomainError{NodeIndex: nodeIndex, V: v, E: ev.E}
	}
	return Sample{
		X:    x.Copy(),
		V:    v,
		Grad: grad.Copy(),
		A:    math.Sqrt(2 * (ev.E - v)),
	}, nil
}

// Evaluate queries the oracle directly and derives the sample.
func (ev *Evaluator) Evaluate(nodeIndex int, x utils.Vector) (s Sample, err error) {
	v, grad, err := ev.Pot.Evaluate(x)
	if err != nil {
		return Sample{}, err
	}
	return ev.Derive(nodeIndex, x, v, grad)
}
