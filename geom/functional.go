// Package geom implements the curve-geometric operators of the discretized
// Maupertuis functional: segment lengths under the energy-dependent metric,
// the total action, its gradient with respect to the interior nodes, a
// discrete curvature estimate and equal-arc-length reparametrization.
package geom

import (
	"math"

	"github.com/geodyn/birkhoff/curve"
	"github.com/geodyn/birkhoff/metric"
	"github.com/geodyn/birkhoff/utils"
)

// Quadrature selects the rule used to integrate the metric coefficient over
// a segment. The exact rule is deliberately a parameter, not a constant.
type Quadrature uint8

const (
	// Trapezoid averages the endpoint coefficients, 0.5*(a0+a1)*|dx|.
	Trapezoid Quadrature = iota
	// Midpoint evaluates the coefficient at the segment midpoint under
	// linear interpolation of the potential. a^2 = 2(E-V) is linear in V,
	// so the midpoint coefficient is the quadratic mean of the endpoints,
	// sqrt((a0^2+a1^2)/2)*|dx|.
	Midpoint
)

// Functional evaluates the discretized action
//
//	L = sum_i q(a_i, a_i+1) * ||x_i+1 - x_i||_M
//
// where q is the quadrature rule and ||.||_M the mass-weighted norm.
type Functional struct {
	Mass utils.MassMatrix
	Rule Quadrature
	// SpacingRatio is the max/min segment-length ratio beyond which
	// reparametrization is required. Node clustering is the classic
	// degeneracy of curve-shortening flows.
	SpacingRatio float64
}

func NewFunctional(mass utils.MassMatrix) *Functional {
	return &Functional{Mass: mass, Rule: Trapezoid, SpacingRatio: 10}
}

func (f *Functional) coeff(a0, a1 float64) float64 {
	switch f.Rule {
	case Midpoint:
		return math.Sqrt(0.5 * (a0*a0 + a1*a1))
	default:
		return 0.5 * (a0 + a1)
	}
}

// dcoeff is the derivative of the segment coefficient with respect to one
// of its endpoint values aj.
func (f *Functional) dcoeff(a0, a1, aj float64) float64 {
	switch f.Rule {
	case Midpoint:
		return 0.5 * aj / f.coeff(a0, a1)
	default:
		return 0.5
	}
}

// SegmentLength is the metric length of the segment joining x0 to x1.
func (f *Functional) SegmentLength(x0, x1 utils.Vector, a0, a1 float64) float64 {
	return f.coeff(a0, a1) * f.Mass.Norm(x1.Copy().Subtract(x0))
}

// Length is the total metric length of the node polyline. a[i] is the metric
// coefficient at node i. Implements curve.Measurer.
func (f *Functional) Length(nodes []utils.Vector, a []float64) (length float64) {
	for i := 0; i < len(nodes)-1; i++ {
		length += f.SegmentLength(nodes[i], nodes[i+1], a[i], a[i+1])
	}
	return
}

// LengthOf evaluates the action of a curve from its per-node samples.
func (f *Functional) LengthOf(c *curve.Curve, samples []metric.Sample) (length float64) {
	a := Coefficients(samples)
	return c.FunctionalValue(f, a)
}

// Coefficients extracts the metric coefficient sequence from node samples.
func Coefficients(samples []metric.Sample) (a []float64) {
	a = make([]float64, len(samples))
	for i, s := range samples {
		a[i] = s.A
	}
	return
}

// GradLength assembles the gradient of the discretized action with respect
// to the interior node positions, flattened node-major into one vector of
// size Interior()*Dim(). For interior node j,
//
//	dL/dx_j = grad_a(x_j) * (dq/da_j(a_j-1,a_j)*|dx_j-1| + dq/da_j(a_j,a_j+1)*|dx_j|)
//	        + q(a_j-1,a_j) * M(x_j - x_j-1)/|dx_j-1|
//	        - q(a_j,a_j+1) * M(x_j+1 - x_j)/|dx_j|
//
// with |dx_i| = ||x_i+1 - x_i||_M and grad_a = -grad V / a.
func (f *Functional) GradLength(c *curve.Curve, samples []metric.Sample) (grad utils.Vector) {
	var (
		d    = c.Dim()
		n    = c.Interior()
		data = make([]float64, n*d)
	)
	for j := 1; j <= n; j++ {
		var (
			aPrev = samples[j-1].A
			aj    = samples[j].A
			aNext = samples[j+1].A
			dPrev = c.Node(j).Copy().Subtract(c.Node(j - 1))
			dNext = c.Node(j + 1).Copy().Subtract(c.Node(j))
			lPrev = f.Mass.Norm(dPrev)
			lNext = f.Mass.Norm(dNext)
			g     = samples[j].GradA().Scale(
				f.dcoeff(aPrev, aj, aj)*lPrev + f.dcoeff(aj, aNext, aj)*lNext)
		)
		g.AXPY(f.coeff(aPrev, aj)/lPrev, f.Mass.MulVec(dPrev))
		g.AXPY(-f.coeff(aj, aNext)/lNext, f.Mass.MulVec(dNext))
		copy(data[(j-1)*d:j*d], g.DataP())
	}
	return utils.NewVector(n*d, data)
}

// Curvature is a second-difference estimate at interior node i, normalized
// by the local mean segment length.
func (f *Functional) Curvature(c *curve.Curve, i int) float64 {
	var (
		dPrev = c.Node(i).Copy().Subtract(c.Node(i - 1))
		dNext = c.Node(i + 1).Copy().Subtract(c.Node(i))
		lPrev = f.Mass.Norm(dPrev)
		lNext = f.Mass.Norm(dNext)
		h     = 0.5 * (lPrev + lNext)
	)
	if h == 0 {
		return 0
	}
	second := dNext.Subtract(dPrev)
	return f.Mass.Norm(second) / (h * h)
}

// MaxCurvatureNode returns the interior node with the largest curvature.
// Ties go to the lowest index, keeping adaptive refinement deterministic.
func (f *Functional) MaxCurvatureNode(c *curve.Curve) (node int, kappa float64) {
	node = 1
	for j := 1; j <= c.Interior(); j++ {
		if k := f.Curvature(c, j); k > kappa {
			node, kappa = j, k
		}
	}
	return
}

// SpacingExceeded reports whether the max/min metric segment-length ratio
// has passed the configured threshold.
func (f *Functional) SpacingExceeded(c *curve.Curve, a []float64) bool {
	var (
		min = math.Inf(1)
		max = 0.
	)
	for i := 0; i < c.NumNodes()-1; i++ {
		l := f.SegmentLength(c.Node(i), c.Node(i+1), a[i], a[i+1])
		if l < min {
			min = l
		}
		if l > max {
			max = l
		}
	}
	if min == 0 {
		return true
	}
	return max/min > f.SpacingRatio
}
