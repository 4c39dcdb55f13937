package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geodyn/birkhoff/curve"
	"github.com/geodyn/birkhoff/metric"
	"github.com/geodyn/birkhoff/potential"
	"github.com/geodyn/birkhoff/utils"
)

func sampleCurve(t *testing.T, ev *metric.Evaluator, c *curve.Curve) (samples []metric.Sample) {
	t.Helper()
	samples = make([]metric.Sample, c.NumNodes())
	for i := range samples {
		s, err := ev.Evaluate(i, c.Node(i))
		require.NoError(t, err)
		samples[i] = s
	}
	return
}

// d=1, V=0, E=1, endpoints 0 and 1: the metric coefficient is sqrt(2)
// everywhere, so the functional value of any monotone interpolation is
// sqrt(2)*1.
func TestLengthFreeParticle(t *testing.T) {
	ev := metric.NewEvaluator(1, potential.Free{})
	c, err := curve.New(utils.NewVector(1, []float64{0}), utils.NewVector(1, []float64{1}), 5)
	require.NoError(t, err)

	f := NewFunctional(utils.NewUnitMass(1))
	samples := sampleCurve(t, ev, c)
	assert.InDelta(t, math.Sqrt2, f.LengthOf(c, samples), 1.e-14)

	// each segment contributes sqrt(2)*0.25
	assert.InDelta(t, math.Sqrt2*0.25,
		f.SegmentLength(c.Node(0), c.Node(1), samples[0].A, samples[1].A), 1.e-14)
}

// The analytic gradient must match a central finite difference of the
// discretized functional, including the dependence of the metric coefficient
// on the node positions.
func TestGradLengthFiniteDifference(t *testing.T) {
	var (
		ev   = metric.NewEvaluator(8, potential.NewHarmonic(1, utils.NewVector(2)))
		a    = utils.NewVector(2, []float64{-1, 0.3})
		b    = utils.NewVector(2, []float64{1, -0.2})
		mass = utils.NewMassMatrix([]float64{2}, 2)
		f    = NewFunctional(mass)
		h    = 1.e-6
	)
	c, err := curve.New(a, b, 6)
	require.NoError(t, err)
	// bend the curve so no symmetry hides an error
	require.NoError(t, c.Perturb(2, utils.NewVector(2, []float64{0.1, -0.05})))
	require.NoError(t, c.Perturb(3, utils.NewVector(2, []float64{-0.07, 0.12})))

	lengthAt := func(c *curve.Curve) float64 {
		return f.LengthOf(c, sampleCurve(t, ev, c))
	}

	for _, rule := range []Quadrature{Trapezoid, Midpoint} {
		f.Rule = rule
		grad := f.GradLength(c, sampleCurve(t, ev, c))
		for j := 1; j <= c.Interior(); j++ {
			for k := 0; k < c.Dim(); k++ {
				delta := utils.NewVector(2)
				delta.Set(k, h)
				cp := c.Copy()
				require.NoError(t, cp.Perturb(j, delta))
				fPlus := lengthAt(cp)
				cm := c.Copy()
				require.NoError(t, cm.Perturb(j, delta.Scale(-1)))
				fMinus := lengthAt(cm)
				fd := (fPlus - fMinus) / (2 * h)
				assert.InDelta(t, fd, grad.AtVec((j-1)*c.Dim()+k), 1.e-6,
					"rule %d node %d coord %d", rule, j, k)
			}
		}
	}
}

// The two quadrature rules must actually differ when the endpoint
// coefficients do: the midpoint coefficient is the quadratic mean.
func TestQuadratureRules(t *testing.T) {
	var (
		f  = NewFunctional(utils.NewUnitMass(1))
		x0 = utils.NewVector(1, []float64{0})
		x1 = utils.NewVector(1, []float64{1})
	)
	assert.InDelta(t, 2, f.SegmentLength(x0, x1, 1, 3), 1.e-14)

	f.Rule = Midpoint
	assert.InDelta(t, math.Sqrt(5), f.SegmentLength(x0, x1, 1, 3), 1.e-14)

	// equal endpoint coefficients collapse both rules to the same value
	assert.InDelta(t, 2, f.SegmentLength(x0, x1, 2, 2), 1.e-14)
}

func TestReparametrize(t *testing.T) {
	ev := metric.NewEvaluator(1, potential.Free{})
	c, err := curve.New(utils.NewVector(1, []float64{0}), utils.NewVector(1, []float64{1}), 5)
	require.NoError(t, err)
	// cluster the interior nodes near the left endpoint
	require.NoError(t, c.SetNode(1, utils.NewVector(1, []float64{0.01})))
	require.NoError(t, c.SetNode(2, utils.NewVector(1, []float64{0.02})))
	require.NoError(t, c.SetNode(3, utils.NewVector(1, []float64{0.03})))

	f := NewFunctional(utils.NewUnitMass(1))
	samples := sampleCurve(t, ev, c)
	a := Coefficients(samples)
	require.True(t, f.SpacingExceeded(c, a))

	lenBefore := f.Length(c.Nodes(), a)
	x0, xN := c.Node(0).Copy(), c.Node(4).Copy()
	require.NoError(t, f.Reparametrize(c, a))

	// endpoints bit-identical, total length preserved, spacing uniform
	assert.True(t, c.Node(0).Equal(x0))
	assert.True(t, c.Node(4).Equal(xN))
	samples = sampleCurve(t, ev, c)
	a = Coefficients(samples)
	assert.InDelta(t, lenBefore, f.Length(c.Nodes(), a), 1.e-12)
	assert.False(t, f.SpacingExceeded(c, a))
	for i, w := range []float64{0, 0.25, 0.5, 0.75, 1} {
		assert.InDelta(t, w, c.Node(i).AtVec(0), 1.e-12)
	}
}

func TestCurvatureTieBreak(t *testing.T) {
	f := NewFunctional(utils.NewUnitMass(2))
	c, err := curve.New(utils.NewVector(2), utils.NewVector(2, []float64{4, 0}), 5)
	require.NoError(t, err)

	// symmetric bumps at nodes 1 and 3 produce identical curvature; the
	// lowest index must win
	require.NoError(t, c.Perturb(1, utils.NewVector(2, []float64{0, 0.2})))
	require.NoError(t, c.Perturb(3, utils.NewVector(2, []float64{0, 0.2})))
	k1 := f.Curvature(c, 1)
	k3 := f.Curvature(c, 3)
	require.InDelta(t, k1, k3, 1.e-14)

	node, kappa := f.MaxCurvatureNode(c)
	assert.Equal(t, 1, node)
	assert.InDelta(t, k1, kappa, 1.e-14)
}
