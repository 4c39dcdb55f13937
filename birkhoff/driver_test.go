package birkhoff

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geodyn/birkhoff/bfgs"
	"github.com/geodyn/birkhoff/curve"
	"github.com/geodyn/birkhoff/geom"
	"github.com/geodyn/birkhoff/metric"
	"github.com/geodyn/birkhoff/potential"
	"github.com/geodyn/birkhoff/utils"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDriver(cfg Config, e float64, pot metric.Potential, dim int) *Driver {
	var (
		ev = metric.NewEvaluator(e, pot)
		fn = geom.NewFunctional(utils.NewUnitMass(dim))
	)
	return New(cfg, fn, metric.LocalSource{Eval: ev}, testLogger())
}

// A uniform straight line under the zero potential is a fixed point of the
// midpoint iteration: one sweep, negligible movement, done.
func TestRunFreeParticle(t *testing.T) {
	d := newDriver(Config{}, 1, potential.Free{}, 2)
	c, err := curve.New(
		utils.NewVector(2, []float64{0, 0}),
		utils.NewVector(2, []float64{1, 1}), 5)
	require.NoError(t, err)

	res, err := d.Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, bfgs.Converged, res.State)
	assert.Equal(t, 1, res.Sweeps)
	assert.Less(t, res.Movement, 1.e-10)
	assert.InDelta(t, 2, res.FinalValue, 1.e-9)
}

func TestRunHarmonic(t *testing.T) {
	var (
		center = utils.NewVector(2, []float64{0, 0.6})
		d      = newDriver(Config{}, 4, potential.NewHarmonic(1, center), 2)
		sweeps int
	)
	d.OnSweep = func(sweep int, c *curve.Curve) { sweeps++ }

	c, err := curve.New(
		utils.NewVector(2, []float64{-1, 0}),
		utils.NewVector(2, []float64{1, 0}), 5)
	require.NoError(t, err)
	var (
		a0    = c.Node(0).Copy()
		b0    = c.Node(4).Copy()
		fInit = straightLineValue(t, c, 4, center)
	)

	res, err := d.Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, bfgs.Converged, res.State)
	assert.Equal(t, res.Sweeps, sweeps)
	assert.Less(t, res.Movement, DefaultConfig().Tolerance)

	assert.True(t, c.Node(0).Equal(a0))
	assert.True(t, c.Node(4).Equal(b0))
	// the curve bends toward the well center
	assert.Greater(t, c.Node(2).AtVec(1), 0.)
	assert.Less(t, res.FinalValue, fInit)
}

func straightLineValue(t *testing.T, c *curve.Curve, e float64, center utils.Vector) float64 {
	t.Helper()
	var (
		ev      = metric.NewEvaluator(e, potential.NewHarmonic(1, center))
		fn      = geom.NewFunctional(utils.NewUnitMass(c.Dim()))
		samples = make([]metric.Sample, c.NumNodes())
	)
	for i := range samples {
		s, err := ev.Evaluate(i, c.Node(i))
		require.NoError(t, err)
		samples[i] = s
	}
	return fn.LengthOf(c, samples)
}

func TestRunSweepBudget(t *testing.T) {
	var (
		center = utils.NewVector(2, []float64{0, 0.6})
		cfg    = Config{MaxSweeps: 1, Tolerance: 1.e-300}
		d      = newDriver(cfg, 4, potential.NewHarmonic(1, center), 2)
	)
	c, err := curve.New(
		utils.NewVector(2, []float64{-1, 0}),
		utils.NewVector(2, []float64{1, 0}), 5)
	require.NoError(t, err)

	res, err := d.Run(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, bfgs.Failed, res.State)
	assert.Equal(t, "sweep budget exhausted", res.Reason)
	assert.Equal(t, 1, res.Sweeps)
	assert.Greater(t, res.Movement, 0.)
	// partial progress is kept
	assert.Greater(t, c.Node(2).AtVec(1), 0.)
}

func TestRunCancelled(t *testing.T) {
	d := newDriver(Config{}, 1, potential.Free{}, 2)
	c, err := curve.New(
		utils.NewVector(2, []float64{0, 0}),
		utils.NewVector(2, []float64{1, 1}), 5)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := d.Run(ctx, c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, bfgs.Cancelled, res.State)
	// the functional value of the last valid geometry is still reported
	assert.InDelta(t, 2, res.FinalValue, 1.e-9)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{LocalNodes: 4}.withDefaults()
	assert.Equal(t, 5, cfg.LocalNodes, "local node count must be odd")
	assert.Equal(t, DefaultConfig().MaxSweeps, cfg.MaxSweeps)
	assert.Equal(t, DefaultConfig().Tolerance, cfg.Tolerance)
}
