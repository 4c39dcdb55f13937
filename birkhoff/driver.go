// Package birkhoff drives the global curve-shortening procedure: every
// interior node of the global curve is repeatedly moved to the midpoint of
// the local geodesic joining its two neighbors, until the total movement of
// the curve over a full sweep falls below tolerance. The local geodesic
// subproblems are solved by the bfgs engine against a shared metric source,
// so the same driver runs on an in-process oracle or a worker pool.
package birkhoff

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geodyn/birkhoff/bfgs"
	"github.com/geodyn/birkhoff/curve"
	"github.com/geodyn/birkhoff/geom"
	"github.com/geodyn/birkhoff/metric"
	"github.com/geodyn/birkhoff/utils"
)

// Config carries the sweep-level knobs. Local holds the per-subproblem
// optimizer configuration.
type Config struct {
	Tolerance  float64 // total movement per sweep below which the run converges
	MaxSweeps  int
	LocalNodes int // node count of each local geodesic curve, made odd
	Local      bfgs.Config
}

func DefaultConfig() Config {
	return Config{
		Tolerance:  1.e-4,
		MaxSweeps:  100,
		LocalNodes: 9,
		Local:      bfgs.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Tolerance <= 0 {
		c.Tolerance = d.Tolerance
	}
	if c.MaxSweeps <= 0 {
		c.MaxSweeps = d.MaxSweeps
	}
	if c.LocalNodes < 3 {
		c.LocalNodes = d.LocalNodes
	}
	if c.LocalNodes%2 == 0 {
		c.LocalNodes++ // the midpoint must be a node
	}
	return c
}

// Result reports the terminal state of one run. The curve passed to Run
// always holds the last completed geometry, converged or not.
type Result struct {
	State      bfgs.State
	Reason     string
	FinalValue float64
	Sweeps     int
	Movement   float64 // total movement of the last completed sweep
}

// Driver owns one global run. OnSweep, when set, observes the curve after
// every completed sweep; the trajectory writer hooks in there.
type Driver struct {
	cfg     Config
	fn      *geom.Functional
	src     metric.Source
	cache   *metric.Cache
	log     *slog.Logger
	OnSweep func(sweep int, c *curve.Curve)
}

func New(cfg Config, fn *geom.Functional, src metric.Source, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		cfg:   cfg.withDefaults(),
		fn:    fn,
		src:   src,
		cache: metric.NewCache(src),
		log:   logger,
	}
}

// Run sweeps the global curve to convergence, mutating c in place. The
// returned error is non-nil only for cancellation; all other terminal
// conditions are reported through Result.State.
func (d *Driver) Run(ctx context.Context, c *curve.Curve) (res Result, err error) {
	for sweep := 0; ; sweep++ {
		if sweep >= d.cfg.MaxSweeps {
			return d.finish(c, bfgs.Failed, "sweep budget exhausted", sweep, res.Movement)
		}
		if ctx.Err() != nil {
			res, _ = d.finish(c, bfgs.Cancelled, "cancelled", sweep, res.Movement)
			return res, ctx.Err()
		}

		prev := c.Copy()
		for j := 1; j <= c.Interior(); j++ {
			mid, state, mErr := d.relax(ctx, c.Node(j-1), c.Node(j+1))
			if mErr != nil {
				if ctx.Err() != nil {
					res, _ = d.finish(c, bfgs.Cancelled, "cancelled", sweep, res.Movement)
					return res, ctx.Err()
				}
				return d.finish(c, bfgs.Failed,
					fmt.Sprintf("node %d: %v", j, mErr), sweep, res.Movement)
			}
			if state != bfgs.Converged {
				return d.finish(c, bfgs.Failed,
					fmt.Sprintf("node %d: local geodesic ended %s", j, state), sweep, res.Movement)
			}
			if err = c.SetNode(j, mid); err != nil {
				return d.finish(c, bfgs.Failed, err.Error(), sweep, res.Movement)
			}
		}

		movement, dErr := c.Displacements(prev)
		if dErr != nil {
			return d.finish(c, bfgs.Failed, dErr.Error(), sweep, res.Movement)
		}
		res.Movement = movement
		d.cache.Invalidate() // global nodes moved
		d.log.Info("sweep complete", "sweep", sweep, "movement", movement)
		if d.OnSweep != nil {
			d.OnSweep(sweep, c)
		}

		if movement < d.cfg.Tolerance {
			return d.finish(c, bfgs.Converged, "curve movement below tolerance", sweep+1, movement)
		}
	}
}

// relax solves the local geodesic between two fixed neighbors and returns
// its midpoint node.
func (d *Driver) relax(ctx context.Context, left, right utils.Vector) (mid utils.Vector, state bfgs.State, err error) {
	local, err := curve.New(left, right, d.cfg.LocalNodes)
	if err != nil {
		return mid, bfgs.Failed, err
	}
	opt := bfgs.New(d.cfg.Local, d.fn, d.src)
	lres, err := opt.Minimize(ctx, local)
	if err != nil {
		return mid, lres.State, err
	}
	if lres.State != bfgs.Converged {
		return mid, lres.State, nil
	}
	return local.Node(d.cfg.LocalNodes / 2).Copy(), bfgs.Converged, nil
}

func (d *Driver) finish(c *curve.Curve, state bfgs.State, reason string, sweeps int, movement float64) (Result, error) {
	res := Result{
		State:    state,
		Reason:   reason,
		Sweeps:   sweeps,
		Movement: movement,
	}
	// best effort: the final functional value of the last valid geometry.
	// A fresh context is used so the value survives cancellation of the run.
	pts := make([]metric.Point, c.NumNodes())
	for i := range pts {
		pts[i] = metric.Point{Index: i, X: c.Node(i)}
	}
	if samples, sErr := d.cache.SamplesAt(context.Background(), pts); sErr == nil {
		res.FinalValue = d.fn.LengthOf(c, samples)
	}
	d.log.Info("run finished",
		"state", state.String(), "reason", reason,
		"sweeps", sweeps, "value", res.FinalValue)
	return res, nil
}
