// Package bfgs is the curve-shortening quasi-Newton engine. It descends the
// discretized Maupertuis functional over the interior nodes of a curve with
// a limited-memory BFGS direction and a backtracking line search that
// respects the E - V(x) > 0 domain constraint: a step that would carry a
// node across the energy boundary is shrunk geometrically instead of
// rejected outright.
package bfgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/geodyn/birkhoff/curve"
	"github.com/geodyn/birkhoff/geom"
	"github.com/geodyn/birkhoff/metric"
	"github.com/geodyn/birkhoff/utils"
)

// Config carries the optimizer tolerances and budgets. Zero values fall back
// to the defaults below.
type Config struct {
	GradTol       float64 // metric-weighted gradient norm threshold
	RelTol        float64 // relative functional decrease threshold
	MaxIterations int
	Memory        int     // number of retained (s, y) pairs
	MaxShrink     int     // line-search shrink budget per iteration
	ArmijoC       float64 // sufficient-decrease constant
	HistoryCap    int     // convergence history ring size
	// RefineKappa enables adaptive refinement: an interior node whose
	// curvature exceeds it gets a neighbor node inserted. 0 disables.
	RefineKappa float64
	MaxNodes    int // refinement stops growing the curve here
}

func DefaultConfig() Config {
	return Config{
		GradTol:       1.e-5,
		RelTol:        1.e-8,
		MaxIterations: 500,
		Memory:        10,
		MaxShrink:     30,
		ArmijoC:       1.e-4,
		HistoryCap:    256,
		MaxNodes:      1024,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.GradTol <= 0 {
		c.GradTol = d.GradTol
	}
	if c.RelTol <= 0 {
		c.RelTol = d.RelTol
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.Memory <= 0 {
		c.Memory = d.Memory
	}
	if c.MaxShrink <= 0 {
		c.MaxShrink = d.MaxShrink
	}
	if c.ArmijoC <= 0 {
		c.ArmijoC = d.ArmijoC
	}
	if c.HistoryCap <= 0 {
		c.HistoryCap = d.HistoryCap
	}
	if c.MaxNodes <= 0 {
		c.MaxNodes = d.MaxNodes
	}
	return c
}

// Result is what a run hands back: the terminal state, the last valid
// functional value and the iteration log. Partial progress is never
// discarded; the curve passed to Minimize holds the last accepted geometry
// even on failure.
type Result struct {
	State      State
	Reason     string
	FinalValue float64
	GradNorm   float64
	Iterations int
	History    []Entry
}

type pair struct {
	s, y utils.Vector
	rho  float64
}

// Optimizer owns the search state of one run: the (s, y) memory, the current
// state machine position and the convergence history. It is not safe for
// concurrent use; one run, one optimizer.
type Optimizer struct {
	cfg     Config
	fn      *geom.Functional
	cache   *metric.Cache
	state   State
	mem     []pair
	history *History
}

func New(cfg Config, fn *geom.Functional, src metric.Source) *Optimizer {
	cfg = cfg.withDefaults()
	return &Optimizer{
		cfg:     cfg,
		fn:      fn,
		cache:   metric.NewCache(src),
		state:   Initializing,
		history: NewHistory(cfg.HistoryCap),
	}
}

func (o *Optimizer) State() State { return o.state }

func points(c *curve.Curve) (pts []metric.Point) {
	pts = make([]metric.Point, c.NumNodes())
	for i := range pts {
		pts[i] = metric.Point{Index: i, X: c.Node(i)}
	}
	return
}

// gradNorm is the metric-weighted size of the flattened interior gradient:
// the max over nodes of the inverse-mass norm of that node's block.
func (o *Optimizer) gradNorm(g utils.Vector, dim int) (gn float64) {
	var (
		data = g.DataP()
	)
	for off := 0; off+dim <= len(data); off += dim {
		block := utils.NewVector(dim, data[off:off+dim])
		if n := o.fn.Mass.InvNorm(block); n > gn {
			gn = n
		}
	}
	return
}

// resetMemory drops the quasi-Newton pairs. Required whenever the variable
// layout changes: refinement, coarsening or reparametrization.
func (o *Optimizer) resetMemory() { o.mem = o.mem[:0] }

func (o *Optimizer) pushPair(s, y utils.Vector) {
	ys := y.Dot(s)
	if ys <= 0 {
		return // would break positive definiteness
	}
	o.mem = append(o.mem, pair{s: s, y: y, rho: 1. / ys})
	if len(o.mem) > o.cfg.Memory {
		o.mem = o.mem[1:]
	}
}

// direction runs the standard two-loop recursion, returning -H*g.
func (o *Optimizer) direction(g utils.Vector) (p utils.Vector) {
	var (
		q     = g.Copy()
		k     = len(o.mem)
		alpha = make([]float64, k)
	)
	for i := k - 1; i >= 0; i-- {
		alpha[i] = o.mem[i].rho * o.mem[i].s.Dot(q)
		q.AXPY(-alpha[i], o.mem[i].y)
	}
	if k > 0 {
		last := o.mem[k-1]
		q.Scale(last.s.Dot(last.y) / last.y.Dot(last.y))
	}
	for i := 0; i < k; i++ {
		beta := o.mem[i].rho * o.mem[i].y.Dot(q)
		q.AXPY(alpha[i]-beta, o.mem[i].s)
	}
	return q.Scale(-1)
}

// evaluate samples the whole curve and assembles (f, g). Unchanged nodes are
// served from the cache, so endpoints are never re-evaluated.
func (o *Optimizer) evaluate(ctx context.Context, c *curve.Curve) (f float64, g utils.Vector, samples []metric.Sample, err error) {
	if samples, err = o.cache.SamplesAt(ctx, points(c)); err != nil {
		return
	}
	f = o.fn.LengthOf(c, samples)
	g = o.fn.GradLength(c, samples)
	return
}

// Minimize runs the state machine to a terminal state, mutating c in place
// at every accepted step. The returned error is non-nil only for
// cancellation; optimization failure is reported in Result.State.
func (o *Optimizer) Minimize(ctx context.Context, c *curve.Curve) (res Result, err error) {
	var (
		dim = c.Dim()
	)
	o.state = Evaluating
	f, g, _, evalErr := o.evaluate(ctx, c)
	if evalErr != nil {
		return o.fail(f, 0, 0, evalErr)
	}
	gn := o.gradNorm(g, dim)

	for iter := 0; ; iter++ {
		if gn <= o.cfg.GradTol {
			o.state = Converged
			return o.finish(f, gn, iter, "gradient norm below tolerance"), nil
		}
		if iter >= o.cfg.MaxIterations {
			o.state = Failed
			return o.finish(f, gn, iter, "iteration budget exhausted"), nil
		}
		if ctx.Err() != nil {
			o.state = Cancelled
			return o.finish(f, gn, iter, "cancelled"), ctx.Err()
		}

		o.state = StepComputing
		p := o.direction(g)
		if g.Dot(p) >= 0 {
			// stale memory produced an ascent direction; restart from
			// steepest descent
			o.resetMemory()
			p = g.Copy().Scale(-1)
		}

		o.state = LineSearching
		step, fNew, gNew, lsErr := o.lineSearch(ctx, c, f, g, p)
		if lsErr != nil {
			if ctx.Err() != nil {
				o.state = Cancelled
				return o.finish(f, gn, iter, "cancelled"), ctx.Err()
			}
			return o.fail(f, gn, iter, lsErr)
		}

		// quasi-Newton memory update from the accepted step
		s := p.Copy().Scale(step)
		y := gNew.Copy().Subtract(g)
		o.pushPair(s, y)

		relDecrease := (f - fNew) / maxAbs1(f)
		f, g = fNew, gNew
		gn = o.gradNorm(g, dim)
		o.history.Append(Entry{Iteration: iter, F: f, GradNorm: gn, Step: step})

		if relDecrease < o.cfg.RelTol {
			o.state = Converged
			return o.finish(f, gn, iter+1, "relative decrease below tolerance"), nil
		}

		// curve maintenance; both paths change the variable layout, so the
		// memory is dropped and (f, g) recomputed
		if maintained, mErr := o.maintain(ctx, c); mErr != nil {
			return o.fail(f, gn, iter, mErr)
		} else if maintained {
			o.state = Evaluating
			if f, g, _, evalErr = o.evaluate(ctx, c); evalErr != nil {
				return o.fail(f, gn, iter, evalErr)
			}
			gn = o.gradNorm(g, dim)
		}
	}
}

// maintain reparametrizes on excessive spacing variance and refines at the
// highest-curvature node (lowest index wins ties) when adaptive refinement
// is enabled. Reports whether the curve changed.
func (o *Optimizer) maintain(ctx context.Context, c *curve.Curve) (changed bool, err error) {
	samples, err := o.cache.SamplesAt(ctx, points(c))
	if err != nil {
		return false, err
	}
	a := geom.Coefficients(samples)
	if o.fn.SpacingExceeded(c, a) {
		if err = o.fn.Reparametrize(c, a); err != nil {
			return false, err
		}
		o.resetMemory()
		changed = true
	}
	if o.cfg.RefineKappa > 0 && c.NumNodes() < o.cfg.MaxNodes {
		if node, kappa := o.fn.MaxCurvatureNode(c); kappa > o.cfg.RefineKappa {
			// insert into the segment ahead of the offending node
			if err = c.RefineAt(node); err != nil {
				return false, err
			}
			o.cache.Invalidate() // node indices shifted
			o.resetMemory()
			changed = true
		}
	}
	return
}

// lineSearch backtracks along p from the current geometry, halving the step
// whenever the Armijo condition fails or a node lands past the energy
// boundary (DomainError). Any other evaluation error aborts the search. On
// acceptance the curve has been mutated to the new geometry.
func (o *Optimizer) lineSearch(ctx context.Context, c *curve.Curve, f float64, g, p utils.Vector) (step, fNew float64, gNew utils.Vector, err error) {
	var (
		dim   = c.Dim()
		slope = g.Dot(p)
		t     = 1.0
	)
	if slope >= 0 {
		return 0, 0, utils.Vector{}, fmt.Errorf("bfgs: direction is not a descent direction (slope %g)", slope)
	}
	base := c.Copy()
	restore := func() error {
		for j := 1; j <= c.Interior(); j++ {
			if sErr := c.SetNode(j, base.Node(j)); sErr != nil {
				return sErr
			}
		}
		return nil
	}
	for attempt := 0; attempt <= o.cfg.MaxShrink; attempt++ {
		// place trial geometry into c
		for j := 1; j <= c.Interior(); j++ {
			xj := base.Node(j).Copy()
			block := utils.NewVector(dim, p.DataP()[(j-1)*dim:j*dim])
			xj.AXPY(t, block)
			if err = c.SetNode(j, xj); err != nil {
				return 0, 0, utils.Vector{}, err
			}
		}
		fTrial, gTrial, _, evalErr := o.evaluate(ctx, c)
		if evalErr != nil {
			var de metric.DomainError
			if errors.As(evalErr, &de) {
				t *= 0.5 // constraint violation: shrink, do not fail
				continue
			}
			// any other failure aborts the search; the curve must hold the
			// last accepted geometry, not the dead trial
			if rErr := restore(); rErr != nil {
				return 0, 0, utils.Vector{}, rErr
			}
			return 0, 0, utils.Vector{}, evalErr
		}
		if fTrial <= f+o.cfg.ArmijoC*t*slope {
			return t, fTrial, gTrial, nil
		}
		t *= 0.5
	}
	// restore the last accepted geometry before reporting failure
	if err = restore(); err != nil {
		return 0, 0, utils.Vector{}, err
	}
	return 0, 0, utils.Vector{}, fmt.Errorf("bfgs: line search exhausted %d shrink attempts", o.cfg.MaxShrink)
}

func (o *Optimizer) finish(f, gn float64, iterations int, reason string) Result {
	return Result{
		State:      o.state,
		Reason:     reason,
		FinalValue: f,
		GradNorm:   gn,
		Iterations: iterations,
		History:    o.history.Entries(),
	}
}

func (o *Optimizer) fail(f, gn float64, iterations int, cause error) (Result, error) {
	o.state = Failed
	return o.finish(f, gn, iterations, cause.Error()), nil
}

func maxAbs1(f float64) float64 {
	if f < 0 {
		f = -f
	}
	if f < 1 {
		return 1
	}
	return f
}
