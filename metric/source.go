package metric

import (
	"context"

	"github.com/geodyn/birkhoff/utils"
)

// Point is one evaluation request: a node index paired with the position to
// sample at.
type Point struct {
	Index int
	X     utils.Vector
}

// Source produces metric samples for a batch of points. The local
// implementation below calls the oracle inline; the distributed one in
// package simclient fans the batch out to a worker pool.
type Source interface {
	Samples(ctx context.Context, points []Point) ([]Sample, error)
}

// LocalSource evaluates the oracle in the calling goroutine.
type LocalSource struct {
	Eval *Evaluator
}

func (l LocalSource) Samples(_ context.Context, points []Point) (samples []Sample, err error) {
	samples = make([]Sample, len(points))
	for i, p := range points {
		if samples[i], err = l.Eval.Evaluate(p.Index, p.X); err != nil {
			return nil, err
		}
	}
	return
}

// Cache keeps the last sample taken for each node, keyed by node index and
// validated against the exact position it was taken at. A node whose
// position changed in any bit gets re-evaluated; a node that never moved
// (the endpoints, in particular) is never evaluated twice.
type Cache struct {
	src     Source
	samples map[int]Sample
}

func NewCache(src Source) *Cache {
	return &Cache{src: src, samples: make(map[int]Sample)}
}

// SamplesAt returns one sample per point, drawing on the cache where the
// cached position still matches and fetching the rest from the source in a
// single batch.
func (c *Cache) SamplesAt(ctx context.Context, points []Point) (samples []Sample, err error) {
	var (
		misses []Point
		out    = make([]Sample, len(points))
	)
	for i, p := range points {
		if s, ok := c.samples[p.Index]; ok && s.X.Equal(p.X) {
			out[i] = s
			continue
		}
		misses = append(misses, Point{Index: i, X: p.X})
	}
	if len(misses) > 0 {
		reqs := make([]Point, len(misses))
		for i, m := range misses {
			reqs[i] = Point{Index: points[m.Index].Index, X: m.X}
		}
		var fresh []Sample
		if fresh, err = c.src.Samples(ctx, reqs); err != nil {
			return nil, err
		}
		for i, m := range misses {
			out[m.Index] = fresh[i]
			c.samples[points[m.Index].Index] = fresh[i]
		}
	}
	return out, nil
}

// Invalidate drops every cached sample, forcing re-evaluation. Used when the
// curve topology changes and node indices no longer mean the same thing.
func (c *Cache) Invalidate() {
	c.samples = make(map[int]Sample)
}
