package simclient

import (
	"context"

	"github.com/geodyn/birkhoff/metric"
)

// Client turns pool dispatch rounds into metric samples. It implements
// metric.Source, so the optimizer does not know whether its oracle runs
// inline or across the pool.
type Client struct {
	Pool *Pool
	Eval *metric.Evaluator
}

func NewClient(pool *Pool, eval *metric.Evaluator) *Client {
	return &Client{Pool: pool, Eval: eval}
}

// Samples dispatches one evaluation round and derives metric samples from
// the replies. Oracle values come back from the workers; the domain check
// E - V > 0 happens here on the coordinator, so a DomainError surfaces to
// the optimizer's line search rather than being retried as a worker fault.
func (c *Client) Samples(ctx context.Context, points []metric.Point) (samples []metric.Sample, err error) {
	items := make([]WorkItem, len(points))
	for i, p := range points {
		items[i] = WorkItem{NodeIndex: p.Index, Position: p.X}
	}
	results, err := c.Pool.Dispatch(ctx, items)
	if err != nil {
		return nil, err
	}
	samples = make([]metric.Sample, len(points))
	for i, r := range results {
		if samples[i], err = c.Eval.Derive(r.NodeIndex, points[i].X, r.V, r.Gradient); err != nil {
			return nil, err
		}
	}
	return
}
