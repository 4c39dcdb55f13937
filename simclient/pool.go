package simclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/geodyn/birkhoff/metric"
	"github.com/geodyn/birkhoff/utils"
)

// WorkItem is one evaluation request for the round: which node, and where.
type WorkItem struct {
	NodeIndex int
	Position  utils.Vector
}

// WorkResult is the matching oracle reply.
type WorkResult struct {
	NodeIndex int
	V         float64
	Gradient  utils.Vector
}

// WorkerFailure reports that an item could not be evaluated within the retry
// budget. It aborts the evaluation round.
type WorkerFailure struct {
	NodeIndex int
	Attempts  int
	Reason    string
}

func (e WorkerFailure) Error() string {
	return fmt.Sprintf("simclient: evaluation of node %d failed after %d attempts: %s",
		e.NodeIndex, e.Attempts, e.Reason)
}

// PoolConfig sizes the pool and its failure policy.
type PoolConfig struct {
	Size           int           // number of workers
	Timeout        time.Duration // per-item wait before the item is retried
	Retries        int           // retries per item after the first attempt
	HeartbeatEvery time.Duration // worker heartbeat interval, 0 disables
}

// Pool is an explicitly owned worker pool with lifecycle
// Start -> Dispatch* -> Shutdown. Workers are stateless with respect to
// curve data: each request carries the one position its evaluation needs.
type Pool struct {
	cfg      PoolConfig
	requests chan envelope
	wg       sync.WaitGroup
	log      *slog.Logger

	mu       sync.Mutex
	lastSeen map[string]time.Time
	started  bool
}

func NewPool(cfg PoolConfig, log *slog.Logger) *Pool {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Pool{
		cfg:      cfg,
		requests: make(chan envelope, cfg.Size),
		lastSeen: make(map[string]time.Time),
		log:      log,
	}
}

// Start launches the workers. Each worker owns the oracle newPot gives it;
// oracles are never shared across goroutines.
func (p *Pool) Start(newPot func() metric.Potential) {
	if p.started {
		return
	}
	p.started = true
	for i := 0; i < p.cfg.Size; i++ {
		id := fmt.Sprintf("worker-%s", uuid.New().String()[:8])
		p.wg.Add(1)
		go p.worker(id, newPot())
	}
	p.log.Info("worker pool started", "size", p.cfg.Size, "timeout", p.cfg.Timeout)
}

// Shutdown drains the pool: every worker receives a ShutdownRequest and
// acknowledges by exiting; the call blocks until all have.
func (p *Pool) Shutdown() {
	if !p.started {
		return
	}
	for i := 0; i < p.cfg.Size; i++ {
		p.requests <- envelope{Kind: ShutdownRequestMsg, Shutdown: ShutdownRequest{Schema: SchemaVersion}}
	}
	p.wg.Wait()
	p.started = false
	p.log.Info("worker pool drained")
}

// LastHeartbeat reports when the given worker was last heard from.
func (p *Pool) LastHeartbeat(workerID string) (ts time.Time, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ts, ok = p.lastSeen[workerID]
	return
}

// Workers returns the ids of workers that have ever reported a heartbeat.
func (p *Pool) Workers() (ids []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.lastSeen {
		ids = append(ids, id)
	}
	return
}

func (p *Pool) noteHeartbeat(hb Heartbeat) {
	p.mu.Lock()
	p.lastSeen[hb.WorkerID] = hb.Timestamp
	p.mu.Unlock()
}

func (p *Pool) worker(id string, pot metric.Potential) {
	defer p.wg.Done()
	var hb *time.Ticker
	if p.cfg.HeartbeatEvery > 0 {
		hb = time.NewTicker(p.cfg.HeartbeatEvery)
		defer hb.Stop()
	} else {
		hb = time.NewTicker(time.Hour)
		hb.Stop()
	}
	p.noteHeartbeat(Heartbeat{Schema: SchemaVersion, WorkerID: id, Timestamp: time.Now()})
	for {
		select {
		case env := <-p.requests:
			switch env.Kind {
			case ShutdownRequestMsg:
				p.log.Debug("worker shutting down", "worker", id)
				return
			case EvaluateRequestMsg:
				env.replyTo <- p.evaluate(id, pot, env.Request)
			default:
				p.log.Warn("worker received unexpected message", "worker", id, "kind", env.Kind.String())
			}
		case <-hb.C:
			p.noteHeartbeat(Heartbeat{Schema: SchemaVersion, WorkerID: id, Timestamp: time.Now()})
		}
	}
}

func (p *Pool) evaluate(workerID string, pot metric.Potential, req EvaluateRequest) envelope {
	x := utils.NewVector(len(req.Position), req.Position)
	v, grad, err := pot.Evaluate(x)
	p.noteHeartbeat(Heartbeat{Schema: SchemaVersion, WorkerID: workerID, Timestamp: time.Now()})
	if err != nil {
		return envelope{Kind: ErrorReportMsg, Report: ErrorReport{
			Schema:    SchemaVersion,
			RequestID: req.RequestID,
			Reason:    err.Error(),
		}}
	}
	return envelope{Kind: EvaluateResponseMsg, Response: EvaluateResponse{
		Schema:    SchemaVersion,
		RequestID: req.RequestID,
		V:         v,
		Gradient:  grad.DataP(),
	}}
}

// Dispatch sends every item to an available worker and blocks until all
// results for the round are in, an item exhausts its retry budget, or ctx is
// cancelled. Results are matched to items by request id, so completion order
// does not matter and stale replies from earlier attempts are discarded.
func (p *Pool) Dispatch(ctx context.Context, items []WorkItem) (results []WorkResult, err error) {
	var (
		budget   = len(items) * (p.cfg.Retries + 1)
		replies  = make(chan envelope, budget)
		timeouts = make(chan string, budget)
		pending  = make(map[string]int, len(items))
		attempts = make([]int, len(items))
	)
	results = make([]WorkResult, len(items))

	send := func(idx int) error {
		id := uuid.New().String()
		pending[id] = idx
		attempts[idx]++
		env := envelope{
			Kind: EvaluateRequestMsg,
			Request: EvaluateRequest{
				Schema:    SchemaVersion,
				RequestID: id,
				NodeIndex: items[idx].NodeIndex,
				Position:  items[idx].Position.DataP(),
			},
			replyTo: replies,
		}
		select {
		case p.requests <- env:
		case <-ctx.Done():
			return ctx.Err()
		}
		go func() {
			select {
			case <-time.After(p.cfg.Timeout):
				timeouts <- id
			case <-ctx.Done():
			}
		}()
		return nil
	}

	// retryOrFail re-issues the item behind a dead request id, or aborts the
	// round once the budget is spent.
	retryOrFail := func(id string, reason string) error {
		idx, ok := pending[id]
		if !ok {
			return nil // already satisfied or superseded
		}
		delete(pending, id)
		if attempts[idx] >= p.cfg.Retries+1 {
			return WorkerFailure{NodeIndex: items[idx].NodeIndex, Attempts: attempts[idx], Reason: reason}
		}
		p.log.Debug("retrying evaluation", "node", items[idx].NodeIndex, "attempt", attempts[idx]+1, "reason", reason)
		return send(idx)
	}

	for idx := range items {
		if err = send(idx); err != nil {
			return nil, err
		}
	}

	outstanding := len(items)
	for outstanding > 0 {
		select {
		case env := <-replies:
			switch env.Kind {
			case EvaluateResponseMsg:
				resp := env.Response
				if resp.Schema != SchemaVersion {
					p.log.Warn("dropping reply with wrong schema", "schema", resp.Schema)
					continue
				}
				idx, ok := pending[resp.RequestID]
				if !ok {
					p.log.Debug("discarding stale reply", "request_id", resp.RequestID)
					continue
				}
				delete(pending, resp.RequestID)
				results[idx] = WorkResult{
					NodeIndex: items[idx].NodeIndex,
					V:         resp.V,
					Gradient:  utils.NewVector(len(resp.Gradient), resp.Gradient),
				}
				outstanding--
			case ErrorReportMsg:
				if err = retryOrFail(env.Report.RequestID, env.Report.Reason); err != nil {
					return nil, err
				}
			}
		case id := <-timeouts:
			if err = retryOrFail(id, "timed out"); err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return results, nil
}
