package resolve

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/sightline-analytics/sightline/internal/store"
)

// Job is one queued resolution request.
type Job struct {
	Addr      string
	UserAgent string
	Referrer  string
}

// Pipeline runs resolutions in the background so the ingest path never waits
// on the network. Concurrent jobs for the same address collapse into a single
// run; the final store write is idempotent per address either way.
type Pipeline struct {
	orch    *Orchestrator
	store   store.Store
	jobs    chan Job
	group   singleflight.Group
	wg      sync.WaitGroup
	workers int
	log     zerolog.Logger
	metrics *Metrics
	nowFn   func() time.Time

	mu     sync.Mutex
	closed bool
}

// NewPipeline creates a pipeline with the given worker count and queue size.
func NewPipeline(orch *Orchestrator, st store.Store, workers, queueSize int, log zerolog.Logger, metrics *Metrics) *Pipeline {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Pipeline{
		orch:    orch,
		store:   st,
		jobs:    make(chan Job, queueSize),
		workers: workers,
		log:     log,
		metrics: metrics,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the workers. They stop only when Drain closes the queue, so
// jobs already accepted still run after ctx is cancelled; jobs execute on a
// detached context and each provider call carries its own timeout.
func (p *Pipeline) Start(ctx context.Context) {
	runCtx := context.WithoutCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.metrics.SetQueueDepth(len(p.jobs))
				p.run(runCtx, job)
			}
		}()
	}
}

// Enqueue schedules a lookup without blocking. When the queue is full or the
// pipeline is draining the job is dropped; the next ping after the TTL
// schedules it again.
func (p *Pipeline) Enqueue(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- job:
		p.metrics.SetQueueDepth(len(p.jobs))
		return true
	default:
		p.metrics.IncDropped()
		p.log.Warn().Str("addr", job.Addr).Msg("lookup queue full, dropping job")
		return false
	}
}

// Drain stops accepting jobs, closes the queue, and waits for queued and
// in-flight work up to timeout. Best effort: outstanding jobs past the
// deadline are abandoned. Safe to call more than once.
func (p *Pipeline) Drain(timeout time.Duration) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		p.log.Warn().Msg("lookup drain deadline reached")
	}
}

func (p *Pipeline) run(ctx context.Context, job Job) {
	_, _, _ = p.group.Do(job.Addr, func() (any, error) {
		res := p.orch.Enrich(ctx, job.Addr, job.UserAgent, job.Referrer)
		outcome := "empty"
		if res.CompanyName != "" || res.Country != "" {
			outcome = "enriched"
		}
		p.metrics.IncLookup(outcome)
		if err := p.store.UpdateEnrichment(ctx, job.Addr, res, p.nowFn()); err != nil {
			p.log.Error().Err(err).Str("addr", job.Addr).Msg("store enrichment")
			return nil, nil
		}
		p.log.Info().
			Str("addr", job.Addr).
			Str("company", res.CompanyName).
			Str("country", res.Country).
			Bool("bot", res.IsBot).
			Bool("untrusted", res.IsUntrusted).
			Msg("lookup complete")
		return nil, nil
	})
}
