package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fedhatrac/categorizer/internal/core/domain"
	"github.com/fedhatrac/categorizer/internal/pipeline/metrics"
)

// Queue supplies decoded work items. Malformed payloads are already routed
// to the dead-letter sink before the batch is returned.
type Queue interface {
	DequeueBatch(ctx context.Context, maxCount int, wait time.Duration) ([]*domain.Transaction, error)
}

// Config holds worker pool tuning.
type Config struct {
	Workers     int
	BatchSize   int
	PollTimeout time.Duration
}

// Pool is a fixed-size set of workers draining one shared queue. Workers
// operate on disjoint items; the only cross-worker coordination is the
// idempotency guard inside the processor.
type Pool struct {
	cfg   Config
	queue Queue
	proc  *Processor
	log   *slog.Logger
}

// NewPool creates a worker pool.
func NewPool(cfg Config, queue Queue, proc *Processor) *Pool {
	return &Pool{
		cfg:   cfg,
		queue: queue,
		proc:  proc,
		log:   slog.Default().With("component", "pool"),
	}
}

// Run starts the workers and blocks until all of them return. Cancellation
// stops new batch fetches; the in-flight item is allowed to complete.
func (p *Pool) Run(ctx context.Context) {
	p.log.Info("Starting worker pool", "workers", p.cfg.Workers, "batch_size", p.cfg.BatchSize)

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.runWorker(ctx, id)
		}(i)
	}
	wg.Wait()

	p.log.Info("Worker pool stopped")
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	log := p.log.With("worker", id)
	// A crashed worker must not take the pool down with it.
	defer func() {
		if r := recover(); r != nil {
			log.Error("Worker crashed, pool continues", "panic", r)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug("Worker stopped")
			return
		default:
		}

		batch, err := p.queue.DequeueBatch(ctx, p.cfg.BatchSize, p.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("Failed to dequeue batch", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if len(batch) == 0 {
			continue
		}

		metrics.BatchSize.Observe(float64(len(batch)))
		log.Debug("Dequeued batch", "count", len(batch))

		for _, txn := range batch {
			// Checked between items, never mid-update. Items left behind
			// on shutdown are picked up by the backfill pass.
			if ctx.Err() != nil {
				return
			}
			p.proc.Process(ctx, txn)
		}
	}
}
