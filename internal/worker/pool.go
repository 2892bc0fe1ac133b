// Package worker runs fire-and-forget background tasks and scheduled sweeps.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/itsupport-service/internal/observability"
)

// ErrPoolClosed is returned by Shutdown when called twice.
var ErrPoolClosed = errors.New("worker pool closed")

// PoolOptions configures the worker pool.
type PoolOptions struct {
	// Workers is the number of concurrent workers.
	Workers int
	// QueueSize is the size of the task buffer.
	QueueSize int
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

type task struct {
	name string
	run  func(ctx context.Context) error
}

// Pool executes submitted tasks on a fixed set of goroutines. Tasks run on a
// context that is never cancelled; they are expected to bound themselves.
type Pool struct {
	queue   chan task
	logger  *zap.Logger
	metrics *observability.Metrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool creates the pool and starts its workers.
func NewPool(opts PoolOptions) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	p := &Pool{
		queue:   make(chan task, opts.QueueSize),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	p.logger.Info("starting worker pool", zap.Int("workers", opts.Workers), zap.Int("queue_size", opts.QueueSize))
	for i := 0; i < opts.Workers; i++ {
		p.wg.Add(1)
		go p.work(i)
	}
	return p
}

// Submit enqueues a task without blocking. It returns false when the queue is
// full or the pool is shutting down; the task is dropped in that case.
func (p *Pool) Submit(name string, run func(ctx context.Context) error) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("task rejected, pool shutting down", zap.String("task", name))
		p.metrics.RecordTaskDropped(name)
		return false
	}

	select {
	case p.queue <- task{name: name, run: run}:
		p.metrics.SetQueueDepth(len(p.queue))
		return true
	default:
		p.logger.Error("task queue is full, dropping task", zap.String("task", name))
		p.metrics.RecordTaskDropped(name)
		return false
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish or ctx
// to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.logger.Info("worker pool shutting down, draining queue", zap.Int("pending", len(p.queue)))

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain worker pool: %w", ctx.Err())
	}
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	logger := p.logger.With(zap.Int("worker", id))

	for t := range p.queue {
		p.metrics.SetQueueDepth(len(p.queue))
		p.execute(logger, t)
	}
	logger.Debug("work queue closed, worker exiting")
}

func (p *Pool) execute(logger *zap.Logger, t task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", zap.String("task", t.name), zap.Any("panic", r))
			p.metrics.RecordTaskFailure(t.name)
		}
	}()

	if err := t.run(context.Background()); err != nil {
		logger.Error("task failed", zap.String("task", t.name), zap.Error(err), zap.Duration("duration", time.Since(start)))
		p.metrics.RecordTaskFailure(t.name)
		return
	}
	logger.Debug("task finished", zap.String("task", t.name), zap.Duration("duration", time.Since(start)))
}
