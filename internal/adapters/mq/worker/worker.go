// Package worker runs research tasks off the queue and applies the results to the cache.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/plotpath/internal/domain/model"
	"github.com/okian/plotpath/internal/domain/research"
	"github.com/okian/plotpath/pkg/logger"
	"github.com/okian/plotpath/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2
	defaultResearchTimeout  = 30 * time.Second
	metricsUpdateInterval   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// ErrCancelled is returned when a task was cancelled before its result could be applied.
var ErrCancelled = errors.New("research task cancelled")

// Researcher produces a finding for one task.
type Researcher interface {
	Research(ctx context.Context, t model.Task) (research.Finding, error)
}

// Sink accepts findings. research.Cache satisfies it.
type Sink interface {
	Put(ctx context.Context, f research.Finding) (bool, error)
}

// Releaser frees the in-flight claim of a task. dedupe.Tracker satisfies it.
type Releaser interface {
	Release(ctx context.Context, key string)
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Task
}

// Worker processes tasks until stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker pulls tasks from a Queue and writes results to a Sink.
type InMemoryWorker struct {
	queue      Queue
	researcher Researcher
	sink       Sink
	releaser   Releaser
	name       string
	timeout    time.Duration
	onStored   func(ctx context.Context, f research.Finding)
	now        func() time.Time
	busy       *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker. releaser may be nil.
func NewInMemoryWorker(queue Queue, researcher Researcher, sink Sink, releaser Releaser, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      queue,
		researcher: researcher,
		sink:       sink,
		releaser:   releaser,
		name:       "worker",
		timeout:    defaultResearchTimeout,
		now:        time.Now,
		busy:       new(atomic.Int64),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. It returns when ctx is done, Shutdown is
// called or the queue is closed.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			if err := w.process(ctx, t); err != nil && !errors.Is(err, ErrCancelled) {
				w.logger.Error(ctx, "research task failed",
					logger.String("task_id", t.ID),
					logger.String("entity", t.Entity),
					logger.String("factor", t.Factor),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown signals the worker and waits for the current task to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, t model.Task) error {
	start := time.Now()
	w.busy.Add(1)
	defer func() {
		w.busy.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
		if w.releaser != nil {
			w.releaser.Release(context.WithoutCancel(ctx), t.Key())
		}
	}()

	rctx, cancel := ctx, context.CancelFunc(func() {})
	if w.timeout > 0 {
		rctx, cancel = context.WithTimeout(ctx, w.timeout)
	}
	defer cancel()

	researchStart := time.Now()
	f, err := w.researcher.Research(rctx, t)
	metrics.RecordResearchLatency(float64(time.Since(researchStart).Milliseconds()))

	// A cancelled task never writes, even if the researcher returned a result.
	if rctx.Err() != nil {
		metrics.RecordResearchCancelled()
		w.logger.Warn(ctx, "research task cancelled",
			logger.String("task_id", t.ID),
			logger.String("entity", t.Entity),
			logger.String("factor", t.Factor),
			logger.Error(rctx.Err()),
		)
		return fmt.Errorf("%w: %v", ErrCancelled, rctx.Err())
	}
	if err != nil {
		metrics.RecordResearchError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "research_error")
		return fmt.Errorf("research %s/%s: %w", t.Entity, t.Factor, err)
	}

	// The researcher is untrusted: the task decides which pair is written.
	f.Entity, f.Factor = t.Entity, t.Factor
	if f.CapturedAt.IsZero() {
		f.CapturedAt = w.now().UTC()
	}

	stored, err := w.sink.Put(ctx, f)
	if err != nil {
		metrics.RecordFindingRejected("invalid")
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "rejected_finding")
		return fmt.Errorf("store finding %s/%s: %w", t.Entity, t.Factor, err)
	}
	if !stored {
		metrics.RecordFindingRejected("older")
		return nil
	}
	if w.onStored != nil {
		w.onStored(ctx, f)
	}
	return nil
}

// Pool manages a fixed set of workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	busy    *atomic.Int64

	shutdown chan struct{}
	logger   logger.Logger
}

// NewPool creates workerCount workers. Options apply to every worker; the
// name option is overridden per worker.
func NewPool(workerCount int, queue Queue, researcher Researcher, sink Sink, releaser Releaser, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		busy:     new(atomic.Int64),
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))
		w := NewInMemoryWorker(queue, researcher, sink, releaser, wopts...)
		w.busy = p.busy
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Busy returns the number of workers currently running a task.
func (p *Pool) Busy() int { return int(p.busy.Load()) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			metrics.UpdateWorkerActiveCount(p.Busy())
		}
	}
}

// Shutdown closes the queue, signals every worker and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		close(w.shutdown)
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
