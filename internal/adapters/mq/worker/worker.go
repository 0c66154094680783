// Package worker runs track build jobs pulled from a queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/telemetry"
	"github.com/okian/pitwall/pkg/logger"
	"github.com/okian/pitwall/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Job is what workers read off the queue.
type Job = model.Job

// Builder computes the metadata for one track.
type Builder interface {
	Build(ctx context.Context, track string) (model.TrackMetadata, error)
}

// Store keeps built metadata.
type Store interface {
	Put(ctx context.Context, meta model.TrackMetadata) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Result reports the outcome of one job.
type Result struct {
	Job     Job
	Meta    model.TrackMetadata
	Err     error
	Latency time.Duration
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker over an in-process queue.
type InMemoryWorker struct {
	queue   Queue
	builder Builder
	store   Store
	name    string
	onDone  func(context.Context, Result)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	processed atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, builder Builder, store Store, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		builder:  builder,
		store:    store,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Name returns the worker name.
func (w *InMemoryWorker) Name() string { return w.name }

// Processed returns the number of jobs that completed.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Failed returns the number of jobs that returned an error.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown stops the worker after the job in hand.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job Job) {
	start := time.Now()
	res := Result{Job: job}

	meta, err := w.builder.Build(ctx, job.Track)
	if err == nil {
		meta.Track = job.Track
		if perr := w.store.Put(ctx, meta); perr != nil {
			err = fmt.Errorf("store metadata for %s: %w", job.Track, perr)
		}
	}
	res.Meta = meta
	res.Err = err
	res.Latency = time.Since(start)

	if err != nil {
		w.failed.Add(1)
		metrics.RecordJob("failed", float64(res.Latency.Milliseconds()))
		errType := "build_error"
		if errors.Is(err, telemetry.ErrMissingSignal) {
			errType = "missing_signal"
		}
		metrics.RecordErrorByComponent("worker", errType)
		w.logger.Error(ctx, "track build failed",
			logger.Track(job.Track),
			logger.String("job_id", job.ID),
			logger.Error(err),
		)
	} else {
		w.processed.Add(1)
		metrics.RecordJob("ok", float64(res.Latency.Milliseconds()))
		w.logger.Debug(ctx, "track built",
			logger.Track(job.Track),
			logger.String("job_id", job.ID),
			logger.Int("corners", len(meta.Corners)),
			logger.Int("braking_points", len(meta.BrakingPoints)),
			logger.Int("braking_zones", len(meta.BrakingZones)),
			logger.Duration("latency", res.Latency),
		)
	}

	if w.onDone != nil {
		w.onDone(ctx, res)
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdownOnce sync.Once

	logger logger.Logger
}

// NewPool creates a pool of count workers. count < 1 means one per CPU.
func NewPool(count int, queue Queue, builder Builder, store Store, opts ...Option) *Pool {
	if count < 1 {
		count = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, count),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < count; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, builder, store, wopts...)
	}

	metrics.UpdateWorkerCount(count)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns completed jobs across all workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Failed returns failed jobs across all workers.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and waits for workers to finish.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(err))
			}
		}
	})

	for _, w := range p.workers {
		w.shutdownOnce.Do(func() { close(w.shutdown) })
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
