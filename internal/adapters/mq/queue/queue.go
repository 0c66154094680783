// Package queue defines the contract for enqueuing and consuming track jobs.
package queue

import (
	"context"
	"sync"

	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 64
)

// Job is the payload type flowing through the queue.
type Job = model.Job

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It returns ErrFull or ErrClosed when the job was
	// not accepted.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue returns a channel that receives jobs. The channel is closed
	// when the queue is closed.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	// Cap returns the queue capacity.
	Cap() int

	// Close stops accepting jobs and closes the dequeue channel.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a job without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return ErrClosed
	}

	select {
	case <-ctx.Done():
		metrics.RecordQueueRejected("context_cancelled")
		return ctx.Err()
	default:
	}

	select {
	case q.jobs <- j:
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	default:
		metrics.RecordQueueRejected("full")
		return ErrFull
	}
}

// Dequeue returns a channel that receives jobs as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			select {
			case out <- j:
				metrics.UpdateQueueSize(len(q.jobs))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	return size
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int { return q.capacity }

// Close stops the queue. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
