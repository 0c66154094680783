package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/pitwall/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Cap(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	job := model.NewJob("sonoma", "build")
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != job.ID || got.Track != "sonoma" {
		t.Errorf("expected %s/sonoma, got %s/%s", job.ID, got.ID, got.Track)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for _, track := range []string{"indy", "cota"} {
		if err := q.Enqueue(ctx, model.NewJob(track, "build")); err != nil {
			t.Fatalf("expected enqueue of %s to succeed, got %v", track, err)
		}
	}

	if err := q.Enqueue(ctx, model.NewJob("barber", "build")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, model.NewJob("indy", "build")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(16))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const producers, perProducer = 4, 25

	var consumed sync.WaitGroup
	consumed.Add(producers * perProducer)
	seen := make(chan string, producers*perProducer)
	for i := 0; i < 3; i++ {
		go func() {
			for j := range q.Dequeue(ctx) {
				seen <- j.ID
				consumed.Done()
			}
		}()
	}

	var produced sync.WaitGroup
	for i := 0; i < producers; i++ {
		produced.Add(1)
		go func(id int) {
			defer produced.Done()
			for j := 0; j < perProducer; j++ {
				job := model.NewJob(fmt.Sprintf("track-%d-%d", id, j), "build")
				for q.Enqueue(ctx, job) != nil {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}
	produced.Wait()
	consumed.Wait()
	close(seen)

	ids := make(map[string]struct{})
	for id := range seen {
		ids[id] = struct{}{}
	}
	if len(ids) != producers*perProducer {
		t.Errorf("expected %d distinct jobs, got %d", producers*perProducer, len(ids))
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if err := q.Enqueue(ctx, model.NewJob("sebring", "build")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if err := q.Enqueue(ctx, model.NewJob("sebring", "build")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Buffered jobs drain before the channel closes.
	ch := q.Dequeue(ctx)
	timeout := time.After(time.Second)
	drained := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if drained != 1 {
					t.Errorf("expected 1 drained job, got %d", drained)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got %v", err)
				}
				return
			}
			drained++
		case <-timeout:
			t.Fatal("expected dequeue channel to close")
		}
	}
}
