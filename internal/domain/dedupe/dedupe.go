// Package dedupe tracks in-flight work keys so one track is rebuilt by at
// most one job at a time.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records in-flight keys.
type Deduper interface {
	// SeenAndRecord atomically checks whether key is in flight and claims it
	// if not. Returns true if key was already claimed.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord releases key once its job has finished or was never queued.
	Unrecord(ctx context.Context, key string)

	// InFlight lists claimed keys in claim order.
	InFlight() []string

	Size() int64
}

// inMemoryDeduper keeps claims in a map plus a list in claim order.
// When bounded and full, the oldest claim is dropped to make room.
type inMemoryDeduper struct {
	mu      sync.Mutex
	claims  map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 1024,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.claims = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.claims[key]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.claims) >= d.maxSize {
		d.evictOldest()
	}
	d.claims[key] = d.order.PushBack(key)
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.claims[key]; ok {
		d.order.Remove(e)
		delete(d.claims, key)
		d.size.Add(-1)
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	front := d.order.Front()
	if front == nil {
		return
	}
	key := front.Value.(string) //nolint:forcetypeassert // only keys are stored
	d.order.Remove(front)
	delete(d.claims, key)
	d.size.Add(-1)
}

func (d *inMemoryDeduper) InFlight() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	keys := make([]string, 0, d.order.Len())
	for e := d.order.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(string)) //nolint:forcetypeassert // only keys are stored
	}
	return keys
}

// Size returns the number of claimed keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
