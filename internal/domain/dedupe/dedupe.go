// Package dedupe tracks idempotency keys so a retried upload is acknowledged
// instead of being processed twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Deduper maps idempotency keys to the job they first produced.
type Deduper interface {
	// SeenAndRecord atomically checks key and records it with jobID when it
	// is new. For a known key it returns the original job ID and true.
	SeenAndRecord(ctx context.Context, key, jobID string) (string, bool)

	// Unrecord forgets key so the client may retry, e.g. after the upload
	// was rejected by queue backpressure.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key      string
	jobID    string
	recorded time.Time
}

// inMemoryDeduper keeps keys in insertion order. When bounded, the oldest key
// is evicted first; keys older than ttl are treated as unseen.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front = oldest
	maxSize int        // <= 0 means unbounded
	ttl     time.Duration
	now     func() time.Time
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 10000,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key, jobID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if el, ok := d.seen[key]; ok {
		e := el.Value.(*entry)
		if !d.expired(e, now) {
			return e.jobID, true
		}
		d.remove(el)
	}

	if d.maxSize > 0 {
		for len(d.seen) >= d.maxSize {
			d.remove(d.order.Front())
		}
	}

	d.seen[key] = d.order.PushBack(&entry{key: key, jobID: jobID, recorded: now})
	d.size.Add(1)
	return jobID, false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.remove(el)
	}
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

func (d *inMemoryDeduper) expired(e *entry, now time.Time) bool {
	return d.ttl > 0 && now.Sub(e.recorded) > d.ttl
}

// remove must be called with d.mu held.
func (d *inMemoryDeduper) remove(el *list.Element) {
	if el == nil {
		return
	}
	e := d.order.Remove(el).(*entry)
	delete(d.seen, e.key)
	d.size.Add(-1)
}
