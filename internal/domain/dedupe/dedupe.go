// Package dedupe tracks client dedup keys for idempotent resubmission.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper remembers which dedup keys were accepted and the sequence
// number each one was assigned, so a retried submission can be answered
// with the original sequence instead of consuming a new one.
type Deduper interface {
	// Lookup returns the sequence previously recorded for key.
	Lookup(ctx context.Context, key string) (uint64, bool)

	// Record stores the sequence assigned to key. Keys are recorded only
	// after the event is durable; a failed append never records a key.
	Record(ctx context.Context, key string, seq uint64)

	// Forget removes key, allowing it to be resubmitted as a new event.
	Forget(ctx context.Context, key string)

	Size() int64
}

// entry is one node of the eviction list, newest first.
type entry struct {
	key  string
	seq  uint64
	next *entry
}

// inMemoryDeduper keeps a bounded key set with newest-first eviction.
// With maxSize <= 0 the cache is unbounded.
type inMemoryDeduper struct {
	mu      sync.RWMutex
	seen    map[string]*entry
	head    *entry
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates an in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*entry)
	return d
}

func (d *inMemoryDeduper) Lookup(_ context.Context, key string) (uint64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.seen[key]
	if !ok {
		return 0, false
	}
	return e.seq, true
}

func (d *inMemoryDeduper) Record(_ context.Context, key string, seq uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.seen[key]; ok {
		existing.seq = seq
		return
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictNewest()
	}

	e := &entry{key: key, seq: seq, next: d.head}
	d.head = e
	d.seen[key] = e
	d.size.Add(1)
}

func (d *inMemoryDeduper) Forget(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; !ok {
		return
	}
	delete(d.seen, key)
	d.unlink(key)
	d.size.Add(-1)
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// evictNewest drops the most recently recorded key. Newest-first eviction
// keeps long-lived keys (early-game events most likely to be replayed by
// clients) resident.
func (d *inMemoryDeduper) evictNewest() {
	if d.head == nil {
		return
	}
	victim := d.head
	d.head = victim.next
	delete(d.seen, victim.key)
	d.size.Add(-1)
}

// unlink removes key from the eviction list.
func (d *inMemoryDeduper) unlink(key string) {
	var prev *entry
	for cur := d.head; cur != nil; cur = cur.next {
		if cur.key == key {
			if prev == nil {
				d.head = cur.next
			} else {
				prev.next = cur.next
			}
			return
		}
		prev = cur
	}
}
