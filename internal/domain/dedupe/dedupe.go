// Package dedupe tracks research tasks that are currently in flight.
package dedupe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrInFlight is returned when the key is already claimed.
	ErrInFlight = errors.New("task already in flight")
	// ErrCapacity is returned when the tracker is full.
	ErrCapacity = errors.New("in-flight tracker at capacity")
)

// Tracker guarantees a key is dispatched at most once until released.
type Tracker interface {
	// Claim records key as in flight. It fails if the key is already claimed
	// or the tracker is full.
	Claim(ctx context.Context, key string) error

	// Release frees key so it can be claimed again. Releasing an unknown key is a no-op.
	Release(ctx context.Context, key string)

	// InFlight reports whether key is currently claimed.
	InFlight(key string) bool

	Size() int64
}

// inMemoryTracker keeps claims in a map. Claims are never evicted: dropping
// one would let the same pair be dispatched twice.
type inMemoryTracker struct {
	mu      sync.Mutex
	claimed map[string]struct{}
	maxSize int // 0 or negative means unbounded
	size    atomic.Int64
}

// NewInMemoryTracker creates an in-memory tracker.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.claimed = make(map[string]struct{})
	return t
}

func (t *inMemoryTracker) Claim(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.claimed[key]; ok {
		return ErrInFlight
	}
	if t.maxSize > 0 && len(t.claimed) >= t.maxSize {
		return ErrCapacity
	}
	t.claimed[key] = struct{}{}
	t.size.Add(1)
	return nil
}

func (t *inMemoryTracker) Release(_ context.Context, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.claimed[key]; ok {
		delete(t.claimed, key)
		t.size.Add(-1)
	}
}

func (t *inMemoryTracker) InFlight(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.claimed[key]
	return ok
}

// Size returns the number of keys currently in flight.
func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
