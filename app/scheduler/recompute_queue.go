package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/amirphl/nightpulse/models"
)

// RecomputeKey identifies a live tally bucket
type RecomputeKey struct {
	Mode  models.VoteMode
	Night string
}

// RecomputeQueue is a bounded queue that holds each key at most once. A key
// stays pending from Enqueue until Release, so a burst of writes to the same
// bucket collapses into a single entry.
type RecomputeQueue struct {
	ch      chan RecomputeKey
	mu      sync.Mutex
	pending map[RecomputeKey]struct{}
	dropped atomic.Uint64
}

// NewRecomputeQueue creates a queue holding up to size distinct keys
func NewRecomputeQueue(size int) *RecomputeQueue {
	if size < 1 {
		size = 1
	}
	return &RecomputeQueue{
		ch:      make(chan RecomputeKey, size),
		pending: make(map[RecomputeKey]struct{}, size),
	}
}

// Enqueue adds key unless it is already pending. It returns false when the
// queue is full and the key was dropped.
func (q *RecomputeQueue) Enqueue(key RecomputeKey) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[key]; ok {
		recomputeQueued.WithLabelValues("coalesced").Inc()
		return true
	}
	select {
	case q.ch <- key:
		q.pending[key] = struct{}{}
		recomputeQueued.WithLabelValues("queued").Inc()
		return true
	default:
		q.dropped.Add(1)
		recomputeQueued.WithLabelValues("dropped").Inc()
		return false
	}
}

// Next blocks until a key is available or ctx is done
func (q *RecomputeQueue) Next(ctx context.Context) (RecomputeKey, bool) {
	select {
	case <-ctx.Done():
		return RecomputeKey{}, false
	case key := <-q.ch:
		return key, true
	}
}

// Release clears the pending mark so later writes enqueue key again
func (q *RecomputeQueue) Release(key RecomputeKey) {
	q.mu.Lock()
	delete(q.pending, key)
	q.mu.Unlock()
}

// Pending returns the number of keys waiting or in debounce
func (q *RecomputeQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Dropped returns how many keys were rejected by a full queue
func (q *RecomputeQueue) Dropped() uint64 {
	return q.dropped.Load()
}
