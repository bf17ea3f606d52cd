// Package window implements the count-based failure-rate sliding window
// used by the circuit breaker to decide whether a dependency has become
// unhealthy. It is deliberately the simplest variant the design notes call
// for (count-based, not time-based): outcomes age out purely by being
// overwritten once the backing ring buffer wraps.
package window

import (
	"fmt"
	"sync"

	"github.com/kresil/kresil-sub001/ringbuffer"
)

// FailureRate records success/failure outcomes in a fixed-size ring and
// reports the current failure rate once enough outcomes have been recorded
// to be statistically meaningful.
//
// A time-based variant (partitioning outcomes into aged time segments
// instead of a plain count-based ring) is left as a design-level
// reservation; its exact aging semantics were never fully specified in the
// source material, so only the count-based variant is implemented here.
type FailureRate struct {
	mu                sync.Mutex
	buf               *ringbuffer.Ring[bool]
	minimumThroughput int
	records           uint64
}

// New creates a count-based failure rate window. capacity and
// minimumThroughput must both be positive.
func New(capacity, minimumThroughput int) (*FailureRate, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("window: capacity must be positive, got %d", capacity)
	}
	if minimumThroughput <= 0 {
		return nil, fmt.Errorf("window: minimumThroughput must be positive, got %d", minimumThroughput)
	}
	return &FailureRate{
		buf:               ringbuffer.New[bool](capacity),
		minimumThroughput: minimumThroughput,
	}, nil
}

// RecordSuccess records a successful outcome.
func (w *FailureRate) RecordSuccess() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Add(true)
	w.records++
}

// RecordFailure records a failed outcome.
func (w *FailureRate) RecordFailure() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Add(false)
	w.records++
}

// CurrentFailureRate returns 0 until at least minimumThroughput outcomes
// have been recorded since the last Clear; after that it returns the
// fraction of failures among the currently populated slots.
func (w *FailureRate) CurrentFailureRate() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.records < uint64(w.minimumThroughput) {
		return 0
	}
	size := w.buf.Size()
	if size == 0 {
		return 0
	}
	failures := 0
	w.buf.ForEach(func(_ int, ok bool) bool {
		if !ok {
			failures++
		}
		return true
	})
	return float64(failures) / float64(size)
}

// Counts returns the number of populated slots and how many of them are
// failures, ignoring the minimum-throughput gate.
func (w *FailureRate) Counts() (total, failures int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	total = w.buf.Size()
	w.buf.ForEach(func(_ int, ok bool) bool {
		if !ok {
			failures++
		}
		return true
	})
	return total, failures
}

// Records returns the total number of outcomes recorded since creation or
// the last Clear, independent of ring capacity.
func (w *FailureRate) Records() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

// Clear resets the window: the ring is emptied and the records counter
// returns to zero, so CurrentFailureRate reports 0 until minimumThroughput
// fresh outcomes arrive.
func (w *FailureRate) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Clear()
	w.records = 0
}
