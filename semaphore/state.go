// Package semaphore implements the suspendable semaphore that every
// rate-limiting algorithm is layered over: a bounded pool of permits with
// FIFO waiters, per-acquire timeouts, and a pluggable state contract so the
// permit bookkeeping itself can be swapped for a different backend without
// touching the wait/timeout machinery. Persisting that state to an external
// store (for a distributed deployment) is a collaborator's concern; this
// package only defines the contract and ships the in-memory implementation.
package semaphore

import "time"

// State is the pluggable bookkeeping contract behind a SuspendableSemaphore.
// The semaphore calls these methods only while holding its own lock, so an
// implementation used solely through a SuspendableSemaphore needs no
// synchronization of its own; InMemory and the ratelimiter states have none.
type State interface {
	// PermitsInUse returns the number of permits currently held.
	PermitsInUse() int
	// TotalPermits returns the fixed capacity of the semaphore.
	TotalPermits() int
	// TryAcquire attempts to reserve n permits atomically, returning true on
	// success. It must not partially reserve on failure.
	TryAcquire(n int) bool
	// Release returns n permits to the pool. n must not exceed the number
	// currently in use.
	Release(n int)
	// ReplenishmentTimeMark returns the timestamp a replenishing backend
	// (e.g. token bucket) last refilled at, for lazy replenishment.
	ReplenishmentTimeMark() time.Time
	// SetReplenishmentTimeMark updates the replenishment timestamp.
	SetReplenishmentTimeMark(t time.Time)
	// Close releases any resources held by the state. In-memory
	// implementations treat this as a no-op.
	Close() error
}

// InMemory is the default State backed by a plain counter, guarded by the
// caller's lock (SuspendableSemaphore never calls it concurrently with
// itself).
type InMemory struct {
	total   int
	inUse   int
	markSet bool
	mark    time.Time
}

// NewInMemory constructs an in-memory permit pool with the given total
// capacity. It panics if total <= 0.
func NewInMemory(total int) *InMemory {
	if total <= 0 {
		panic("semaphore: total permits must be positive")
	}
	return &InMemory{total: total}
}

// PermitsInUse implements State.
func (s *InMemory) PermitsInUse() int { return s.inUse }

// TotalPermits implements State.
func (s *InMemory) TotalPermits() int { return s.total }

// TryAcquire implements State.
func (s *InMemory) TryAcquire(n int) bool {
	if s.inUse+n > s.total {
		return false
	}
	s.inUse += n
	return true
}

// Release implements State.
func (s *InMemory) Release(n int) {
	s.inUse -= n
	if s.inUse < 0 {
		s.inUse = 0
	}
}

// ReplenishmentTimeMark implements State.
func (s *InMemory) ReplenishmentTimeMark() time.Time {
	if !s.markSet {
		return time.Time{}
	}
	return s.mark
}

// SetReplenishmentTimeMark implements State.
func (s *InMemory) SetReplenishmentTimeMark(t time.Time) {
	s.mark = t
	s.markSet = true
}

// Close implements State; it is a no-op for the in-memory backend.
func (s *InMemory) Close() error { return nil }

var _ State = (*InMemory)(nil)
