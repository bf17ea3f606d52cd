package semaphore

import (
	"errors"
	"sync"
	"time"

	"github.com/kresil/kresil-sub001/rerr"
	"github.com/kresil/kresil-sub001/waitqueue"
)

// ErrRejected is returned by Acquire when the wait queue is already at its
// bound and the request cannot even be queued.
var ErrRejected = errors.New("semaphore: wait queue full, request rejected")

// ErrTimeout is returned by Acquire when the request was queued but timed
// out before enough permits became available.
var ErrTimeout = errors.New("semaphore: timed out waiting for permits")

// waiter is the value held in the wait queue for a blocked acquirer.
type waiter struct {
	permits int
	result  chan error // buffered, size 1; nil error means permits were granted
}

// SuspendableSemaphore is a bounded pool of permits with a FIFO wait queue.
// Acquire either succeeds immediately, queues up to a bound and suspends
// until satisfied or timed out, or is rejected outright when the queue is
// already full. Release hands freed permits to the longest-waiting
// satisfiable request first.
type SuspendableSemaphore struct {
	mu         sync.Mutex
	state      State
	waiters    *waitqueue.List[*waiter]
	maxWaiters int
}

// New constructs a suspendable semaphore over state with a bounded wait
// queue of maxWaiters entries. maxWaiters <= 0 means unbounded.
func New(state State, maxWaiters int) *SuspendableSemaphore {
	return &SuspendableSemaphore{
		state:      state,
		waiters:    waitqueue.New[*waiter](),
		maxWaiters: maxWaiters,
	}
}

// Acquire reserves n permits, blocking up to timeout if they are not
// immediately available. A zero timeout is treated as a non-blocking attempt:
// on failure it returns ErrRejected without joining the wait queue at all.
// A positive timeout that elapses while queued returns ErrTimeout. A full
// wait queue at enqueue time returns ErrRejected. n must be positive and
// timeout must not be negative; either violation returns an
// rerr.ErrInvalidArgument-wrapped error without touching the permit pool.
func (s *SuspendableSemaphore) Acquire(n int, timeout time.Duration) error {
	if n <= 0 {
		return rerr.InvalidArgument("semaphore: permits must be positive, got %d", n)
	}
	if timeout < 0 {
		return rerr.InvalidArgument("semaphore: timeout must not be negative, got %v", timeout)
	}

	s.mu.Lock()
	if s.state.TryAcquire(n) {
		s.mu.Unlock()
		return nil
	}
	if timeout <= 0 {
		s.mu.Unlock()
		return ErrRejected
	}
	if s.maxWaiters > 0 && s.waiters.Len() >= s.maxWaiters {
		s.mu.Unlock()
		return ErrRejected
	}

	w := &waiter{permits: n, result: make(chan error, 1)}
	node := s.waiters.PushBack(w)
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-w.result:
		return err
	case <-timer.C:
		s.mu.Lock()
		removed := s.waiters.Remove(node)
		s.mu.Unlock()
		if removed {
			// We won the race against Release: the waiter never got its
			// permits, so nothing to give back.
			return ErrTimeout
		}
		// Release already dequeued us and is about to (or just did) send a
		// result; wait for it rather than report a spurious timeout.
		return <-w.result
	}
}

// Release returns n permits to the pool, then satisfies as many queued
// waiters, in FIFO order, as the replenished pool allows. A waiter at the
// front of the queue that cannot yet be satisfied blocks the queue, so
// strict FIFO ordering is preserved even though it means a later, smaller
// request is not opportunistically granted ahead of it.
func (s *SuspendableSemaphore) Release(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Release(n)

	for {
		front := s.waiters.Front()
		if front == nil {
			return
		}
		w := front.Value
		if !s.state.TryAcquire(w.permits) {
			return
		}
		s.waiters.Remove(front)
		w.result <- nil
	}
}

// PermitsAvailable reports total minus in-use permits.
func (s *SuspendableSemaphore) PermitsAvailable() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TotalPermits() - s.state.PermitsInUse()
}

// PermitsInUse reports the number of permits currently held.
func (s *SuspendableSemaphore) PermitsInUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.PermitsInUse()
}

// QueueLength reports the number of currently queued waiters.
func (s *SuspendableSemaphore) QueueLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters.Len()
}

// State exposes the underlying State for algorithms (token bucket, sliding
// window) that need to read or mutate replenishment bookkeeping directly.
// Callers must hold no expectation of atomicity across a State call and a
// subsequent Acquire/Release; WithStateLocked should be used when that
// matters.
func (s *SuspendableSemaphore) State() State {
	return s.state
}

// WithStateLocked runs fn with the semaphore's lock held, giving atomic
// read-modify-write access to the underlying State alongside permit
// bookkeeping. The ratelimiter package uses it to compute its retry-after
// hint under the same lock that guards permit acquisition decisions.
func (s *SuspendableSemaphore) WithStateLocked(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}
