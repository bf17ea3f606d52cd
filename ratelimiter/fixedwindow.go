package ratelimiter

import (
	"time"

	"github.com/kresil/kresil-sub001/semaphore"
)

// fixedWindowState resets its entire usage counter to zero the instant the
// current window elapses, regardless of how usage was distributed within
// it. The reset check runs lazily, on the next TryAcquire after the
// window's deadline has passed, rather than on a background timer.
type fixedWindowState struct {
	limit      int
	windowSize time.Duration
	now        func() time.Time

	inUse       int
	windowStart time.Time
}

func newFixedWindowState(limit int, windowSize time.Duration, now func() time.Time) *fixedWindowState {
	return &fixedWindowState{
		limit:       limit,
		windowSize:  windowSize,
		now:         now,
		windowStart: now(),
	}
}

func (s *fixedWindowState) resetIfElapsed() {
	now := s.now()
	if now.Sub(s.windowStart) >= s.windowSize {
		s.inUse = 0
		s.windowStart = now
	}
}

func (s *fixedWindowState) PermitsInUse() int {
	s.resetIfElapsed()
	return s.inUse
}

func (s *fixedWindowState) TotalPermits() int { return s.limit }

func (s *fixedWindowState) TryAcquire(n int) bool {
	s.resetIfElapsed()
	if s.inUse+n > s.limit {
		return false
	}
	s.inUse += n
	return true
}

func (s *fixedWindowState) Release(n int) {
	s.inUse -= n
	if s.inUse < 0 {
		s.inUse = 0
	}
}

// RetryAfter reports the time remaining until the current window resets,
// regardless of n: a fixed window grants nothing until its boundary.
func (s *fixedWindowState) RetryAfter(n int) time.Duration {
	s.resetIfElapsed()
	d := s.windowStart.Add(s.windowSize).Sub(s.now())
	if d < 0 {
		return 0
	}
	return d
}

func (s *fixedWindowState) ReplenishmentTimeMark() time.Time { return s.windowStart }

func (s *fixedWindowState) SetReplenishmentTimeMark(t time.Time) { s.windowStart = t }

func (s *fixedWindowState) Close() error { return nil }

var _ semaphore.State = (*fixedWindowState)(nil)
var _ retryAfterState = (*fixedWindowState)(nil)

// NewFixedWindowCounter builds a rate limiter that permits up to limit
// calls per windowSize, resetting entirely at each window boundary.
// maxWaiters bounds the FIFO queue of suspended callers; 0 means unbounded.
func NewFixedWindowCounter(limit int, windowSize time.Duration, maxWaiters int) *Algorithm {
	return newFixedWindowCounterWithClock(limit, windowSize, maxWaiters, time.Now)
}

func newFixedWindowCounterWithClock(limit int, windowSize time.Duration, maxWaiters int, now func() time.Time) *Algorithm {
	state := newFixedWindowState(limit, windowSize, now)
	return &Algorithm{
		name: "fixed_window_counter",
		sem:  semaphore.New(state, maxWaiters),
	}
}
