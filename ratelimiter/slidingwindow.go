package ratelimiter

import (
	"time"

	"github.com/kresil/kresil-sub001/ringbuffer"
	"github.com/kresil/kresil-sub001/semaphore"
)

// slidingWindowState approximates a sliding window over fixed-size segment
// counters: the window is divided into `segments` equal sub-windows, each
// tracked as one ring-buffer entry, and the usage total is the sum of
// whichever segments still fall inside the trailing window. This trades
// exactness for O(segments) bookkeeping instead of per-call timestamps.
type slidingWindowState struct {
	limit         int
	segmentPeriod time.Duration
	now           func() time.Time

	ring         *ringbuffer.Ring[int]
	current      int
	currentStart time.Time
}

func newSlidingWindowState(limit, segments int, windowSize time.Duration, now func() time.Time) *slidingWindowState {
	return &slidingWindowState{
		limit:         limit,
		segmentPeriod: windowSize / time.Duration(segments),
		now:           now,
		ring:          ringbuffer.New[int](segments),
		currentStart:  now(),
	}
}

// advance rolls the active segment forward to the present, pushing
// however many elapsed segments into the ring (each carrying the count it
// accumulated) and starting a fresh, empty current segment.
func (s *slidingWindowState) advance() {
	elapsed := s.now().Sub(s.currentStart)
	if elapsed < s.segmentPeriod {
		return
	}
	periods := int(elapsed / s.segmentPeriod)
	if periods >= s.ring.Capacity() {
		s.ring.Clear()
		s.current = 0
		s.currentStart = s.now()
		return
	}
	s.ring.Add(s.current)
	s.current = 0
	for i := 1; i < periods; i++ {
		s.ring.Add(0)
	}
	s.currentStart = s.currentStart.Add(time.Duration(periods) * s.segmentPeriod)
}

func (s *slidingWindowState) total() int {
	sum := s.current
	s.ring.ForEach(func(_ int, v int) bool {
		sum += v
		return true
	})
	return sum
}

func (s *slidingWindowState) PermitsInUse() int {
	s.advance()
	return s.total()
}

func (s *slidingWindowState) TotalPermits() int { return s.limit }

func (s *slidingWindowState) TryAcquire(n int) bool {
	s.advance()
	if s.total()+n > s.limit {
		return false
	}
	s.current += n
	return true
}

// Release decrements the active segment only; it does not retroactively
// reduce older, already-rolled segments, so a release long after the
// originating acquire has limited effect. Callers needing exact give-back
// semantics should prefer the token bucket or fixed window algorithm.
func (s *slidingWindowState) Release(n int) {
	s.current -= n
	if s.current < 0 {
		s.current = 0
	}
}

// RetryAfter reports the remainder of the current segment if the window
// still has headroom elsewhere (the next segment roll will free it), or
// the remainder of a full window cycle if the window is entirely exhausted
// and every segment must age out before capacity returns.
func (s *slidingWindowState) RetryAfter(n int) time.Duration {
	s.advance()
	segmentRemainder := s.segmentPeriod - s.now().Sub(s.currentStart)
	if segmentRemainder < 0 {
		segmentRemainder = 0
	}
	if s.limit-s.total() > 0 {
		return segmentRemainder
	}
	return segmentRemainder + s.segmentPeriod*time.Duration(s.ring.Capacity()-1)
}

func (s *slidingWindowState) ReplenishmentTimeMark() time.Time { return s.currentStart }

func (s *slidingWindowState) SetReplenishmentTimeMark(t time.Time) { s.currentStart = t }

func (s *slidingWindowState) Close() error { return nil }

var _ semaphore.State = (*slidingWindowState)(nil)
var _ retryAfterState = (*slidingWindowState)(nil)

// NewSlidingWindowCounter builds a rate limiter that permits up to limit
// calls within any trailing windowSize interval, approximated by segments
// equal-sized counters. maxWaiters bounds the FIFO queue of suspended
// callers; 0 means unbounded.
func NewSlidingWindowCounter(limit, segments int, windowSize time.Duration, maxWaiters int) *Algorithm {
	return newSlidingWindowCounterWithClock(limit, segments, windowSize, maxWaiters, time.Now)
}

func newSlidingWindowCounterWithClock(limit, segments int, windowSize time.Duration, maxWaiters int, now func() time.Time) *Algorithm {
	if segments <= 0 {
		segments = 1
	}
	state := newSlidingWindowState(limit, segments, windowSize, now)
	return &Algorithm{
		name: "sliding_window_counter",
		sem:  semaphore.New(state, maxWaiters),
	}
}
