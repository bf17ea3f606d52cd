package ratelimiter

import (
	"time"

	"github.com/kresil/kresil-sub001/semaphore"
)

// tokenBucketState refills tokensPerRefresh tokens every refreshPeriod,
// lazily catching up on however many refresh periods elapsed since the
// last check, capped at the bucket's capacity. TryAcquire treats "in use"
// as tokens currently spent (not yet refilled back).
type tokenBucketState struct {
	capacity         int
	tokensPerRefresh int
	refreshPeriod    time.Duration
	now              func() time.Time

	inUse    int
	lastMark time.Time
}

func newTokenBucketState(capacity, tokensPerRefresh int, refreshPeriod time.Duration, now func() time.Time) *tokenBucketState {
	return &tokenBucketState{
		capacity:         capacity,
		tokensPerRefresh: tokensPerRefresh,
		refreshPeriod:    refreshPeriod,
		now:              now,
		lastMark:         now(),
	}
}

func (s *tokenBucketState) refill() {
	elapsed := s.now().Sub(s.lastMark)
	if elapsed < s.refreshPeriod {
		return
	}
	periods := int(elapsed / s.refreshPeriod)
	refilled := periods * s.tokensPerRefresh
	if refilled > s.inUse {
		refilled = s.inUse
	}
	s.inUse -= refilled
	s.lastMark = s.lastMark.Add(time.Duration(periods) * s.refreshPeriod)
}

func (s *tokenBucketState) PermitsInUse() int {
	s.refill()
	return s.inUse
}

func (s *tokenBucketState) TotalPermits() int { return s.capacity }

func (s *tokenBucketState) TryAcquire(n int) bool {
	s.refill()
	if s.inUse+n > s.capacity {
		return false
	}
	s.inUse += n
	return true
}

func (s *tokenBucketState) Release(n int) {
	s.inUse -= n
	if s.inUse < 0 {
		s.inUse = 0
	}
}

// RetryAfter scales the wait by how much of n is already covered: the fewer
// of the n requested tokens already available, the closer the wait is to a
// full refreshPeriod per outstanding token.
func (s *tokenBucketState) RetryAfter(n int) time.Duration {
	s.refill()
	available := s.capacity - s.inUse
	if available >= n {
		return 0
	}
	tokenFractionAvailable := float64(available) / float64(n)
	return time.Duration((1 - tokenFractionAvailable) * float64(s.refreshPeriod) * float64(n))
}

func (s *tokenBucketState) ReplenishmentTimeMark() time.Time { return s.lastMark }

func (s *tokenBucketState) SetReplenishmentTimeMark(t time.Time) { s.lastMark = t }

func (s *tokenBucketState) Close() error { return nil }

var _ semaphore.State = (*tokenBucketState)(nil)
var _ retryAfterState = (*tokenBucketState)(nil)

// NewTokenBucket builds a rate limiter with capacity tokens, refilling
// tokensPerRefresh tokens (default 1 when <= 0) every refreshPeriod.
// maxWaiters bounds the FIFO queue of suspended callers; 0 means unbounded.
func NewTokenBucket(capacity, tokensPerRefresh int, refreshPeriod time.Duration, maxWaiters int) *Algorithm {
	return newTokenBucketWithClock(capacity, tokensPerRefresh, refreshPeriod, maxWaiters, time.Now)
}

func newTokenBucketWithClock(capacity, tokensPerRefresh int, refreshPeriod time.Duration, maxWaiters int, now func() time.Time) *Algorithm {
	if tokensPerRefresh <= 0 {
		tokensPerRefresh = 1
	}
	state := newTokenBucketState(capacity, tokensPerRefresh, refreshPeriod, now)
	return &Algorithm{
		name: "token_bucket",
		sem:  semaphore.New(state, maxWaiters),
	}
}
