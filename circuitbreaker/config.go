package circuitbreaker

import (
	"time"

	"github.com/kresil/kresil-sub001/delay"
	"github.com/kresil/kresil-sub001/rerr"
)

// Config holds the tunables for a CircuitBreaker. Validate before
// constructing, so a misconfiguration surfaces before the first call
// rather than silently producing a breaker that never opens.
type Config struct {
	// FailureRateThreshold is the failure rate, in (0,1], at or above which
	// the breaker opens.
	FailureRateThreshold float64

	// SlidingWindowSize is the capacity of the count-based failure-rate
	// window backing Closed-state evaluation. HalfOpen trial calls are
	// tallied separately and do not enter this window.
	SlidingWindowSize int

	// MinimumThroughput is how many recorded outcomes must accumulate
	// before the failure rate is considered meaningful; below it the
	// breaker never opens regardless of how many of those calls failed.
	MinimumThroughput int

	// PermittedCallsInHalfOpen is how many trial calls HalfOpen allows
	// before deciding to close or reopen.
	PermittedCallsInHalfOpen int

	// OpenDelay computes how long to stay Open before probing again via
	// HalfOpen. Its attempt argument is the number of consecutive times
	// Open has been re-entered without an intervening Closed, so a
	// delay.Exponential strategy grows the wait on repeated trips.
	OpenDelay delay.Strategy

	// MaxOpenDelay caps OpenDelay's output; 0 means unbounded (deferring
	// entirely to the strategy's own cap, if it has one).
	MaxOpenDelay time.Duration

	// MaxWaitDurationInHalfOpen bounds how long HalfOpen waits for its
	// trial calls to complete the permitted quota. If it elapses first,
	// the breaker reopens rather than waiting indefinitely on slow or
	// stalled trial calls. 0 disables the bound (HalfOpen waits for the
	// quota regardless of how long that takes).
	MaxWaitDurationInHalfOpen time.Duration

	// RecordExceptionPredicate classifies a non-nil error returned by the
	// guarded operation as a recorded failure (true) or an ignorable
	// error (false, recorded as a success). nil means every error counts
	// as a failure. The original error is always returned to the caller
	// regardless of classification.
	RecordExceptionPredicate func(error) bool

	// RecordResultPredicate classifies a nil-error outcome as a recorded
	// failure (true) despite having succeeded. nil means every nil-error
	// outcome counts as a success.
	RecordResultPredicate func() bool
}

// DefaultConfig returns reasonable defaults: 50% failure rate over a
// window of 20 calls, minimum throughput 10, 5 permitted half-open
// probes, exponential open-state backoff from 1s up to 1m.
func DefaultConfig() Config {
	return Config{
		FailureRateThreshold:     0.5,
		SlidingWindowSize:        20,
		MinimumThroughput:        10,
		PermittedCallsInHalfOpen: 5,
		OpenDelay:                delay.Exponential(time.Second, 2.0, time.Minute, 0),
		MaxOpenDelay:             time.Minute,
	}
}

// Validate reports a configuration error naming the offending field,
// rather than letting the breaker misbehave at runtime.
func (c Config) Validate() error {
	if c.FailureRateThreshold <= 0 || c.FailureRateThreshold > 1 {
		return rerr.InvalidArgument("circuitbreaker: FailureRateThreshold must be in (0,1], got %v", c.FailureRateThreshold)
	}
	if c.SlidingWindowSize <= 0 {
		return rerr.InvalidArgument("circuitbreaker: SlidingWindowSize must be positive, got %d", c.SlidingWindowSize)
	}
	if c.MinimumThroughput <= 0 {
		return rerr.InvalidArgument("circuitbreaker: MinimumThroughput must be positive, got %d", c.MinimumThroughput)
	}
	if c.MinimumThroughput > c.SlidingWindowSize {
		return rerr.InvalidArgument("circuitbreaker: MinimumThroughput (%d) cannot exceed SlidingWindowSize (%d)", c.MinimumThroughput, c.SlidingWindowSize)
	}
	if c.PermittedCallsInHalfOpen <= 0 {
		return rerr.InvalidArgument("circuitbreaker: PermittedCallsInHalfOpen must be positive, got %d", c.PermittedCallsInHalfOpen)
	}
	if c.OpenDelay == nil {
		return rerr.InvalidArgument("circuitbreaker: OpenDelay strategy must be set")
	}
	if c.MaxWaitDurationInHalfOpen < 0 {
		return rerr.InvalidArgument("circuitbreaker: MaxWaitDurationInHalfOpen must be >= 0, got %v", c.MaxWaitDurationInHalfOpen)
	}
	return nil
}
