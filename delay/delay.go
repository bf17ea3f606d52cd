// Package delay implements the pluggable delay-strategy abstraction shared
// by the retry engine and the circuit breaker's Open-state timer. A
// Strategy is a pure function from (attempt, last error) to a duration; a
// zero return means "no delay, skip the default sleeper" — the signal a
// custom provider uses when it has already performed its own sleep.
package delay

import (
	"math/rand"
	"time"

	"github.com/kresil/kresil-sub001/rerr"
)

// Strategy computes the delay to wait before the next attempt. attempt
// starts at 1 for the first retry (i.e. the delay before the second overall
// call). lastErr is the error from the most recent failed attempt, or nil
// if the prior attempt failed only because of an unacceptable result.
type Strategy interface {
	Delay(attempt int, lastErr error) time.Duration
}

// Func adapts a plain function to Strategy.
type Func func(attempt int, lastErr error) time.Duration

// Delay implements Strategy.
func (f Func) Delay(attempt int, lastErr error) time.Duration { return f(attempt, lastErr) }

// None never delays.
func None() Strategy {
	return Func(func(int, error) time.Duration { return 0 })
}

// Constant returns d on every attempt, randomized by ±jitter·d. jitter must
// be in [0,1] and d must be non-negative; use NewConstant to validate
// before first use.
func Constant(d time.Duration, jitter float64) Strategy {
	return Func(func(int, error) time.Duration {
		return applyJitter(d, jitter)
	})
}

// NewConstant validates its arguments before returning the strategy,
// matching the "fail before first use" contract configuration validation
// is held to.
func NewConstant(d time.Duration, jitter float64) (Strategy, error) {
	if d < 0 {
		return nil, rerr.InvalidArgument("delay: constant delay must be non-negative, got %v", d)
	}
	if err := validateJitter(jitter); err != nil {
		return nil, err
	}
	return Constant(d, jitter), nil
}

// Linear returns initial + initial*(attempt-1)*multiplier, clamped to
// [0, max] and randomized by ±jitter of the clamped value.
func Linear(initial time.Duration, multiplier float64, max time.Duration, jitter float64) Strategy {
	return Func(func(attempt int, _ error) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		raw := float64(initial) + float64(initial)*float64(attempt-1)*multiplier
		d := clamp(time.Duration(raw), 0, max)
		return applyJitter(d, jitter)
	})
}

// NewLinear validates its arguments before returning the strategy.
func NewLinear(initial time.Duration, multiplier float64, max time.Duration, jitter float64) (Strategy, error) {
	if err := validateInitialMax(initial, max); err != nil {
		return nil, err
	}
	if err := validateJitter(jitter); err != nil {
		return nil, err
	}
	return Linear(initial, multiplier, max, jitter), nil
}

// Exponential returns initial * multiplier^(attempt-1), clamped to
// [0, max] and randomized by ±jitter of the clamped value. multiplier must
// be greater than 1.
func Exponential(initial time.Duration, multiplier float64, max time.Duration, jitter float64) Strategy {
	return Func(func(attempt int, _ error) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		raw := float64(initial)
		for i := 1; i < attempt; i++ {
			raw *= multiplier
		}
		d := clamp(time.Duration(raw), 0, max)
		return applyJitter(d, jitter)
	})
}

// NewExponential validates its arguments before returning the strategy.
func NewExponential(initial time.Duration, multiplier float64, max time.Duration, jitter float64) (Strategy, error) {
	if err := validateInitialMax(initial, max); err != nil {
		return nil, err
	}
	if multiplier <= 1 {
		return nil, rerr.InvalidArgument("delay: exponential multiplier must be greater than 1, got %v", multiplier)
	}
	if err := validateJitter(jitter); err != nil {
		return nil, err
	}
	return Exponential(initial, multiplier, max, jitter), nil
}

// Provider adapts a caller-supplied function that may itself perform the
// sleep (e.g. to support a context-aware wait); if it returns 0, the caller
// trusts that sleeping already happened and skips its own default sleeper.
type Provider func(attempt int, lastErr error) time.Duration

// Custom wraps a Provider as a Strategy.
func Custom(p Provider) Strategy {
	return Func(func(attempt int, lastErr error) time.Duration {
		return p(attempt, lastErr)
	})
}

func clamp(d, min, max time.Duration) time.Duration {
	if d < min {
		return min
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

func applyJitter(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 || d <= 0 {
		return d
	}
	spread := float64(d) * jitter
	offset := (rand.Float64()*2 - 1) * spread // uniform in [-spread, +spread]
	result := time.Duration(float64(d) + offset)
	if result < 0 {
		return 0
	}
	return result
}

func validateJitter(jitter float64) error {
	if jitter < 0 || jitter > 1 {
		return rerr.InvalidArgument("delay: randomization factor must be in [0,1], got %v", jitter)
	}
	return nil
}

func validateInitialMax(initial, max time.Duration) error {
	if initial <= 0 {
		return rerr.InvalidArgument("delay: initial delay must be positive, got %v", initial)
	}
	if max <= initial {
		return rerr.InvalidArgument("delay: max delay (%v) must be greater than initial delay (%v)", max, initial)
	}
	return nil
}
