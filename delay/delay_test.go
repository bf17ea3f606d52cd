package delay

import (
	"errors"
	"testing"
	"time"

	"github.com/kresil/kresil-sub001/rerr"
)

func TestNoneIsAlwaysZero(t *testing.T) {
	s := None()
	for attempt := 1; attempt <= 5; attempt++ {
		if d := s.Delay(attempt, nil); d != 0 {
			t.Errorf("Delay(%d) = %v, want 0", attempt, d)
		}
	}
}

func TestConstantWithoutJitterIsFixed(t *testing.T) {
	s := Constant(50*time.Millisecond, 0)
	for attempt := 1; attempt <= 3; attempt++ {
		if d := s.Delay(attempt, nil); d != 50*time.Millisecond {
			t.Errorf("Delay(%d) = %v, want 50ms", attempt, d)
		}
	}
}

func TestConstantJitterStaysWithinBounds(t *testing.T) {
	s := Constant(100*time.Millisecond, 0.2)
	for i := 0; i < 200; i++ {
		d := s.Delay(1, nil)
		if d < 80*time.Millisecond || d > 120*time.Millisecond {
			t.Fatalf("Delay() = %v, out of [80ms,120ms] jitter bounds", d)
		}
	}
}

func TestExponentialMonotonicUntilMax(t *testing.T) {
	s := Exponential(10*time.Millisecond, 2.0, time.Second, 0)
	prev := time.Duration(0)
	for attempt := 1; attempt <= 6; attempt++ {
		d := s.Delay(attempt, nil)
		if d < prev {
			t.Fatalf("attempt %d: delay %v < previous %v, expected monotonic growth", attempt, d, prev)
		}
		prev = d
	}
}

func TestExponentialClampsAtMax(t *testing.T) {
	s := Exponential(10*time.Millisecond, 2.0, 50*time.Millisecond, 0)
	d := s.Delay(10, nil)
	if d != 50*time.Millisecond {
		t.Errorf("Delay(10) = %v, want clamp to 50ms", d)
	}
}

func TestLinearGrowth(t *testing.T) {
	s := Linear(10*time.Millisecond, 1.0, time.Second, 0)
	if d := s.Delay(1, nil); d != 10*time.Millisecond {
		t.Errorf("Delay(1) = %v, want 10ms", d)
	}
	if d := s.Delay(3, nil); d != 30*time.Millisecond {
		t.Errorf("Delay(3) = %v, want 30ms", d)
	}
}

func TestCustomProviderCanReturnZeroToSkipDefaultSleeper(t *testing.T) {
	called := false
	s := Custom(func(attempt int, lastErr error) time.Duration {
		called = true
		return 0
	})
	if d := s.Delay(1, nil); d != 0 {
		t.Errorf("Delay() = %v, want 0", d)
	}
	if !called {
		t.Error("expected custom provider to be invoked")
	}
}

func TestValidationRejectsBadConfig(t *testing.T) {
	if _, err := NewConstant(-1, 0); err == nil {
		t.Error("expected error for negative constant delay")
	} else if !errors.Is(err, rerr.ErrInvalidArgument) {
		t.Errorf("err = %v, want rerr.ErrInvalidArgument", err)
	}
	if _, err := NewConstant(time.Second, 1.5); err == nil {
		t.Error("expected error for jitter outside [0,1]")
	}
	if _, err := NewLinear(0, 1, time.Second, 0); err == nil {
		t.Error("expected error for non-positive initial delay")
	}
	if _, err := NewLinear(time.Second, 1, time.Millisecond, 0); err == nil {
		t.Error("expected error when max <= initial")
	}
	if _, err := NewExponential(time.Millisecond, 1.0, time.Second, 0); err == nil {
		t.Error("expected error for multiplier <= 1")
	}
	if _, err := NewExponential(time.Millisecond, 2.0, time.Second, 0); err != nil {
		t.Errorf("unexpected error for valid exponential config: %v", err)
	}
}
