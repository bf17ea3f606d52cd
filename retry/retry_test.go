package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kresil/kresil-sub001/delay"
	"github.com/kresil/kresil-sub001/rmetrics"
)

type recordingCollector struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingCollector) record(name string) {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()
}

func (r *recordingCollector) RecordSuccess(mechanism, name string)   { r.record("success") }
func (r *recordingCollector) RecordFailure(mechanism, name string)   { r.record("failure") }
func (r *recordingCollector) RecordRejection(mechanism, name string) { r.record("rejection") }
func (r *recordingCollector) RecordStateChange(mechanism, name, from, to string) {
	r.record("state_change")
}
func (r *recordingCollector) RecordDuration(mechanism, name string, d time.Duration) {
	r.record("duration")
}

var _ rmetrics.Collector = (*recordingCollector)(nil)

var errTemp = errors.New("temporary failure")

func fastConfig() Config[int] {
	return Config[int]{
		MaxAttempts: 3,
		Delay:       delay.Constant(time.Millisecond, 0),
	}
}

func TestSucceedsOnThirdAttempt(t *testing.T) {
	eng, err := New(fastConfig())
	if err != nil {
		t.Fatal(err)
	}
	attempt := 0
	result, err := eng.Execute(context.Background(), "op", func(context.Context) (int, error) {
		attempt++
		if attempt < 3 {
			return 0, errTemp
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if result != 42 {
		t.Fatalf("result = %d, want 42", result)
	}
	if attempt != 3 {
		t.Fatalf("attempts = %d, want 3", attempt)
	}
}

func TestExhaustsAfterMaxAttempts(t *testing.T) {
	eng, err := New(fastConfig())
	if err != nil {
		t.Fatal(err)
	}
	attempts := 0
	_, err = eng.Execute(context.Background(), "op", func(context.Context) (int, error) {
		attempts++
		return 0, errTemp
	})
	// Exhaustion driven by repeated retryable errors surfaces the last
	// error directly; MaxRetriesExceeded is reserved for exhaustion driven
	// by an unacceptable result (see TestRetryOnResultExhaustionWrapsMaxRetriesExceeded).
	var exceeded *MaxRetriesExceeded
	if errors.As(err, &exceeded) {
		t.Fatalf("err = %v, want raw errTemp, not *MaxRetriesExceeded", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3 (MaxAttempts counts the initial call)", attempts)
	}
	if !errors.Is(err, errTemp) {
		t.Fatalf("expected errTemp, got %v", err)
	}
}

func TestNonRetryablePredicateStopsImmediately(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryOnError = func(err error) bool { return err != errTemp }
	eng, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	attempts := 0
	_, execErr := eng.Execute(context.Background(), "op", func(context.Context) (int, error) {
		attempts++
		return 0, errTemp
	})
	if execErr != errTemp {
		t.Fatalf("err = %v, want errTemp surfaced directly (not retried)", execErr)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestRetryOnResultRetriesSuccessfulButUnacceptableOutcome(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryOnResult = func(v int) bool { return v < 0 }
	eng, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	attempt := 0
	result, execErr := eng.Execute(context.Background(), "op", func(context.Context) (int, error) {
		attempt++
		if attempt < 2 {
			return -1, nil
		}
		return 7, nil
	})
	if execErr != nil {
		t.Fatalf("err = %v, want nil", execErr)
	}
	if result != 7 {
		t.Fatalf("result = %d, want 7", result)
	}
}

func TestRetryOnResultExhaustionWrapsMaxRetriesExceeded(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryOnResult = func(v int) bool { return true }
	eng, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	_, execErr := eng.Execute(context.Background(), "op", func(context.Context) (int, error) {
		return -1, nil
	})
	var exceeded *MaxRetriesExceeded
	if !errors.As(execErr, &exceeded) {
		t.Fatalf("err = %v, want *MaxRetriesExceeded", execErr)
	}
}

func TestContextCancellationDuringBackoffAborts(t *testing.T) {
	cfg := Config[int]{MaxAttempts: 5, Delay: delay.Constant(time.Hour, 0)}
	eng, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	_, execErr := eng.Execute(ctx, "op", func(context.Context) (int, error) {
		return 0, errTemp
	})
	if !errors.Is(execErr, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", execErr)
	}
	if time.Since(start) > time.Second {
		t.Fatal("took too long to honor cancellation")
	}
}

func TestEventsCoverRetryErrorAndSuccess(t *testing.T) {
	eng, err := New(fastConfig())
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	eng.OnEvent(func(e Event) { names = append(names, e.Name) })

	attempt := 0
	_, _ = eng.Execute(context.Background(), "op", func(context.Context) (int, error) {
		attempt++
		if attempt < 2 {
			return 0, errTemp
		}
		return 1, nil
	})
	time.Sleep(20 * time.Millisecond) // events are delivered asynchronously

	if len(names) != 2 || names[0] != "retry" || names[1] != "success" {
		t.Fatalf("events = %v, want [retry success]", names)
	}
}

func TestExecutorDefaultConfigRetriesOnError(t *testing.T) {
	x := NewExecutor(&ExecutorConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      10 * time.Millisecond,
		BackoffFactor: 2.0,
	})
	attempt := 0
	err := x.Execute(context.Background(), "test-operation", func() error {
		attempt++
		if attempt < 3 {
			return errTemp
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}
	if attempt != 3 {
		t.Fatalf("attempts = %d, want 3", attempt)
	}
}

func TestExecutorNilConfigUsesDefaults(t *testing.T) {
	x := NewExecutor(nil)
	err := x.Execute(context.Background(), "op", func() error { return nil })
	if err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}
}

func TestMetricsCollectorReceivesRetryOutcomes(t *testing.T) {
	eng, err := NewNamed("orders-api", fastConfig())
	if err != nil {
		t.Fatal(err)
	}
	rec := &recordingCollector{}
	eng.SetMetrics(rec)

	attempt := 0
	_, err = eng.Execute(context.Background(), "flaky", func(context.Context) (int, error) {
		attempt++
		if attempt < 2 {
			return 0, errTemp
		}
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.calls) != 1 || rec.calls[0] != "success" {
		t.Fatalf("calls = %v, want [success]", rec.calls)
	}
}

func TestMetricsCollectorReceivesFailureOnExhaustion(t *testing.T) {
	eng, err := NewNamed("orders-api", fastConfig())
	if err != nil {
		t.Fatal(err)
	}
	rec := &recordingCollector{}
	eng.SetMetrics(rec)

	_, err = eng.Execute(context.Background(), "always-fails", func(context.Context) (int, error) {
		return 0, errTemp
	})
	if err == nil {
		t.Fatal("expected exhaustion error")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.calls) != 1 || rec.calls[0] != "failure" {
		t.Fatalf("calls = %v, want [failure]", rec.calls)
	}
}
