// Package retry implements the retry engine: a generic, predicate-driven
// retry loop over delay.Strategy, plus a non-generic Executor convenience
// wrapper for callers that only care about an error outcome.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kresil/kresil-sub001/delay"
	"github.com/kresil/kresil-sub001/event"
	"github.com/kresil/kresil-sub001/rlog"
	"github.com/kresil/kresil-sub001/rmetrics"
)

// MaxRetriesExceeded is returned once all attempts are spent and the last
// attempt produced an unacceptable result rather than an error; LastErr
// describes that result. Exhaustion on retryable errors returns the last
// error itself, not a MaxRetriesExceeded.
type MaxRetriesExceeded struct {
	Attempts int
	LastErr  error
}

func (e *MaxRetriesExceeded) Error() string {
	return fmt.Sprintf("retry: exhausted %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *MaxRetriesExceeded) Unwrap() error { return e.LastErr }

// Event is published around every attempt.
type Event struct {
	Name          string // "retry", "error", "ignored_error", "success"
	CorrelationID string
	Operation     string
	Attempt       int
	Err           error
}

// Config configures an Engine. MaxAttempts counts the initial call as
// attempt 1, so MaxAttempts=3 means up to 2 retries after the first
// failure. RetryOnError decides whether an error is retryable (default:
// any non-nil error is retryable). RetryOnResult, if set, additionally
// retries on a successful call whose result is judged unacceptable.
type Config[T any] struct {
	MaxAttempts     int
	Delay           delay.Strategy
	RetryOnError    func(error) bool
	RetryOnResult   func(T) bool
	OnBeforeAttempt func(attempt int)
}

// DefaultConfig returns 3 attempts with exponential backoff from 100ms to
// 2s, retrying on any error and never on result content.
func DefaultConfig[T any]() Config[T] {
	return Config[T]{
		MaxAttempts:  3,
		Delay:        delay.Exponential(100*time.Millisecond, 2.0, 2*time.Second, 0.1),
		RetryOnError: func(error) bool { return true },
	}
}

// Engine runs an operation under a Config, retrying per its predicates and
// delay strategy, and publishing Events for observers.
type Engine[T any] struct {
	name    string
	cfg     Config[T]
	logger  rlog.Logger
	metrics rmetrics.Collector
	bus     *event.Bus[Event]
	sleep   func(context.Context, time.Duration) error
}

// New constructs an anonymously-named Engine. A zero Config{} is invalid;
// use DefaultConfig as a starting point.
func New[T any](cfg Config[T]) (*Engine[T], error) {
	return NewNamed[T]("", cfg)
}

// NewNamed constructs an Engine identified by name in metrics.
func NewNamed[T any](name string, cfg Config[T]) (*Engine[T], error) {
	if cfg.MaxAttempts <= 0 {
		return nil, errors.New("retry: MaxAttempts must be positive")
	}
	if cfg.Delay == nil {
		cfg.Delay = delay.None()
	}
	if cfg.RetryOnError == nil {
		cfg.RetryOnError = func(error) bool { return true }
	}
	return &Engine[T]{
		name:    name,
		cfg:     cfg,
		logger:  rlog.NoOp{},
		metrics: rmetrics.NoOp{},
		bus:     event.New[Event](0),
		sleep:   sleepCtx,
	}, nil
}

// SetLogger attaches a logger, tagging it with this package's component
// name if it supports ComponentAware.
func (e *Engine[T]) SetLogger(l rlog.Logger) {
	if ca, ok := l.(rlog.ComponentAware); ok {
		l = ca.WithComponent("retry")
	}
	e.logger = l
}

// SetMetrics attaches a metrics collector notified once per Execute of its
// final success or failure (including exhaustion); individual retries are
// not recorded.
func (e *Engine[T]) SetMetrics(m rmetrics.Collector) {
	e.metrics = m
}

// OnEvent subscribes handler to this engine's events.
func (e *Engine[T]) OnEvent(handler func(Event)) event.Subscription {
	return e.bus.Subscribe(handler)
}

// CancelListeners detaches all current event subscribers.
func (e *Engine[T]) CancelListeners() {
	e.bus.CancelListeners()
}

// Execute runs fn, retrying per Config, until it succeeds with an
// acceptable result, exhausts MaxAttempts, or ctx is canceled. operation
// names this call for logging and events.
func (e *Engine[T]) Execute(ctx context.Context, operation string, fn func(context.Context) (T, error)) (T, error) {
	e.logger.Info("starting retry operation", map[string]interface{}{
		"operation":       "retry_start",
		"retry_operation": operation,
	})

	var zero T
	var lastErr error
	var lastResult T
	var haveResult bool

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if e.cfg.OnBeforeAttempt != nil {
			e.cfg.OnBeforeAttempt(attempt)
		}

		result, err := fn(ctx)
		if err == nil {
			if e.cfg.RetryOnResult == nil || !e.cfg.RetryOnResult(result) {
				e.bus.Publish(Event{Name: "success", CorrelationID: uuid.NewString(), Operation: operation, Attempt: attempt})
				e.logger.Info("retry operation succeeded", map[string]interface{}{
					"operation":       "retry_success",
					"retry_operation": operation,
					"attempt":         attempt,
				})
				e.metrics.RecordSuccess("retry", e.name)
				return result, nil
			}
			// Result itself is unacceptable; treat like a retryable
			// failure for backoff/exhaustion purposes.
			lastErr = nil
			lastResult = result
			haveResult = true
			e.bus.Publish(Event{Name: "ignored_error", CorrelationID: uuid.NewString(), Operation: operation, Attempt: attempt})
		} else if e.cfg.RetryOnError(err) {
			lastErr = err
			haveResult = false
			e.bus.Publish(Event{Name: "retry", CorrelationID: uuid.NewString(), Operation: operation, Attempt: attempt, Err: err})
		} else {
			e.bus.Publish(Event{Name: "error", CorrelationID: uuid.NewString(), Operation: operation, Attempt: attempt, Err: err})
			e.logger.Error("non-retryable error", map[string]interface{}{
				"operation":       "retry_error",
				"retry_operation": operation,
				"attempt":         attempt,
			})
			e.metrics.RecordFailure("retry", e.name)
			return zero, err
		}

		if attempt == e.cfg.MaxAttempts {
			break
		}

		d := e.cfg.Delay.Delay(attempt, lastErr)
		e.logger.Debug("backing off before next attempt", map[string]interface{}{
			"operation":       "retry_backoff",
			"retry_operation": operation,
			"attempt":         attempt,
			"delay":           d.String(),
		})
		if err := e.sleep(ctx, d); err != nil {
			return zero, err
		}
	}

	e.metrics.RecordFailure("retry", e.name)
	if haveResult {
		err := &MaxRetriesExceeded{Attempts: e.cfg.MaxAttempts, LastErr: fmt.Errorf("unacceptable result: %v", lastResult)}
		e.logger.Error("retry exhausted on unacceptable result", map[string]interface{}{
			"operation":       "retry_exhausted",
			"retry_operation": operation,
		})
		return lastResult, err
	}
	// Exhaustion driven by repeated retryable errors surfaces the last
	// error as-is; MaxRetriesExceeded is reserved for exhaustion driven by
	// an unacceptable result.
	e.logger.Error("retry exhausted", map[string]interface{}{
		"operation":       "retry_exhausted",
		"retry_operation": operation,
	})
	return zero, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
