package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kresil/kresil-sub001/event"
	"github.com/kresil/kresil-sub001/rlog"
	"github.com/kresil/kresil-sub001/rmetrics"
	"github.com/kresil/kresil-sub001/window"
)

// ErrCallNotPermitted is returned by Execute when the breaker is Open, or
// when it is HalfOpen and the permitted trial calls are already in flight.
var ErrCallNotPermitted = errors.New("circuitbreaker: call not permitted")

// Event is published on a breaker's bus for every state transition and
// recorded outcome. CorrelationID identifies this particular occurrence for
// cross-referencing against logs or traces emitted around the same call.
type Event struct {
	Name          string // "state_change", "success", "failure", "rejected"
	CorrelationID string
	From          Kind
	To            Kind
	Err           error
}

// CircuitBreaker guards calls to a potentially failing operation, tripping
// open once its failure rate crosses a threshold and probing recovery via
// a bounded number of half-open trial calls.
type CircuitBreaker struct {
	mu      sync.Mutex
	name    string
	reducer *reducer
	logger  rlog.Logger
	metrics rmetrics.Collector
	bus     *event.Bus[Event]

	halfOpenInFlight int
}

// New constructs an anonymously-named CircuitBreaker from cfg, which must
// pass Validate.
func New(cfg Config) (*CircuitBreaker, error) {
	return NewNamed("", cfg)
}

// NewNamed constructs a CircuitBreaker identified by name in logs, events
// and metrics.
func NewNamed(name string, cfg Config) (*CircuitBreaker, error) {
	return newWithClock(name, cfg, time.Now)
}

func newWithClock(name string, cfg Config, now func() time.Time) (*CircuitBreaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, err := window.New(cfg.SlidingWindowSize, cfg.MinimumThroughput)
	if err != nil {
		return nil, err
	}
	return &CircuitBreaker{
		name:    name,
		reducer: newReducer(cfg, w, now),
		logger:  rlog.NoOp{},
		metrics: rmetrics.NoOp{},
		bus:     event.New[Event](0),
	}, nil
}

// SetLogger attaches a logger, tagging it with this package's component
// name if it supports ComponentAware.
func (cb *CircuitBreaker) SetLogger(l rlog.Logger) {
	if ca, ok := l.(rlog.ComponentAware); ok {
		l = ca.WithComponent("circuitbreaker")
	}
	cb.mu.Lock()
	cb.logger = l
	cb.mu.Unlock()
}

// SetMetrics attaches a metrics collector that is notified of every
// outcome and state transition.
func (cb *CircuitBreaker) SetMetrics(m rmetrics.Collector) {
	cb.mu.Lock()
	cb.metrics = m
	cb.mu.Unlock()
}

// CurrentState returns a snapshot of the breaker's present state.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.admitTimeouts()
	return cb.reducer.state
}

// admitTimeouts re-evaluates the two time-driven transitions that don't
// wait for a dispatched outcome: an Open breaker whose delay has elapsed
// moves to HalfOpen, and a HalfOpen breaker whose trial calls have taken
// longer than MaxWaitDurationInHalfOpen to reach their quota reopens. Must
// be called with cb.mu held.
func (cb *CircuitBreaker) admitTimeouts() {
	r := cb.reducer
	if r.forced {
		return
	}
	if r.state.Kind == Open && r.openDelayElapsed() {
		from := r.state.Kind
		r.transitionTo(HalfOpen)
		cb.halfOpenInFlight = 0
		cb.publishTransition(from, HalfOpen)
		return
	}
	if r.state.Kind == HalfOpen && r.halfOpenWaitExpired() {
		from := r.state.Kind
		r.transitionTo(Open)
		cb.halfOpenInFlight = 0
		cb.publishTransition(from, Open)
	}
}

// tryEnter decides whether a new call may proceed, reserving a half-open
// slot if applicable. Must be called with cb.mu held.
func (cb *CircuitBreaker) tryEnter() bool {
	cb.admitTimeouts()
	switch cb.reducer.state.Kind {
	case Closed:
		return true
	case Open:
		return false
	case HalfOpen:
		permitted := cb.reducer.state.CallsPermitted
		inFlightAndDone := cb.halfOpenInFlight + cb.reducer.state.CallsAttempted
		if inFlightAndDone >= permitted {
			return false
		}
		cb.halfOpenInFlight++
		return true
	default:
		return false
	}
}

// Execute runs fn if the breaker currently permits it, recording the
// outcome as success or failure according to classify and feeding it to
// the reducer. It returns ErrCallNotPermitted without running fn if
// the breaker is Open, or HalfOpen with no trial slots free.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	cb.mu.Lock()
	if !cb.tryEnter() {
		cb.mu.Unlock()
		cb.bus.Publish(Event{Name: "rejected", CorrelationID: uuid.NewString()})
		cb.logger.Warn("call rejected", map[string]interface{}{"operation": "circuit_breaker_execute"})
		cb.metrics.RecordRejection("circuit_breaker", cb.name)
		return ErrCallNotPermitted
	}
	wasHalfOpen := cb.reducer.state.Kind == HalfOpen
	cb.mu.Unlock()

	err := fn(ctx)

	cb.mu.Lock()
	if wasHalfOpen {
		cb.halfOpenInFlight--
	}
	from := cb.reducer.state.Kind
	classifiedAsFailure := cb.classify(err)
	if classifiedAsFailure {
		cb.reducer.dispatch(actionFailure)
	} else {
		cb.reducer.dispatch(actionSuccess)
	}
	to := cb.reducer.state.Kind
	cb.mu.Unlock()

	if classifiedAsFailure {
		cb.bus.Publish(Event{Name: "failure", CorrelationID: uuid.NewString(), Err: err})
		cb.metrics.RecordFailure("circuit_breaker", cb.name)
	} else {
		cb.bus.Publish(Event{Name: "success", CorrelationID: uuid.NewString()})
		cb.metrics.RecordSuccess("circuit_breaker", cb.name)
	}
	if from != to {
		cb.publishTransition(from, to)
	}
	return err
}

// classify decides whether an operation's outcome should be recorded as a
// failure: every non-nil error counts as a failure unless
// RecordExceptionPredicate says otherwise, and a nil error counts as a
// success unless RecordResultPredicate says it should be treated as a
// failure despite succeeding. The original error, unmodified, is always
// what Execute returns to the caller regardless of this classification.
func (cb *CircuitBreaker) classify(err error) bool {
	cfg := cb.reducer.cfg
	if err != nil {
		if cfg.RecordExceptionPredicate != nil {
			return cfg.RecordExceptionPredicate(err)
		}
		return true
	}
	if cfg.RecordResultPredicate != nil {
		return cfg.RecordResultPredicate()
	}
	return false
}

func (cb *CircuitBreaker) publishTransition(from, to Kind) {
	cb.bus.Publish(Event{Name: "state_change", CorrelationID: uuid.NewString(), From: from, To: to})
	cb.logger.Info("state transition", map[string]interface{}{
		"operation": "circuit_breaker_transition",
		"from":      from.String(),
		"to":        to.String(),
	})
	cb.metrics.RecordStateChange("circuit_breaker", cb.name, from.String(), to.String())
}

// ForceOpen pins the breaker Open until ClearForce is called.
func (cb *CircuitBreaker) ForceOpen() {
	cb.mu.Lock()
	from := cb.reducer.state.Kind
	cb.reducer.dispatch(actionForceOpen)
	to := cb.reducer.state.Kind
	cb.mu.Unlock()
	if from != to {
		cb.publishTransition(from, to)
	}
}

// ForceClosed pins the breaker Closed until ClearForce is called.
func (cb *CircuitBreaker) ForceClosed() {
	cb.mu.Lock()
	from := cb.reducer.state.Kind
	cb.reducer.dispatch(actionForceClosed)
	to := cb.reducer.state.Kind
	cb.halfOpenInFlight = 0
	cb.mu.Unlock()
	if from != to {
		cb.publishTransition(from, to)
	}
}

// ForceHalfOpen pins the breaker HalfOpen until ClearForce is called.
func (cb *CircuitBreaker) ForceHalfOpen() {
	cb.mu.Lock()
	from := cb.reducer.state.Kind
	cb.reducer.dispatch(actionForceHalfOpen)
	to := cb.reducer.state.Kind
	cb.halfOpenInFlight = 0
	cb.mu.Unlock()
	if from != to {
		cb.publishTransition(from, to)
	}
}

// ClearForce releases a prior ForceOpen/ForceClosed pin, letting the
// reducer resume evaluating outcomes normally.
func (cb *CircuitBreaker) ClearForce() {
	cb.mu.Lock()
	cb.reducer.dispatch(actionClearForce)
	cb.mu.Unlock()
}

// Reset clears all recorded history and returns the breaker to Closed,
// releasing any force pin.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.reducer.state.Kind
	cb.reducer.dispatch(actionReset)
	cb.halfOpenInFlight = 0
	cb.mu.Unlock()
	if from != Closed {
		cb.publishTransition(from, Closed)
	}
}

// OnEvent subscribes handler to this breaker's events.
func (cb *CircuitBreaker) OnEvent(handler func(Event)) event.Subscription {
	return cb.bus.Subscribe(handler)
}

// CancelListeners detaches all current event subscribers.
func (cb *CircuitBreaker) CancelListeners() {
	cb.bus.CancelListeners()
}
