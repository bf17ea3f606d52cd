package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kresil/kresil-sub001/event"
	"github.com/kresil/kresil-sub001/rmetrics"
)

// Rejected is returned by RateLimiter.Call when the operation could not
// acquire permits, either because the wait queue was full or because the
// wait timed out. RetryAfter is a best-effort hint for how long the caller
// should back off before trying again; it is not an exact guarantee.
type Rejected struct {
	RetryAfter time.Duration
	cause      error
}

func (e *Rejected) Error() string {
	return fmt.Sprintf("ratelimiter: rejected, retry after %v: %v", e.RetryAfter, e.cause)
}

func (e *Rejected) Unwrap() error { return e.cause }

// Event is published on a RateLimiter's bus around every Call.
type Event struct {
	Name          string // "acquired", "rejected", "released"
	CorrelationID string
	Permits       int
	Algorithm     string
}

// RateLimiter wraps a rate-limiting Algorithm with a uniform call/acquire/
// release surface and an event bus for observers.
type RateLimiter struct {
	name    string
	algo    *Algorithm
	bus     *event.Bus[Event]
	metrics rmetrics.Collector
}

// New wraps algo as a RateLimiter facade.
func New(algo *Algorithm) *RateLimiter {
	return NewNamed("", algo)
}

// NewNamed wraps algo as a RateLimiter facade identified by name in metrics.
func NewNamed(name string, algo *Algorithm) *RateLimiter {
	return &RateLimiter{name: name, algo: algo, bus: event.New[Event](0), metrics: rmetrics.NoOp{}}
}

// SetMetrics attaches a metrics collector that is notified of every
// acquire, rejection and release.
func (r *RateLimiter) SetMetrics(m rmetrics.Collector) {
	r.metrics = m
}

// Acquire reserves permits, blocking up to timeout, and reports a Rejected
// error (wrapping semaphore.ErrRejected or semaphore.ErrTimeout) on
// failure.
func (r *RateLimiter) Acquire(permits int, timeout time.Duration) error {
	err := r.algo.Acquire(permits, timeout)
	if err != nil {
		retryAfter := r.algo.RetryAfter(permits)
		r.bus.Publish(Event{Name: "rejected", CorrelationID: uuid.NewString(), Permits: permits, Algorithm: r.algo.Name()})
		r.metrics.RecordRejection("rate_limiter", r.name)
		return &Rejected{RetryAfter: retryAfter, cause: err}
	}
	r.bus.Publish(Event{Name: "acquired", CorrelationID: uuid.NewString(), Permits: permits, Algorithm: r.algo.Name()})
	r.metrics.RecordSuccess("rate_limiter", r.name)
	return nil
}

// Release returns permits early; see Algorithm.Release for the caveats
// specific to each strategy.
func (r *RateLimiter) Release(permits int) {
	r.algo.Release(permits)
	r.bus.Publish(Event{Name: "released", CorrelationID: uuid.NewString(), Permits: permits, Algorithm: r.algo.Name()})
}

// Call acquires permits, runs op, and always releases afterward — win or
// lose, success or error from op — since Call's reservation is scoped to
// the single operation's lifetime.
func (r *RateLimiter) Call(ctx context.Context, permits int, timeout time.Duration, op func(context.Context) error) error {
	if err := r.Acquire(permits, timeout); err != nil {
		return err
	}
	defer r.Release(permits)
	return op(ctx)
}

// OnEvent subscribes handler to this limiter's events.
func (r *RateLimiter) OnEvent(handler func(Event)) event.Subscription {
	return r.bus.Subscribe(handler)
}

// CancelListeners detaches all current event subscribers.
func (r *RateLimiter) CancelListeners() {
	r.bus.CancelListeners()
}

// PermitsAvailable reports how many permits could be acquired immediately.
func (r *RateLimiter) PermitsAvailable() int { return r.algo.PermitsAvailable() }

// ErrUnknownKey is returned by KeyedRateLimiter.Acquire/Call when a key has
// no limiter and the factory provided at construction is nil.
var ErrUnknownKey = errors.New("ratelimiter: no limiter registered for key and no factory provided")

// Factory constructs a fresh Algorithm for a previously unseen key.
type Factory func(key string) *Algorithm

// KeyedRateLimiter multiplexes independent rate limiters across a set of
// keys (per tenant, per API route, per remote peer), creating one lazily
// per key via Factory on first use.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*RateLimiter
	factory  Factory
	metrics  rmetrics.Collector
}

// NewKeyed constructs a KeyedRateLimiter. factory may be nil if every key
// is registered explicitly via Register before use.
func NewKeyed(factory Factory) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: make(map[string]*RateLimiter),
		factory:  factory,
		metrics:  rmetrics.NoOp{},
	}
}

// SetMetrics attaches a metrics collector applied to every limiter this
// KeyedRateLimiter creates or already holds.
func (k *KeyedRateLimiter) SetMetrics(m rmetrics.Collector) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.metrics = m
	for _, l := range k.limiters {
		l.SetMetrics(m)
	}
}

// Register explicitly binds algo to key, overwriting any limiter a
// previous Acquire/Call call may have lazily created for it.
func (k *KeyedRateLimiter) Register(key string, algo *Algorithm) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l := NewNamed(key, algo)
	l.SetMetrics(k.metrics)
	k.limiters[key] = l
}

func (k *KeyedRateLimiter) limiterFor(key string) (*RateLimiter, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if l, ok := k.limiters[key]; ok {
		return l, nil
	}
	if k.factory == nil {
		return nil, ErrUnknownKey
	}
	l := NewNamed(key, k.factory(key))
	l.SetMetrics(k.metrics)
	k.limiters[key] = l
	return l, nil
}

// Acquire reserves permits under key's limiter, creating one via Factory
// if this is the first time key has been seen.
func (k *KeyedRateLimiter) Acquire(key string, permits int, timeout time.Duration) error {
	l, err := k.limiterFor(key)
	if err != nil {
		return err
	}
	return l.Acquire(permits, timeout)
}

// Release returns permits under key's limiter.
func (k *KeyedRateLimiter) Release(key string, permits int) error {
	l, err := k.limiterFor(key)
	if err != nil {
		return err
	}
	l.Release(permits)
	return nil
}

// Call acquires permits under key's limiter, runs op, and releases
// afterward.
func (k *KeyedRateLimiter) Call(ctx context.Context, key string, permits int, timeout time.Duration, op func(context.Context) error) error {
	l, err := k.limiterFor(key)
	if err != nil {
		return err
	}
	return l.Call(ctx, permits, timeout, op)
}

// KeyCount reports how many distinct keys currently have a limiter.
func (k *KeyedRateLimiter) KeyCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}
