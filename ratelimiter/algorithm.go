// Package ratelimiter implements the rate-limiting algorithms (fixed
// window, token bucket, sliding window) as pluggable semaphore.State
// backends, plus the RateLimiter and KeyedRateLimiter facades that sit in
// front of them. Each algorithm owns the time-based replenishment logic;
// the suspendable semaphore underneath supplies the shared FIFO-wait and
// timeout machinery so none of the three have to reimplement it.
package ratelimiter

import (
	"time"

	"github.com/kresil/kresil-sub001/semaphore"
)

// Algorithm is a named rate-limiting strategy backed by a suspendable
// semaphore whose State implements the strategy's replenishment rule.
type Algorithm struct {
	name string
	sem  *semaphore.SuspendableSemaphore
}

// retryAfterState is implemented by every concrete state type in this
// package; it is how Algorithm.RetryAfter reaches the replenishment math
// specific to each strategy without semaphore.State itself knowing about
// rate-limiting concerns.
type retryAfterState interface {
	RetryAfter(n int) time.Duration
}

// Name identifies which algorithm this instance runs, for logging and
// metrics labeling.
func (a *Algorithm) Name() string { return a.name }

// Acquire reserves n permits under the algorithm's rule, blocking up to
// timeout. It returns semaphore.ErrRejected or semaphore.ErrTimeout on
// failure.
func (a *Algorithm) Acquire(n int, timeout time.Duration) error {
	return a.sem.Acquire(n, timeout)
}

// Release returns n permits early, ahead of the algorithm's own
// replenishment schedule. Most callers never need this; it exists for
// workloads that want to give back a reservation as soon as it's known to
// be unneeded. The fixed window and token bucket return the permits to the
// current count directly; the sliding window counter subtracts them from
// its current segment only, never from segments already rolled into the
// ring.
func (a *Algorithm) Release(n int) {
	a.sem.Release(n)
}

// PermitsAvailable reports how many permits could be acquired immediately,
// as of the algorithm's last replenishment check.
func (a *Algorithm) PermitsAvailable() int {
	return a.sem.PermitsAvailable()
}

// QueueLength reports the number of callers currently suspended waiting
// for permits.
func (a *Algorithm) QueueLength() int {
	return a.sem.QueueLength()
}

// RetryAfter estimates how long a caller requesting n permits right now
// would have to wait for them, per the algorithm's own replenishment rule.
// It is a best-effort hint, not a guarantee.
func (a *Algorithm) RetryAfter(n int) time.Duration {
	var d time.Duration
	a.sem.WithStateLocked(func(st semaphore.State) {
		if ras, ok := st.(retryAfterState); ok {
			d = ras.RetryAfter(n)
		}
	})
	return d
}
