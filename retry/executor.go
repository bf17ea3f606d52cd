package retry

import (
	"context"
	"time"

	"github.com/kresil/kresil-sub001/delay"
	"github.com/kresil/kresil-sub001/event"
	"github.com/kresil/kresil-sub001/rlog"
	"github.com/kresil/kresil-sub001/rmetrics"
)

// ExecutorConfig configures an Executor; a nil *ExecutorConfig passed to
// NewExecutor falls back to DefaultExecutorConfig.
type ExecutorConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

// DefaultExecutorConfig returns 3 attempts, exponential backoff from
// 100ms to 2s with jitter.
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
}

func (c *ExecutorConfig) toDelayStrategy() delay.Strategy {
	jitter := 0.0
	if c.JitterEnabled {
		jitter = 0.2
	}
	return delay.Exponential(c.InitialDelay, c.BackoffFactor, c.MaxDelay, jitter)
}

// Executor is a non-generic convenience over Engine for callers whose
// operation reports only success/failure, with no result value to inspect.
type Executor struct {
	engine *Engine[struct{}]
}

// NewExecutor builds an anonymously-named Executor. config may be nil to
// use DefaultExecutorConfig.
func NewExecutor(config *ExecutorConfig) *Executor {
	return NewNamedExecutor("", config)
}

// NewNamedExecutor builds an Executor identified by name in metrics.
// config may be nil to use DefaultExecutorConfig.
func NewNamedExecutor(name string, config *ExecutorConfig) *Executor {
	if config == nil {
		config = DefaultExecutorConfig()
	}
	engine, err := NewNamed(name, Config[struct{}]{
		MaxAttempts: config.MaxAttempts,
		Delay:       config.toDelayStrategy(),
	})
	if err != nil {
		// A caller-supplied config with a non-positive MaxAttempts fails
		// NewNamed's validation; fall back to a single attempt with no delay.
		engine, _ = NewNamed(name, Config[struct{}]{MaxAttempts: 1, Delay: delay.None()})
	}
	return &Executor{engine: engine}
}

// SetLogger attaches a logger to the underlying engine.
func (x *Executor) SetLogger(l rlog.Logger) {
	x.engine.SetLogger(l)
}

// SetMetrics attaches a metrics collector to the underlying engine.
func (x *Executor) SetMetrics(m rmetrics.Collector) {
	x.engine.SetMetrics(m)
}

// OnEvent subscribes handler to the underlying engine's events.
func (x *Executor) OnEvent(handler func(Event)) event.Subscription {
	return x.engine.OnEvent(handler)
}

// Execute runs fn, retrying per the executor's configuration, until it
// succeeds, exhausts its attempts, or ctx is canceled.
func (x *Executor) Execute(ctx context.Context, operation string, fn func() error) error {
	_, err := x.engine.Execute(ctx, operation, func(context.Context) (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
