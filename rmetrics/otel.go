package rmetrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelCollector reports resilience outcomes to an OpenTelemetry meter.
// Instruments are created lazily and cached, since the meter SDK does not
// like having the same instrument name registered twice.
type OTelCollector struct {
	meter metric.Meter

	mu         sync.RWMutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// NewOTelCollector builds a Collector backed by otel.Meter(meterName).
func NewOTelCollector(meterName string) *OTelCollector {
	return &OTelCollector{
		meter:      otel.Meter(meterName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

func (c *OTelCollector) counter(name, help string) metric.Int64Counter {
	c.mu.RLock()
	ctr, exists := c.counters[name]
	c.mu.RUnlock()

	if !exists {
		c.mu.Lock()
		if ctr, exists = c.counters[name]; !exists {
			var err error
			ctr, err = c.meter.Int64Counter(name, metric.WithDescription(help))
			if err != nil {
				ctr, _ = c.meter.Int64Counter(name)
			}
			c.counters[name] = ctr
		}
		c.mu.Unlock()
	}
	return ctr
}

func (c *OTelCollector) histogram(name, help, unit string) metric.Float64Histogram {
	c.mu.RLock()
	h, exists := c.histograms[name]
	c.mu.RUnlock()

	if !exists {
		c.mu.Lock()
		if h, exists = c.histograms[name]; !exists {
			var err error
			h, err = c.meter.Float64Histogram(name, metric.WithDescription(help), metric.WithUnit(unit))
			if err != nil {
				h, _ = c.meter.Float64Histogram(name)
			}
			c.histograms[name] = h
		}
		c.mu.Unlock()
	}
	return h
}

func labels(mechanism, name string, extra ...attribute.KeyValue) []attribute.KeyValue {
	return append([]attribute.KeyValue{
		attribute.String("mechanism", mechanism),
		attribute.String("name", name),
	}, extra...)
}

func (c *OTelCollector) RecordSuccess(mechanism, name string) {
	attrs := labels(mechanism, name, attribute.String("outcome", "success"))
	c.counter("resilience_calls_total", "total calls observed by a resilience mechanism").
		Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

func (c *OTelCollector) RecordFailure(mechanism, name string) {
	attrs := labels(mechanism, name, attribute.String("outcome", "failure"))
	c.counter("resilience_calls_total", "total calls observed by a resilience mechanism").
		Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

func (c *OTelCollector) RecordRejection(mechanism, name string) {
	attrs := labels(mechanism, name)
	c.counter("resilience_rejections_total", "calls rejected without running the protected operation").
		Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

func (c *OTelCollector) RecordStateChange(mechanism, name, from, to string) {
	attrs := labels(mechanism, name, attribute.String("from", from), attribute.String("to", to))
	c.counter("resilience_state_transitions_total", "state transitions observed by a resilience mechanism").
		Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

func (c *OTelCollector) RecordDuration(mechanism, name string, d time.Duration) {
	attrs := labels(mechanism, name)
	c.histogram("resilience_call_duration_seconds", "duration of calls guarded by a resilience mechanism", "s").
		Record(context.Background(), d.Seconds(), metric.WithAttributes(attrs...))
}

var _ Collector = (*OTelCollector)(nil)
