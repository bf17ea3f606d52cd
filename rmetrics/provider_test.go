package rmetrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestOTelCollectorEmitsThroughManualReader(t *testing.T) {
	reader := metric.NewManualReader()
	NewMeterProvider("kresil-sub001-test", reader)

	c := NewOTelCollector("kresil-sub001-test")
	c.RecordSuccess("circuit_breaker", "orders-api")
	c.RecordRejection("rate_limiter", "orders-api")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
		}
	}
	if !found["resilience_calls_total"] {
		t.Error("expected resilience_calls_total to have been recorded")
	}
	if !found["resilience_rejections_total"] {
		t.Error("expected resilience_rejections_total to have been recorded")
	}
}
