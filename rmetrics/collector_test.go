package rmetrics

import "testing"

func TestNoOpSatisfiesCollector(t *testing.T) {
	var c Collector = NoOp{}
	c.RecordSuccess("circuit_breaker", "orders-api")
	c.RecordFailure("circuit_breaker", "orders-api")
	c.RecordRejection("rate_limiter", "orders-api")
	c.RecordStateChange("circuit_breaker", "orders-api", "closed", "open")
	c.RecordDuration("retry", "orders-api", 0)
}

func TestOTelCollectorCachesInstrumentsAcrossCalls(t *testing.T) {
	c := NewOTelCollector("kresil-sub001-test")
	first := c.counter("resilience_calls_total", "total calls")
	second := c.counter("resilience_calls_total", "total calls")
	if first != second {
		t.Fatal("expected the same cached counter instrument on repeated lookups")
	}
}

func TestOTelCollectorSatisfiesCollector(t *testing.T) {
	var c Collector = NewOTelCollector("kresil-sub001-test")
	c.RecordSuccess("circuit_breaker", "orders-api")
	c.RecordStateChange("circuit_breaker", "orders-api", "closed", "open")
}
