package rmetrics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// NewMeterProvider builds an SDK meter provider tagged with serviceName and
// registered with reader, then installs it as the global provider so
// otel.Meter(...) calls made by NewOTelCollector pick it up. Wiring an
// actual exporter (OTLP, Prometheus, stdout) onto reader is the caller's
// concern; this package only shapes the provider every resilience
// mechanism's collector shares.
func NewMeterProvider(serviceName string, reader metric.Reader) *metric.MeterProvider {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)
	mp := metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp
}
