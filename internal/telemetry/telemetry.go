// Package telemetry installs the real OpenTelemetry SDK tracer and meter
// providers as the global providers in place of the no-op defaults, for the
// spans/instruments created in internal/stream, internal/persist and
// internal/pipeline. Grounded on the provider-setup shape in
// datum-cloud-milo's internal/tracing/tracing.go, simplified further: no span
// processor, exporter or metric reader is registered, so spans are sampled
// but not exported and metric values are not collected anywhere.
package telemetry

import (
	"context"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"go.opentelemetry.io/otel"
)

// Shutdown flushes and releases the providers installed by Configure.
type Shutdown func()

// Configure installs SDK-backed tracer and meter providers as the global
// providers for serviceName. Spans are always-sampled: this binary is a demo
// CLI, not a high-throughput production service, so there is no need for a
// probabilistic sampler.
func Configure(serviceName string) Shutdown {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider()
	otel.SetMeterProvider(mp)

	return func() {
		ctx := context.Background()
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
	}
}
