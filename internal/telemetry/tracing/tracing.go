// Package tracing provides coarse OpenTelemetry spans for the tracker's
// non-hot-path operations, grounded in the teacher's
// engine/monitoring.OpenTelemetryTracer (monitoring.go). It is deliberately
// NOT used around the §4.G ZoneEntry→open-gate dispatch: that path has a
// p99 ≤ 1ms contract and must stay allocation-free, so tracker.go never
// calls into this package from the hot dispatch switch. It is used around
// Tick's drain-to-sink and Shutdown's drain, where a span per batch is
// cheap relative to the work it wraps.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps an oteltrace.Tracer with the small surface the tracker
// actually needs.
type Tracer struct {
	tracer oteltrace.Tracer
}

// New sets up a process-wide TracerProvider (no external exporter wired
// here — attaching one is an operator/ingress concern, out of scope per
// spec.md §1) and returns a Tracer bound to serviceName.
func New(serviceName, environment string) (*Tracer, error) {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.DeploymentEnvironment(environment),
		)),
	)
	otel.SetTracerProvider(tp)
	return &Tracer{tracer: otel.Tracer(serviceName)}, nil
}

// Noop returns a Tracer whose spans are discarded, used in tests and when
// tracing is disabled via configuration.
func Noop() *Tracer { return &Tracer{tracer: noop.NewTracerProvider().Tracer("noop")} }

// StartSpan starts a span for a coarse, non-hot-path operation.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, oteltrace.Span) {
	kv := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kv = append(kv, attribute.String(k, fmt.Sprintf("%v", v)))
	}
	return t.tracer.Start(ctx, name, oteltrace.WithAttributes(kv...))
}
