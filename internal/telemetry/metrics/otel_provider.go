package metrics

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelProviderOptions configures NewOTelProvider. ServiceName is reserved
// for resource attribution by a caller that layers exporters onto the
// returned SDK MeterProvider (Shutdown); this module does not configure
// an exporter itself (spec.md §1 scopes the metrics backend choice to the
// caller, same as the Prometheus Bridge).
type OTelProviderOptions struct {
	ServiceName string
}

// NewOTelProvider returns a Provider backed by an OpenTelemetry
// MeterProvider, grounded in the teacher's
// engine/telemetry/metrics.NewOTelProvider: counters/histograms map
// directly onto OTel's Float64Counter/Float64Histogram, and a Gauge is
// simulated with a Float64UpDownCounter by recording the delta between
// successive Set calls, exactly as the teacher's otelGauge does. Unlike
// the teacher's version, this provider's instruments satisfy the
// unlabeled Counter/Gauge/Histogram contract this module's Provider uses
// (spec.md §6 metrics carry no per-event labels), so there is no
// attribute/cardinality-tracking machinery to carry over.
func NewOTelProvider(opts OTelProviderOptions) Provider {
	mp := sdkmetric.NewMeterProvider()
	meter := mp.Meter("gatetrack")
	return &otelProvider{mp: mp, meter: meter}
}

type otelProvider struct {
	mp    *sdkmetric.MeterProvider
	meter metric.Meter
}

func (p *otelProvider) NewCounter(opts CounterOpts) Counter {
	inst, err := p.meter.Float64Counter(otelName(opts.CommonOpts), metric.WithDescription(opts.Help))
	if err != nil {
		return noopCounter{}
	}
	return &otelCounter{c: inst}
}

func (p *otelProvider) NewGauge(opts GaugeOpts) Gauge {
	inst, err := p.meter.Float64UpDownCounter(otelName(opts.CommonOpts), metric.WithDescription(opts.Help))
	if err != nil {
		return noopGauge{}
	}
	return &otelGauge{g: inst}
}

func (p *otelProvider) NewHistogram(opts HistogramOpts) Histogram {
	inst, err := p.meter.Float64Histogram(otelName(opts.CommonOpts), metric.WithDescription(opts.Help))
	if err != nil {
		return noopHistogram{}
	}
	return &otelHistogram{h: inst}
}

// Health reports whether the underlying MeterProvider can still be used.
// The SDK MeterProvider has no liveness probe of its own; this mirrors the
// teacher's otelProvider.Health, which is likewise an unconditional nil.
func (p *otelProvider) Health(context.Context) error { return nil }

// Shutdown flushes and stops the underlying MeterProvider. Callers that
// construct an OTelProvider own its lifecycle and must call this on
// process exit (the Prometheus Bridge needs no equivalent: it is pulled,
// not pushed).
func (p *otelProvider) Shutdown(ctx context.Context) error { return p.mp.Shutdown(ctx) }

type otelCounter struct{ c metric.Float64Counter }

func (c *otelCounter) Inc(delta float64) {
	if delta <= 0 {
		return
	}
	c.c.Add(context.Background(), delta)
}

// otelGauge simulates Set semantics over an UpDownCounter by applying the
// delta from the previously recorded value, the same technique the
// teacher's otelGauge uses. value is only ever touched from the single
// Tracker goroutine (spec.md §5), so no locking is needed here the way the
// teacher's label-bearing, multi-writer version requires.
type otelGauge struct {
	g     metric.Float64UpDownCounter
	value float64
}

func (g *otelGauge) Set(v float64) {
	diff := v - g.value
	g.value = v
	if diff != 0 {
		g.g.Add(context.Background(), diff)
	}
}

func (g *otelGauge) Add(delta float64) {
	if delta == 0 {
		return
	}
	g.value += delta
	g.g.Add(context.Background(), delta)
}

type otelHistogram struct{ h metric.Float64Histogram }

func (h *otelHistogram) Observe(v float64) {
	h.h.Record(context.Background(), v)
}

func otelName(c CommonOpts) string {
	name := c.Name
	if c.Subsystem != "" {
		name = c.Subsystem + "." + name
	}
	if c.Namespace != "" {
		name = c.Namespace + "." + name
	}
	return name
}
