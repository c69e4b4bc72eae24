package tracker

import (
	"github.com/arcweld-retail/gatetrack/internal/ingress"
	"github.com/arcweld-retail/gatetrack/internal/telemetry/metrics"
)

// trackerMetrics holds the tracker's instruments: events-processed counter,
// per-event-type counter, gate-command latency histogram,
// gate-command-issued/dropped counters, active/authorized-persons gauges,
// stitch-success/expired counters, payment-matched/unmatched counters. The
// latency histogram is observed only when an open-gate command is issued;
// there is no histogram of per-event processing latency for other events. The
// provider passed to newTrackerMetrics determines whether these are the
// lock-free atomics (production) or no-ops (tests).
type trackerMetrics struct {
	eventsTotal    metrics.Counter
	byKind         [int(ingress.Shutdown) + 1]metrics.Counter
	latencyUs      metrics.Histogram
	gateIssued     metrics.Counter
	gateDropped    metrics.Counter
	active         metrics.Gauge
	authorized     metrics.Gauge
	stitchSuccess  metrics.Counter
	stitchExpired  metrics.Counter
	paymentMatched metrics.Counter
	paymentUnmatched metrics.Counter
	boundaryErrors metrics.Counter
}

func withName(common metrics.CommonOpts, name, help string) metrics.CommonOpts {
	common.Name = name
	common.Help = help
	return common
}

func newTrackerMetrics(p metrics.Provider) trackerMetrics {
	ns := metrics.CommonOpts{Namespace: "gatetrack", Subsystem: "tracker"}
	var m trackerMetrics

	m.eventsTotal = p.NewCounter(metrics.CounterOpts{CommonOpts: withName(ns, "events_processed_total",
		"Total ingress events processed, across all kinds.")})

	for k := ingress.TrackCreate; k <= ingress.Shutdown; k++ {
		m.byKind[k] = p.NewCounter(metrics.CounterOpts{CommonOpts: withName(ns, "events_"+k.String()+"_total",
			"Ingress events processed of kind "+k.String()+".")})
	}

	m.latencyUs = p.NewHistogram(metrics.HistogramOpts{CommonOpts: withName(ns, "gate_command_latency_microseconds",
		"Measured latency from a gate-zone ZoneEntry dispatch to the open-gate command reaching the output queue.")})

	m.gateIssued = p.NewCounter(metrics.CounterOpts{CommonOpts: withName(ns, "gate_command_issued_total",
		"Open-gate commands handed to the output queue.")})
	m.gateDropped = p.NewCounter(metrics.CounterOpts{CommonOpts: withName(ns, "gate_command_dropped_total",
		"Open-gate commands dropped because the output queue was full.")})

	m.active = p.NewGauge(metrics.GaugeOpts{CommonOpts: withName(ns, "active_persons",
		"Journeys currently attached to a live track.")})
	m.authorized = p.NewGauge(metrics.GaugeOpts{CommonOpts: withName(ns, "authorized_persons",
		"Active journeys with authorized=true.")})

	m.stitchSuccess = p.NewCounter(metrics.CounterOpts{CommonOpts: withName(ns, "stitch_success_total",
		"Track-create events resolved to a prior track via the Stitcher.")})
	m.stitchExpired = p.NewCounter(metrics.CounterOpts{CommonOpts: withName(ns, "stitch_expired_total",
		"Pending stitch entries discarded for exceeding their grace window.")})

	m.paymentMatched = p.NewCounter(metrics.CounterOpts{CommonOpts: withName(ns, "payment_matched_total",
		"Payment events resolved to a candidate track.")})
	m.paymentUnmatched = p.NewCounter(metrics.CounterOpts{CommonOpts: withName(ns, "payment_unmatched_total",
		"Payment events with no eligible candidate.")})

	m.boundaryErrors = p.NewCounter(metrics.CounterOpts{CommonOpts: withName(ns, "input_boundary_errors_total",
		"Input-boundary errors: unknown zone/line/source ids, counted and dropped (spec.md §7).")})

	return m
}
