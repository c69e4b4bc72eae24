package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Bridge implements prometheus.Collector over the lock-free instruments
// created by an atomicProvider, in the manner of the teacher's
// monitoring.PrometheusExporter (engine/monitoring/monitoring.go): the hot
// path only ever touches an AtomicCounter/AtomicGauge/AtomicHistogram, and a
// background scrape (external to this core, per spec.md §1) reads the
// snapshot through this Collector.
type Bridge struct {
	mu         sync.Mutex
	counters   []boundCounter
	gauges     []boundGauge
	histograms []boundHistogram
}

type boundCounter struct {
	desc *prometheus.Desc
	c    *AtomicCounter
}
type boundGauge struct {
	desc *prometheus.Desc
	g    *AtomicGauge
}
type boundHistogram struct {
	desc *prometheus.Desc
	h    *AtomicHistogram
}

// NewBridge constructs an empty Bridge ready to be registered with a
// prometheus.Registry and handed to NewAtomicProvider.
func NewBridge() *Bridge { return &Bridge{} }

func desc(o CommonOpts) *prometheus.Desc {
	return prometheus.NewDesc(
		prometheus.BuildFQName(o.Namespace, o.Subsystem, o.Name),
		o.Help, nil, nil,
	)
}

func (b *Bridge) registerCounter(opts CounterOpts, c *AtomicCounter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counters = append(b.counters, boundCounter{desc: desc(opts.CommonOpts), c: c})
}

func (b *Bridge) registerGauge(opts GaugeOpts, g *AtomicGauge) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gauges = append(b.gauges, boundGauge{desc: desc(opts.CommonOpts), g: g})
}

func (b *Bridge) registerHistogram(opts HistogramOpts, h *AtomicHistogram) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.histograms = append(b.histograms, boundHistogram{desc: desc(opts.CommonOpts), h: h})
}

// Describe implements prometheus.Collector.
func (b *Bridge) Describe(ch chan<- *prometheus.Desc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.counters {
		ch <- c.desc
	}
	for _, g := range b.gauges {
		ch <- g.desc
	}
	for _, h := range b.histograms {
		ch <- h.desc
	}
}

// Collect implements prometheus.Collector, snapshotting every instrument
// without ever touching the Tracker's hot path (it only reads the atomics
// registered above).
func (b *Bridge) Collect(ch chan<- prometheus.Metric) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.counters {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, c.c.Value())
	}
	for _, g := range b.gauges {
		ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, g.g.Value())
	}
	for _, h := range b.histograms {
		bounds, cumulative, count, sum := h.h.Snapshot()
		buckets := make(map[float64]uint64, len(bounds))
		for i, bound := range bounds {
			buckets[bound] = cumulative[i]
		}
		ch <- prometheus.MustNewConstHistogram(h.desc, count, sum, buckets)
	}
}

var _ prometheus.Collector = (*Bridge)(nil)
