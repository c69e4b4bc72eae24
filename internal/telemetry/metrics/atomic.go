package metrics

import (
	"context"
	"math"
	"sync/atomic"
)

// AtomicCounter is a lock-free Counter backed by a float64 encoded as
// bits in a uint64, CAS-looped on update. It never allocates and never
// blocks, satisfying the §6 "no locks on the hot path" requirement for
// events-processed / per-event-type / gate-command-issued / gate-command-
// dropped / stitch-success / stitch-expired / payment-matched /
// payment-unmatched counters.
type AtomicCounter struct{ bits atomic.Uint64 }

func (c *AtomicCounter) Inc(delta float64) {
	for {
		old := c.bits.Load()
		next := math.Float64frombits(old) + delta
		if c.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return
		}
	}
}

// Value returns the current counter value.
func (c *AtomicCounter) Value() float64 { return math.Float64frombits(c.bits.Load()) }

// AtomicGauge is a lock-free Gauge, used for active-persons and
// authorized-persons.
type AtomicGauge struct{ bits atomic.Uint64 }

func (g *AtomicGauge) Set(v float64) { g.bits.Store(math.Float64bits(v)) }

func (g *AtomicGauge) Add(delta float64) {
	for {
		old := g.bits.Load()
		next := math.Float64frombits(old) + delta
		if g.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return
		}
	}
}

func (g *AtomicGauge) Value() float64 { return math.Float64frombits(g.bits.Load()) }

// AtomicHistogram is a fixed-bucket, lock-free histogram: one atomic
// counter per bucket plus an atomic sum and count. The tracker uses it for
// its gate-command latency histogram.
type AtomicHistogram struct {
	bounds  []float64
	buckets []atomic.Uint64
	count   atomic.Uint64
	sumBits atomic.Uint64
}

// NewAtomicHistogram builds a histogram with the given upper bucket
// bounds (exclusive of +Inf, which is added implicitly).
func NewAtomicHistogram(bounds []float64) *AtomicHistogram {
	h := &AtomicHistogram{bounds: append([]float64(nil), bounds...)}
	h.buckets = make([]atomic.Uint64, len(bounds)+1)
	return h
}

func (h *AtomicHistogram) Observe(v float64) {
	idx := len(h.bounds)
	for i, bound := range h.bounds {
		if v <= bound {
			idx = i
			break
		}
	}
	h.buckets[idx].Add(1)
	h.count.Add(1)
	for {
		old := h.sumBits.Load()
		next := math.Float64frombits(old) + v
		if h.sumBits.CompareAndSwap(old, math.Float64bits(next)) {
			return
		}
	}
}

// Snapshot returns cumulative bucket counts (Prometheus convention: each
// bucket count includes all smaller buckets), the total count, and the sum.
func (h *AtomicHistogram) Snapshot() (boundsWithInf []float64, cumulative []uint64, count uint64, sum float64) {
	boundsWithInf = append(append([]float64(nil), h.bounds...), math.Inf(1))
	cumulative = make([]uint64, len(h.buckets))
	var running uint64
	for i := range h.buckets {
		running += h.buckets[i].Load()
		cumulative[i] = running
	}
	return boundsWithInf, cumulative, h.count.Load(), math.Float64frombits(h.sumBits.Load())
}

// atomicProvider is a Provider whose instruments are all lock-free and
// additionally registered with a prometheus.Registry via Bridge (see
// prometheus.go), so the pull endpoint (external, per spec.md §1) has
// something real to scrape without the Tracker itself depending on HTTP.
type atomicProvider struct {
	bridge *Bridge
}

// NewAtomicProvider returns a Provider whose Counter/Gauge/Histogram
// instruments are the lock-free types above, mirrored into bridge (nil is
// accepted: instruments are created but not exported).
func NewAtomicProvider(bridge *Bridge) Provider {
	return &atomicProvider{bridge: bridge}
}

func (p *atomicProvider) NewCounter(opts CounterOpts) Counter {
	c := &AtomicCounter{}
	if p.bridge != nil {
		p.bridge.registerCounter(opts, c)
	}
	return c
}

func (p *atomicProvider) NewGauge(opts GaugeOpts) Gauge {
	g := &AtomicGauge{}
	if p.bridge != nil {
		p.bridge.registerGauge(opts, g)
	}
	return g
}

func (p *atomicProvider) NewHistogram(opts HistogramOpts) Histogram {
	buckets := opts.Buckets
	if len(buckets) == 0 {
		// latency in microseconds: sub-ms contract, so
		// buckets concentrate below 1000us with a long tail for outliers.
		buckets = []float64{50, 100, 250, 500, 750, 1000, 2500, 5000, 10000}
	}
	h := NewAtomicHistogram(buckets)
	if p.bridge != nil {
		p.bridge.registerHistogram(opts, h)
	}
	return h
}

func (p *atomicProvider) Health(context.Context) error { return nil }
