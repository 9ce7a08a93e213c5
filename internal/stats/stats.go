package stats

import (
	"sync/atomic"
	"time"
)

// Metrics holds the process-wide benchmark counters. Each counter only ever
// grows; readers take non-destructive snapshots.
type Metrics struct {
	produced atomic.Uint64
	consumed atomic.Uint64
	errors   atomic.Uint64

	// Latency histograms (microseconds)
	SendLatency *SafeHistogram
	EndToEnd    *SafeHistogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		SendLatency: NewSafeHistogram(),
		EndToEnd:    NewSafeHistogram(),
	}
}

// IncProduced records one acknowledged send.
func (m *Metrics) IncProduced() { m.produced.Add(1) }

// IncConsumed records one received and validated message.
func (m *Metrics) IncConsumed() { m.consumed.Add(1) }

// IncErrors records one failed send, receive or decode.
func (m *Metrics) IncErrors() { m.errors.Add(1) }

func (m *Metrics) Produced() uint64 { return m.produced.Load() }
func (m *Metrics) Consumed() uint64 { return m.consumed.Load() }
func (m *Metrics) Errors() uint64   { return m.errors.Load() }

// Counters is a point-in-time copy of the three counters.
type Counters struct {
	Produced uint64
	Consumed uint64
	Errors   uint64
}

func (m *Metrics) Counters() Counters {
	return Counters{
		Produced: m.Produced(),
		Consumed: m.Consumed(),
		Errors:   m.Errors(),
	}
}

// Sub returns the per-counter delta c - prev. Counters never decrease, but a
// zero-valued prev from a fresh reporter is handled the same way.
func (c Counters) Sub(prev Counters) Counters {
	return Counters{
		Produced: saturatingSub(c.Produced, prev.Produced),
		Consumed: saturatingSub(c.Consumed, prev.Consumed),
		Errors:   saturatingSub(c.Errors, prev.Errors),
	}
}

// Rates converts a delta over elapsed into per-second rates.
type Rates struct {
	ProducedPerSec float64
	ConsumedPerSec float64
	ErrorsPerSec   float64
}

func (c Counters) PerSecond(elapsed time.Duration) Rates {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return Rates{}
	}
	return Rates{
		ProducedPerSec: float64(c.Produced) / secs,
		ConsumedPerSec: float64(c.Consumed) / secs,
		ErrorsPerSec:   float64(c.Errors) / secs,
	}
}

// ErrorRate is the share of failed events among all counted events, in percent.
func (c Counters) ErrorRate() float64 {
	total := c.Produced + c.Consumed + c.Errors
	if total == 0 {
		return 0
	}
	return (float64(c.Errors) / float64(total)) * 100
}

// Latencies are pre-calculated percentiles (ms) for cheap copying into UI
// snapshots.
type Latencies struct {
	P50Ms float64
	P90Ms float64
	P99Ms float64
	MaxMs float64
	Count int64
}

func (h *SafeHistogram) Latencies() Latencies {
	return Latencies{
		P50Ms: h.QuantileMs(50),
		P90Ms: h.QuantileMs(90),
		P99Ms: h.QuantileMs(99),
		MaxMs: h.MaxMs(),
		Count: h.TotalCount(),
	}
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}
