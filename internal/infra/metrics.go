package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	pulses        atomic.Uint64
	fetchErrors   atomic.Uint64
	parseErrors   atomic.Uint64
	ordersCached  atomic.Uint64
	privateTrades atomic.Uint64
	dismissals    atomic.Uint64

	// Latency tracking (pulse duration)
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeMonitors atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordPulse records one completed pulse with its duration.
func (m *Metrics) RecordPulse(latencyNs int64) {
	m.pulses.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordFetchError records a failed order-book download.
func (m *Metrics) RecordFetchError() {
	m.fetchErrors.Add(1)
}

// RecordParseError records a response that could not be deserialized.
func (m *Metrics) RecordParseError() {
	m.parseErrors.Add(1)
}

// RecordOrderCached records one order-book cache ingestion.
func (m *Metrics) RecordOrderCached() {
	m.ordersCached.Add(1)
}

// RecordPrivateTrade records a trade matched to a placed order.
func (m *Metrics) RecordPrivateTrade() {
	m.privateTrades.Add(1)
}

// RecordDismissal records an order-dismissed relay.
func (m *Metrics) RecordDismissal() {
	m.dismissals.Add(1)
}

// IncrementMonitors increments the active monitor gauge by 1.
func (m *Metrics) IncrementMonitors() {
	m.activeMonitors.Add(1)
}

// DecrementMonitors decrements the active monitor gauge by 1.
func (m *Metrics) DecrementMonitors() {
	m.activeMonitors.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Pulses         uint64
	FetchErrors    uint64
	ParseErrors    uint64
	OrdersCached   uint64
	PrivateTrades  uint64
	Dismissals     uint64
	AvgPulseNs     int64
	ActiveMonitors int32
	Timestamp      time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		Pulses:         m.pulses.Load(),
		FetchErrors:    m.fetchErrors.Load(),
		ParseErrors:    m.parseErrors.Load(),
		OrdersCached:   m.ordersCached.Load(),
		PrivateTrades:  m.privateTrades.Load(),
		Dismissals:     m.dismissals.Load(),
		AvgPulseNs:     avgLatency,
		ActiveMonitors: m.activeMonitors.Load(),
		Timestamp:      time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.pulses.Store(0)
	m.fetchErrors.Store(0)
	m.parseErrors.Store(0)
	m.ordersCached.Store(0)
	m.privateTrades.Store(0)
	m.dismissals.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeMonitors.Store(0)
}
