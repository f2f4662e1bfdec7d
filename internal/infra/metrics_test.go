package infra

import (
	"testing"
)

func TestMetrics_RecordPulse(t *testing.T) {
	m := &Metrics{}

	m.RecordPulse(1000)
	m.RecordPulse(2000)
	m.RecordPulse(3000)

	snap := m.Snapshot()

	if snap.Pulses != 3 {
		t.Errorf("Expected 3 pulses, got %d", snap.Pulses)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgPulseNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgPulseNs)
	}
}

func TestMetrics_Monitors(t *testing.T) {
	m := &Metrics{}

	m.IncrementMonitors()
	m.IncrementMonitors()

	snap := m.Snapshot()
	if snap.ActiveMonitors != 2 {
		t.Errorf("Expected 2 monitors, got %d", snap.ActiveMonitors)
	}

	m.DecrementMonitors()
	snap = m.Snapshot()
	if snap.ActiveMonitors != 1 {
		t.Errorf("Expected 1 monitor, got %d", snap.ActiveMonitors)
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := &Metrics{}

	m.RecordFetchError()
	m.RecordParseError()
	m.RecordParseError()
	m.RecordOrderCached()
	m.RecordPrivateTrade()
	m.RecordDismissal()

	snap := m.Snapshot()
	if snap.FetchErrors != 1 || snap.ParseErrors != 2 || snap.OrdersCached != 1 {
		t.Errorf("unexpected counters: %+v", snap)
	}
	if snap.PrivateTrades != 1 || snap.Dismissals != 1 {
		t.Errorf("unexpected trade/dismissal counters: %+v", snap)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordPulse(500)
	m.RecordFetchError()
	m.IncrementMonitors()
	m.Reset()

	snap := m.Snapshot()
	if snap.Pulses != 0 || snap.FetchErrors != 0 || snap.ActiveMonitors != 0 {
		t.Errorf("Reset did not clear metrics: %+v", snap)
	}
}
