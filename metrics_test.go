package fastauth

import (
	"sync"
	"testing"
)

func TestMetricsIncAndValue(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricRevoke)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("Value(MetricLoginSuccess) = %d, want 2", got)
	}
	if got := m.Value(MetricRevoke); got != 1 {
		t.Fatalf("Value(MetricRevoke) = %d, want 1", got)
	}
	if got := m.Value(MetricRefreshSuccess); got != 0 {
		t.Fatalf("Value(MetricRefreshSuccess) = %d, want 0", got)
	}
}

func TestMetricsDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("disabled metrics must not count, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("disabled snapshot must be empty, got %d entries", len(snap.Counters))
	}
}

func TestMetricsSnapshotIsCopy(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginFailure)

	snap := m.Snapshot()
	snap.Counters[MetricLoginFailure] = 99

	if got := m.Value(MetricLoginFailure); got != 1 {
		t.Fatalf("mutating a snapshot must not affect live counters, got %d", got)
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricIntrospectSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricIntrospectSuccess); got != workers*perWorker {
		t.Fatalf("Value = %d, want %d", got, workers*perWorker)
	}
}

func TestMetricsOutOfRangeID(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(metricIDCount)
	m.Inc(metricIDCount + 10)

	if got := m.Value(metricIDCount); got != 0 {
		t.Fatalf("out-of-range id must be ignored, got %d", got)
	}
}
