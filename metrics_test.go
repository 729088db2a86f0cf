package cineauth

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsIncAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLogout)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("expected counter 2, got %d", got)
	}

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != 2 || snap.Counters[MetricLogout] != 1 {
		t.Fatalf("unexpected snapshot: %v", snap.Counters)
	}
	if snap.Counters[MetricLoginFailure] != 0 {
		t.Fatalf("expected untouched counter at zero, got %d", snap.Counters[MetricLoginFailure])
	}
}

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{})

	m.Inc(MetricLoginSuccess)
	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected disabled metrics to stay at zero, got %d", got)
	}

	snap := m.Snapshot()
	if len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Counters)
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics

	m.Inc(MetricLoginSuccess)
	m.Observe(MetricValidateLatency, time.Millisecond)
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("nil metrics must read zero")
	}
}

func TestMetricsLatencyHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(MetricValidateLatency, 2*time.Millisecond)
	m.Observe(MetricValidateLatency, 30*time.Millisecond)
	m.Observe(MetricValidateLatency, time.Second)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricValidateLatency]
	if len(buckets) != histBucketCount {
		t.Fatalf("expected %d buckets, got %d", histBucketCount, len(buckets))
	}
	if buckets[0] != 1 || buckets[2] != 1 || buckets[7] != 1 {
		t.Fatalf("unexpected bucket distribution: %v", buckets)
	}
}

func TestMetricsLatencyDisabledByDefault(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Observe(MetricValidateLatency, time.Millisecond)

	snap := m.Snapshot()
	if len(snap.Histograms) != 0 {
		t.Fatalf("expected no histograms without latency opt-in, got %v", snap.Histograms)
	}
}

func TestBucketIndexBoundaries(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{5 * time.Millisecond, 0},
		{6 * time.Millisecond, 1},
		{10 * time.Millisecond, 1},
		{25 * time.Millisecond, 2},
		{50 * time.Millisecond, 3},
		{100 * time.Millisecond, 4},
		{250 * time.Millisecond, 5},
		{500 * time.Millisecond, 6},
		{501 * time.Millisecond, 7},
		{time.Minute, 7},
	}

	for _, tt := range tests {
		if got := bucketIndex(tt.d); got != tt.want {
			t.Fatalf("bucketIndex(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricLoginSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricLoginSuccess); got != workers*perWorker {
		t.Fatalf("expected %d increments, got %d", workers*perWorker, got)
	}
}
