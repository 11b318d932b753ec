package hrclient

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricRequestSuccess)
	}
}

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricRequestSuccess)
		}
	})
}

func BenchmarkMetricsObserve(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Observe(MetricRequestLatency, time.Duration(i%300)*time.Millisecond)
	}
}

// BenchmarkSnapshotContended measures the credential lock under parallel readers.
func BenchmarkSnapshotContended(b *testing.B) {
	c, err := New().Build()
	if err != nil {
		b.Fatal(err)
	}
	defer c.Close()
	c.SetCredential("T1")
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = c.snapshot()
		}
	})
}

func BenchmarkDoAuthenticated(b *testing.B) {
	backend := newFakeBackend(b, "T1")

	c, err := New().WithBaseURL(backend.srv.URL).Build()
	if err != nil {
		b.Fatal(err)
	}
	defer c.Close()
	c.SetCredential("T1")

	ctx := context.Background()
	req := &Request{Method: http.MethodGet, Path: "/api/employees/1"}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := c.Do(ctx, req); err != nil {
			b.Fatal(err)
		}
	}
}
