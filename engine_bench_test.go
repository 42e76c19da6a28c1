package tokengate

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/tokengate/credential"
)

func newBenchmarkEngine(b *testing.B) *Engine {
	b.Helper()

	cfg := testConfig(b)
	engine, err := New().
		WithConfig(cfg).
		WithRepository(credential.NewMemoryRepository()).
		WithClock(func() time.Time { return time.Unix(1000, 0) }).
		Build()
	if err != nil {
		b.Fatalf("build: %v", err)
	}
	b.Cleanup(engine.Close)
	return engine
}

func BenchmarkIssueToken(b *testing.B) {
	engine := newBenchmarkEngine(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.IssueToken(ctx, "alice", "user"); err != nil {
			b.Fatalf("issue failed: %v", err)
		}
	}
}

func BenchmarkAuthenticate(b *testing.B) {
	engine := newBenchmarkEngine(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Authenticate(ctx, scenarioToken); err != nil {
			b.Fatalf("authenticate failed: %v", err)
		}
	}
}

func BenchmarkAuthenticateParallel(b *testing.B) {
	engine := newBenchmarkEngine(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := engine.Authenticate(ctx, scenarioToken); err != nil {
				b.Errorf("authenticate failed: %v", err)
				return
			}
		}
	})
}

func BenchmarkAuthenticateBadSignature(b *testing.B) {
	engine := newBenchmarkEngine(b)
	ctx := context.Background()
	tampered := scenarioToken[:len(scenarioToken)-2] + "AA"

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Authenticate(ctx, tampered); err == nil {
			b.Fatal("expected tampered token to fail")
		}
	}
}

func BenchmarkAuthorize(b *testing.B) {
	engine := newBenchmarkEngine(b)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Authorize(ctx, scenarioToken, "user"); err != nil {
			b.Fatalf("authorize failed: %v", err)
		}
	}
}

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricVerifySuccess)
	}
}

func BenchmarkMetricsObserveParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricVerifyLatency, 300*time.Microsecond)
		}
	})
}
