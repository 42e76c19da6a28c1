package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/tokengate"
	"github.com/MrEthical07/tokengate/token"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot tokengate.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() tokengate.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := tokengate.MetricsSnapshot{
		Counters:   make(map[tokengate.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[tokengate.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

// collectInt64 returns every int64 data point keyed by "name" or "name{key=value}".
func collectInt64(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	out := map[string]int64{}
	add := func(name string, points []metricdata.DataPoint[int64]) {
		for _, dp := range points {
			key := name
			if dp.Attributes.Len() > 0 {
				kv := dp.Attributes.ToSlice()[0]
				key = name + "{" + string(kv.Key) + "=" + kv.Value.Emit() + "}"
			}
			out[key] = dp.Value
		}
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				add(m.Name, data.DataPoints)
			case metricdata.Gauge[int64]:
				add(m.Name, data.DataPoints)
			}
		}
	}
	return out
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("tokengate-test")

	src := &fakeSource{
		snapshot: tokengate.MetricsSnapshot{
			Counters: map[tokengate.MetricID]uint64{
				tokengate.MetricLoginSuccess:       3,
				tokengate.MetricLoginRateLimited:   1,
				tokengate.MetricVerifySuccess:      9,
				tokengate.MetricVerifyExpired:      2,
				tokengate.MetricVerifySignature:    4,
				tokengate.MetricAuthorizeForbidden: 5,
			},
			Histograms: map[tokengate.MetricID][]uint64{
				tokengate.MetricVerifyLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	got := collectInt64(t, reader)
	want := map[string]int64{
		"tokengate.login{outcome=success}":           3,
		"tokengate.login{outcome=failure}":           0,
		"tokengate.login{outcome=rate_limited}":      1,
		"tokengate.verify{result=ok}":                9,
		"tokengate.verify{result=expired}":           2,
		"tokengate.verify{result=invalid_signature}": 4,
		"tokengate.verify{result=format}":            0,
		"tokengate.authorize{outcome=forbidden}":     5,
		"tokengate.audit.dropped":                    1,
		"tokengate.verify.latency.bucket{le=50us}":   1,
		"tokengate.verify.latency.bucket{le=1ms}":    5,
		"tokengate.verify.latency.bucket{le=inf}":    8,
		"tokengate.verify.latency.count":             8,
	}
	for name, v := range want {
		value, ok := got[name]
		if !ok {
			t.Fatalf("%s: not collected", name)
		}
		if value != v {
			t.Fatalf("%s: expected %d, got %d", name, v, value)
		}
	}
}

func TestExporterVerifySeriesCoverEveryKind(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("tokengate-test")

	counters := map[tokengate.MetricID]uint64{}
	for id := tokengate.MetricID(0); int(id) < tokengate.MetricCount; id++ {
		counters[id] = 1
	}
	exp, err := NewExporterFromSource(meter, &fakeSource{snapshot: tokengate.MetricsSnapshot{Counters: counters}})
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	got := collectInt64(t, reader)
	for _, k := range token.Kinds {
		if got["tokengate.verify{result="+k.String()+"}"] != 1 {
			t.Fatalf("kind %s: expected one verify series", k)
		}
	}
	if _, ok := got["tokengate.verify.latency.count"]; ok {
		t.Fatal("expected no latency series without a histogram snapshot")
	}
}

func TestExporterSkipsCountersWhenMetricsDisabled(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("tokengate-test")

	exp, err := NewExporterFromSource(meter, &fakeSource{})
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	got := collectInt64(t, reader)
	if len(got) != 1 || got["tokengate.audit.dropped"] != 0 {
		t.Fatalf("expected only the audit dropped counter, got %v", got)
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReader()
	meter := provider.Meter("tokengate-test")

	if _, err := NewExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource for nil engine, got %v", err)
	}
	if _, err := NewExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("tokengate-test")

	src := &fakeSource{
		snapshot: tokengate.MetricsSnapshot{
			Counters: map[tokengate.MetricID]uint64{
				tokengate.MetricVerifySuccess: 1,
			},
			Histograms: map[tokengate.MetricID][]uint64{
				tokengate.MetricVerifyLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[tokengate.MetricVerifySuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
