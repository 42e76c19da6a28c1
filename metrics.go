package tokengate

import (
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tokengate/token"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	MetricIssueSuccess MetricID = iota
	MetricIssueFailure
	MetricRegisterSuccess
	MetricRegisterDuplicate
	MetricRegisterFailure
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginRateLimited
	MetricVerifySuccess
	MetricVerifyFormat
	MetricVerifyDecode
	MetricVerifyAlgorithm
	MetricVerifySignature
	MetricVerifyMissingClaim
	MetricVerifyExpired
	MetricAuthorizeSuccess
	MetricAuthorizeForbidden
	// MetricVerifyLatency is the only histogram.
	MetricVerifyLatency
	metricIDCount
)

// MetricCount is the number of defined MetricIDs.
const MetricCount = int(metricIDCount)

// HistogramBucketsMicros are the inclusive upper bounds of the first seven latency
// buckets, in microseconds. The eighth bucket is unbounded.
var HistogramBucketsMicros = [histBucketCount - 1]int64{50, 100, 250, 500, 1000, 5000, 25000}

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free engine counters. A nil *Metrics records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histogram     metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the verify latency histogram. Other IDs are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricVerifyLatency {
		return
	}
	atomic.AddUint64(&m.histogram.buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, MetricCount),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricVerifyLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histogram.buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}
	return s
}

// verifyFailureMetric maps a verification failure kind to its counter.
func verifyFailureMetric(kind token.Kind) (MetricID, bool) {
	switch kind {
	case token.KindFormat:
		return MetricVerifyFormat, true
	case token.KindDecode:
		return MetricVerifyDecode, true
	case token.KindAlgorithm:
		return MetricVerifyAlgorithm, true
	case token.KindSignature:
		return MetricVerifySignature, true
	case token.KindMissingClaim:
		return MetricVerifyMissingClaim, true
	case token.KindExpired:
		return MetricVerifyExpired, true
	}
	return 0, false
}

func bucketIndex(d time.Duration) int {
	us := d.Microseconds()
	for i, bound := range HistogramBucketsMicros {
		if us <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
