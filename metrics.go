package tokenkit

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter or histogram.
type MetricID uint16

const (
	MetricIssueAccess MetricID = iota
	MetricIssueRefresh
	MetricIssueSliding
	MetricVerifySuccess
	MetricVerifyFailure
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshRotated
	MetricSlidingExtendSuccess
	MetricSlidingExtendFailure
	MetricRevokeSuccess
	MetricRevokeFailure
	MetricRejectMalformed
	MetricRejectBadSignature
	MetricRejectUnsupportedAlgorithm
	MetricRejectWrongType
	MetricRejectMissingClaim
	MetricRejectInvalidClaim
	MetricRejectExpired
	MetricRejectRefreshExpired
	MetricRejectRevoked
	MetricRejectRevocationUnavailable
	// MetricVerifyLatency is the only histogram.
	MetricVerifyLatency
	metricIDCount
)

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

// Metrics holds lock-free counters and the verify latency histogram.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metric values.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a metrics set from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether verify latency is observed.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricVerifyLatency is a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricVerifyLatency {
		return
	}
	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the latency histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
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
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}
	return s
}

// bucketIndex maps a verify latency onto upper bounds of
// 100µs, 250µs, 500µs, 1ms, 2.5ms, 5ms, 10ms and +Inf.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 100:
		return 0
	case us <= 250:
		return 1
	case us <= 500:
		return 2
	case us <= 1000:
		return 3
	case us <= 2500:
		return 4
	case us <= 5000:
		return 5
	case us <= 10000:
		return 6
	default:
		return 7
	}
}

func issueMetric(kind Kind) MetricID {
	switch kind {
	case KindRefresh:
		return MetricIssueRefresh
	case KindSliding:
		return MetricIssueSliding
	default:
		return MetricIssueAccess
	}
}

func rejectMetric(reason Reason) MetricID {
	switch reason {
	case ReasonBadSignature:
		return MetricRejectBadSignature
	case ReasonUnsupportedAlgorithm:
		return MetricRejectUnsupportedAlgorithm
	case ReasonWrongType:
		return MetricRejectWrongType
	case ReasonMissingClaim:
		return MetricRejectMissingClaim
	case ReasonInvalidClaim:
		return MetricRejectInvalidClaim
	case ReasonExpired:
		return MetricRejectExpired
	case ReasonRefreshExpired:
		return MetricRejectRefreshExpired
	case ReasonRevoked:
		return MetricRejectRevoked
	case ReasonRevocationUnavailable:
		return MetricRejectRevocationUnavailable
	default:
		return MetricRejectMalformed
	}
}
