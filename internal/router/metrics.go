package router

import (
	"sync/atomic"
	"time"
)

// metricsState holds the process-scoped counters behind atomics rather
// than a global package variable + mutex, per spec.md §9's "global mutable
// singletons map to a process-scoped state object passed explicitly" —
// Metrics is constructed once in New and threaded through the Router, not
// a package-level var.
type metricsState struct {
	total      int64
	successful int64
	failed     int64
	totalNanos int64
}

func (m *Metrics) recordSuccess(d time.Duration) {
	atomic.AddInt64(&m.state.total, 1)
	atomic.AddInt64(&m.state.successful, 1)
	atomic.AddInt64(&m.state.totalNanos, d.Nanoseconds())
}

func (m *Metrics) recordFailure(d time.Duration) {
	atomic.AddInt64(&m.state.total, 1)
	atomic.AddInt64(&m.state.failed, 1)
	atomic.AddInt64(&m.state.totalNanos, d.Nanoseconds())
}

// Snapshot is the /metrics endpoint's JSON shape (spec.md §6).
type Snapshot struct {
	TotalRequests         int64   `json:"totalRequests"`
	SuccessfulRequests    int64   `json:"successfulRequests"`
	FailedRequests        int64   `json:"failedRequests"`
	AverageResponseTimeMs float64 `json:"averageResponseTimeMs"`
}

// Snapshot reads a consistent-enough point-in-time view of the counters.
// Individual atomic loads can interleave with concurrent increments, which
// is acceptable here: spec.md treats metrics as approximate monitoring
// output, not a transactional ledger.
func (m *Metrics) Snapshot() Snapshot {
	total := atomic.LoadInt64(&m.state.total)
	successful := atomic.LoadInt64(&m.state.successful)
	failed := atomic.LoadInt64(&m.state.failed)
	nanos := atomic.LoadInt64(&m.state.totalNanos)

	var avgMs float64
	if total > 0 {
		avgMs = float64(nanos) / float64(total) / float64(time.Millisecond)
	}

	return Snapshot{
		TotalRequests:         total,
		SuccessfulRequests:    successful,
		FailedRequests:        failed,
		AverageResponseTimeMs: avgMs,
	}
}
