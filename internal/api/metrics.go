package api

import (
	"sync"
	"time"
)

// Smoothing factors for the exponentially-weighted response time average.
const (
	ewmaNew      = 0.2
	ewmaRetained = 0.8
)

// Metrics is a read-only snapshot of request counters.
type Metrics struct {
	RequestCount    int64
	SuccessCount    int64
	ErrorCount      int64
	AvgResponseTime time.Duration
}

// requestMetrics tracks request counters. Mutated only by the owning client.
type requestMetrics struct {
	mu              sync.Mutex
	requestCount    int64
	successCount    int64
	errorCount      int64
	avgResponseTime time.Duration
	samples         int64
}

func (m *requestMetrics) recordStart() {
	m.mu.Lock()
	m.requestCount++
	m.mu.Unlock()
}

// recordSuccess folds the elapsed time into the smoothed average. The average
// initializes to the first sample rather than zero.
func (m *requestMetrics) recordSuccess(elapsed time.Duration) {
	m.mu.Lock()
	m.successCount++
	if m.samples == 0 {
		m.avgResponseTime = elapsed
	} else {
		m.avgResponseTime = time.Duration(
			ewmaRetained*float64(m.avgResponseTime) + ewmaNew*float64(elapsed))
	}
	m.samples++
	m.mu.Unlock()
}

func (m *requestMetrics) recordError() {
	m.mu.Lock()
	m.errorCount++
	m.mu.Unlock()
}

func (m *requestMetrics) snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Metrics{
		RequestCount:    m.requestCount,
		SuccessCount:    m.successCount,
		ErrorCount:      m.errorCount,
		AvgResponseTime: m.avgResponseTime,
	}
}

func (m *requestMetrics) reset() {
	m.mu.Lock()
	m.requestCount = 0
	m.successCount = 0
	m.errorCount = 0
	m.avgResponseTime = 0
	m.samples = 0
	m.mu.Unlock()
}
