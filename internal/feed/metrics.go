package feed

import "time"

// Smoothing factors for the exponentially-weighted latency average.
const (
	ewmaNew      = 0.2
	ewmaRetained = 0.8
)

// Metrics is a read-only snapshot of connection counters.
type Metrics struct {
	MessagesReceived int64
	LastMessageAt    time.Time
	TotalReconnects  int
	AvgLatency       time.Duration
}

// foldLatency folds a new latency sample into the smoothed average. The
// average initializes to the first sample to avoid biasing early readings
// toward zero.
func foldLatency(current time.Duration, sample time.Duration, samples int64) time.Duration {
	if samples == 0 {
		return sample
	}
	return time.Duration(ewmaRetained*float64(current) + ewmaNew*float64(sample))
}
