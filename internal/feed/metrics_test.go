package feed

import (
	"testing"
	"time"
)

func TestFoldLatencyInitializesToFirstSample(t *testing.T) {
	got := foldLatency(0, 100*time.Millisecond, 0)
	if got != 100*time.Millisecond {
		t.Errorf("first sample = %v, want 100ms (no zero bias)", got)
	}
}

func TestFoldLatencySmoothing(t *testing.T) {
	// 0.8 × 100ms + 0.2 × 200ms = 120ms
	got := foldLatency(100*time.Millisecond, 200*time.Millisecond, 1)
	if got != 120*time.Millisecond {
		t.Errorf("smoothed latency = %v, want 120ms", got)
	}
}
