package archive

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ldrmon/ldrmon/internal/reading"
)

func openTestStore(t *testing.T, maxRecords int) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "archive.sqlite"), maxRecords)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLatest(t *testing.T) {
	s := openTestStore(t, 0)

	latest, err := s.Latest()
	if err != nil {
		t.Fatalf("Latest on empty archive: %v", err)
	}
	if latest != nil {
		t.Fatalf("empty archive returned %+v", latest)
	}

	for i, v := range []int{100, 200, 300} {
		r := reading.Reading{Value: v, Timestamp: fmt.Sprintf("2026-08-30T10:00:0%d", i), RawSource: "LDR=x"}
		if err := s.Save(r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	latest, err = s.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.Value != 300 {
		t.Errorf("Latest = %+v, want value 300", latest)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	s := openTestStore(t, 0)

	for i := 1; i <= 5; i++ {
		s.Save(reading.Reading{Value: i * 10, Timestamp: fmt.Sprintf("t%d", i)})
	}

	history, err := s.History(3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("History returned %d rows, want 3", len(history))
	}
	if history[0].Value != 50 || history[2].Value != 30 {
		t.Errorf("history order = %+v, want newest first", history)
	}
}

func TestRollingCleanup(t *testing.T) {
	s := openTestStore(t, 10)

	for i := 0; i < 25; i++ {
		s.Save(reading.Reading{Value: i, Timestamp: fmt.Sprintf("t%d", i)})
	}

	history, err := s.History(100)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 10 {
		t.Errorf("archive holds %d rows, want the rolling window of 10", len(history))
	}
	if history[0].Value != 24 {
		t.Errorf("newest value = %d, want 24 (oldest rows trimmed)", history[0].Value)
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t, 0)

	empty, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats on empty archive: %v", err)
	}
	if empty.TotalReadings != 0 || empty.MinValue != nil {
		t.Errorf("empty stats = %+v", empty)
	}

	for _, v := range []int{10, 20, 60} {
		s.Save(reading.Reading{Value: v, Timestamp: "t"})
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalReadings != 3 {
		t.Errorf("TotalReadings = %d, want 3", stats.TotalReadings)
	}
	if stats.MinValue == nil || *stats.MinValue != 10 {
		t.Errorf("MinValue = %v, want 10", stats.MinValue)
	}
	if stats.MaxValue == nil || *stats.MaxValue != 60 {
		t.Errorf("MaxValue = %v, want 60", stats.MaxValue)
	}
	if stats.AvgValue != 30 {
		t.Errorf("AvgValue = %v, want 30", stats.AvgValue)
	}
}

func TestClear(t *testing.T) {
	s := openTestStore(t, 0)

	s.Save(reading.Reading{Value: 1, Timestamp: "t"})
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	latest, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if latest != nil {
		t.Errorf("archive not empty after Clear: %+v", latest)
	}
}
