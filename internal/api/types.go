package api

import (
	"encoding/json"

	"github.com/ldrmon/ldrmon/internal/reading"
)

// Backend resource paths.
const (
	pathHealth  = "/api/health"
	pathLatest  = "/api/latest"
	pathHistory = "/api/history"
	pathStats   = "/api/stats"
)

// envelope is the backend response wrapper shared by all resources.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// HealthInfo mirrors the /api/health payload. The backend reports these
// fields at the top level of the envelope.
type HealthInfo struct {
	Status        string   `json:"status"`
	Service       string   `json:"service"`
	TotalReadings int      `json:"total_readings"`
	Endpoints     []string `json:"endpoints"`
}

// wireReading is a single history/latest record as the backend encodes it.
// The value field is either a plain number or a raw string like "LDR=123".
type wireReading struct {
	Value     json.RawMessage `json:"value"`
	Timestamp string          `json:"timestamp"`
	RawData   string          `json:"raw_data"`
}

func (w wireReading) normalize() reading.Reading {
	return reading.Reading{
		Value:     reading.DecodeValue(w.Value),
		Timestamp: w.Timestamp,
		RawSource: w.RawData,
	}
}

// CompleteData aggregates the latest reading, stats and history. Failed slots
// are nil/empty, with one description per failure in Errors; the aggregate
// fetch itself never fails.
type CompleteData struct {
	Latest  *reading.Reading
	Stats   *reading.Stats
	History []reading.Reading
	Errors  []string
}

// HealthStatus classifies overall backend reachability.
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusDegraded HealthStatus = "degraded"
	StatusDown     HealthStatus = "down"
)

// ResourceStatus reports reachability of one logical resource.
type ResourceStatus struct {
	Resource  string
	Available bool
	Error     string
}

// DiagnosticsReport is the result of probing every configured resource.
type DiagnosticsReport struct {
	Overall      HealthStatus
	Resources    []ResourceStatus
	Availability float64 // percentage of reachable resources
}
