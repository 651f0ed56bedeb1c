// Package reading holds the normalized sensor value shape shared by the
// realtime feed and the polling API client.
package reading

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Reading is a single normalized LDR sample. Both the WebSocket feed and the
// REST client produce it from their respective wire payloads; it is always
// passed by value.
type Reading struct {
	Value     int    `json:"value"`
	Timestamp string `json:"timestamp"`
	RawSource string `json:"raw_data,omitempty"`
}

// Stats mirrors the backend /api/stats payload.
type Stats struct {
	TotalReadings int     `json:"total_readings"`
	MinValue      *int    `json:"min_value"`
	MaxValue      *int    `json:"max_value"`
	AvgValue      float64 `json:"avg_value"`
	FirstReading  string  `json:"first_reading"`
	LastReading   string  `json:"last_reading"`
}

// valueMarker prefixes raw sensor frames sent by the microcontroller
// ("LDR=742"). The backend sometimes forwards them verbatim instead of the
// decoded integer.
const valueMarker = "LDR="

// DecodeString extracts an integer reading from a raw string value.
// "LDR=742" decodes to 742, "999" decodes to 999, anything else to 0.
func DecodeString(raw string) int {
	s := strings.TrimSpace(raw)

	if i := strings.Index(s, valueMarker); i >= 0 {
		s = s[i+len(valueMarker):]
		// Keep only the leading digit run; some firmwares append units.
		end := 0
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
		s = s[:end]
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

// DecodeValue decodes a raw JSON value field to an integer reading. The
// backend emits either a plain number or a string embedding the value.
func DecodeValue(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return DecodeString(s)
	}

	return 0
}
