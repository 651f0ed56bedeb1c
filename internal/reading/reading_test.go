package reading

import (
	"encoding/json"
	"testing"
)

func TestDecodeString(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected int
	}{
		{name: "marker/plain", raw: "LDR=742", expected: 742},
		{name: "marker/zero", raw: "LDR=0", expected: 0},
		{name: "marker/trailing_unit", raw: "LDR=512lux", expected: 512},
		{name: "marker/embedded", raw: "sensor LDR=33", expected: 33},
		{name: "marker/no_digits", raw: "LDR=", expected: 0},
		{name: "bare/number", raw: "999", expected: 999},
		{name: "bare/whitespace", raw: "  120 ", expected: 120},
		{name: "bad/non_numeric", raw: "hello", expected: 0},
		{name: "bad/empty", raw: "", expected: 0},
		{name: "bad/float", raw: "12.5", expected: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DecodeString(tc.raw); got != tc.expected {
				t.Errorf("DecodeString(%q) = %d, want %d", tc.raw, got, tc.expected)
			}
		})
	}
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected int
	}{
		{name: "json_number", raw: `742`, expected: 742},
		{name: "json_number_float", raw: `742.8`, expected: 742},
		{name: "json_string_marker", raw: `"LDR=123"`, expected: 123},
		{name: "json_string_number", raw: `"999"`, expected: 999},
		{name: "json_string_garbage", raw: `"n/a"`, expected: 0},
		{name: "json_null", raw: `null`, expected: 0},
		{name: "json_object", raw: `{"v":1}`, expected: 0},
		{name: "empty", raw: ``, expected: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DecodeValue(json.RawMessage(tc.raw)); got != tc.expected {
				t.Errorf("DecodeValue(%s) = %d, want %d", tc.raw, got, tc.expected)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		value    int
		expected Band
	}{
		{0, BandDark},
		{299, BandDark},
		{300, BandDim},
		{699, BandDim},
		{700, BandBright},
		{1023, BandBright},
	}

	for _, tc := range tests {
		if got := Classify(tc.value); got != tc.expected {
			t.Errorf("Classify(%d) = %q, want %q", tc.value, got, tc.expected)
		}
	}
}
