package exporter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{"zero value", time.Time{}, ""},
		{"local date", time.Date(2027, 1, 5, 23, 59, 59, 0, time.Local), "2027-01-05"},
		{"utc date", time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), "2026-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatDate(tt.input))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "", formatTimestamp(time.Time{}))

	plus3 := time.FixedZone("AST", 3*60*60)
	assert.Equal(t, "2026-10-17T07:00:00Z", formatTimestamp(time.Date(2026, 10, 17, 10, 0, 0, 0, plus3)))
}

func TestFormatBool(t *testing.T) {
	assert.Equal(t, "yes", formatBool(true))
	assert.Equal(t, "no", formatBool(false))
}
