package exporter

import (
	"time"

	"purepresenter/internal/license"
)

// formatDate renders a date column; the zero time is left blank
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(license.DateLayout)
}

// formatTimestamp renders an RFC 3339 timestamp in UTC
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
