package parse

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for client timestamps, most specific first. Values without
// an offset are read in the caller's location.
var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Instant parses an ISO-8601 timestamp and returns it in UTC.
func Instant(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("timestamp is required")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q, use ISO-8601", raw)
}
