package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// MinutesPerDay is the value of the "24:00" end-of-day marker.
const MinutesPerDay = 24 * 60

// Clock parses a same-day time of day in "HH:MM" form and returns minutes
// since midnight. "24:00" is accepted as 1440 so a slot can end at midnight.
func Clock(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour == 24 && minute == 0 {
		return MinutesPerDay, nil
	}
	if hour > 23 || minute > 59 {
		return 0, fmt.Errorf("time of day %q out of range", raw)
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
