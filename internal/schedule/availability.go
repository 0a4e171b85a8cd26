package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/Lingges1210/tutorlink-sub001/internal/parse"
)

// DaysPerWeek is the number of day records a weekly document must carry.
const DaysPerWeek = 7

var dayNames = [DaysPerWeek]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

// Slot is a same-day open window, as stored ("HH:MM").
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DayRecord is one day of the weekly document.
type DayRecord struct {
	Day   string `json:"day,omitempty"`
	Off   bool   `json:"off"`
	Slots []Slot `json:"slots"`
}

// Span is a parsed slot in minutes since midnight.
type Span struct {
	Start int
	End   int
}

// Day is a parsed day record.
type Day struct {
	Off   bool
	Spans []Span
}

// Week is a parsed availability document indexed by time.Weekday.
type Week [DaysPerWeek]Day

// ErrMalformed is returned for any availability document that cannot be used.
var ErrMalformed = errors.New("malformed availability")

// DayName returns the three-letter key for a weekday.
func DayName(d time.Weekday) string {
	return dayNames[d]
}

func dayIndex(name string) (int, bool) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for i, d := range dayNames {
		if d == n {
			return i, true
		}
	}
	return 0, false
}

// ParseWeek decodes and validates a weekly availability document. Records are
// placed by their "day" key when present, otherwise by position (Sunday first).
func ParseWeek(doc []byte) (Week, error) {
	var records []DayRecord
	if err := json.Unmarshal(doc, &records); err != nil {
		return Week{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return BuildWeek(records)
}

// BuildWeek validates already-decoded day records.
func BuildWeek(records []DayRecord) (Week, error) {
	var week Week
	if len(records) != DaysPerWeek {
		return week, fmt.Errorf("%w: expected %d day records, got %d", ErrMalformed, DaysPerWeek, len(records))
	}

	var seen [DaysPerWeek]bool
	for i, rec := range records {
		idx := i
		if rec.Day != "" {
			var ok bool
			if idx, ok = dayIndex(rec.Day); !ok {
				return week, fmt.Errorf("%w: unknown day %q", ErrMalformed, rec.Day)
			}
		}
		if seen[idx] {
			return week, fmt.Errorf("%w: duplicate day %s", ErrMalformed, dayNames[idx])
		}
		seen[idx] = true

		day := Day{Off: rec.Off}
		for _, slot := range rec.Slots {
			start, err := parse.Clock(slot.Start)
			if err != nil {
				return week, fmt.Errorf("%w: %s: %v", ErrMalformed, dayNames[idx], err)
			}
			end, err := parse.Clock(slot.End)
			if err != nil {
				return week, fmt.Errorf("%w: %s: %v", ErrMalformed, dayNames[idx], err)
			}
			if start >= end {
				return week, fmt.Errorf("%w: %s: slot %s-%s ends before it starts", ErrMalformed, dayNames[idx], slot.Start, slot.End)
			}
			day.Spans = append(day.Spans, Span{Start: start, End: end})
		}
		week[idx] = day
	}
	return week, nil
}

// Contains reports whether [start, end) falls entirely inside one open slot
// on the weekday of start, evaluated in loc. Windows crossing midnight never match.
func (w Week) Contains(start, end time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	ls, le := start.In(loc), end.In(loc)
	if !ls.Before(le) {
		return false
	}
	if ls.Weekday() != le.Weekday() || ls.YearDay() != le.YearDay() {
		return false
	}

	day := w[ls.Weekday()]
	if day.Off || len(day.Spans) == 0 {
		return false
	}

	from := ls.Hour()*60 + ls.Minute()
	to := le.Hour()*60 + le.Minute()
	if le.Second() > 0 || le.Nanosecond() > 0 {
		to++
	}
	for _, span := range day.Spans {
		if span.Start <= from && to <= span.End {
			return true
		}
	}
	return false
}

// IsWithinAvailability reports whether the raw document admits [start, end).
// Any parse failure counts as unavailable.
func IsWithinAvailability(doc []byte, start, end time.Time, loc *time.Location) bool {
	week, err := ParseWeek(doc)
	if err != nil {
		return false
	}
	return week.Contains(start, end, loc)
}
