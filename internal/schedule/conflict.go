// Package schedule holds the pure time rules of the booking engine: interval
// overlap between bookings and containment in a tutor's weekly availability.
package schedule

import (
	"time"

	"github.com/Lingges1210/tutorlink-sub001/internal/model"
)

// Booking is the slice of a session that matters for overlap checks.
// A nil End marks a legacy row whose end is unknown; it conflicts with everything.
type Booking struct {
	ID     string
	Start  time.Time
	End    *time.Time
	Status model.SessionStatus
}

// FromSession projects a session onto a Booking.
func FromSession(s *model.Session) Booking {
	return Booking{ID: s.ID, Start: s.ScheduledAt, End: s.EndsAt, Status: s.Status}
}

// Overlaps applies the half-open rule: [s1,e1) and [s2,e2) conflict iff
// s1 < e2 and e1 > s2. Touching edges do not conflict.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// Occupies reports whether a session in this status holds its time slot.
func Occupies(status model.SessionStatus) bool {
	return status == model.StatusPending || status == model.StatusAccepted
}

// Conflicts reports whether b blocks the window [start, end).
func (b Booking) Conflicts(start, end time.Time) bool {
	if !Occupies(b.Status) {
		return false
	}
	if b.End == nil {
		return true
	}
	return Overlaps(b.Start, *b.End, start, end)
}

// HasConflict reports whether any existing booking blocks [start, end).
func HasConflict(existing []Booking, start, end time.Time) bool {
	for _, b := range existing {
		if b.Conflicts(start, end) {
			return true
		}
	}
	return false
}
