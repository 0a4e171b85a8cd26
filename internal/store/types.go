package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/Lingges1210/tutorlink-sub001/internal/model"
)

// Guard is the expected current state of a session row. UpdateSessionIf only
// writes when every set field still matches at the moment of the write.
type Guard struct {
	Statuses       []model.SessionStatus
	StudentID      string
	TutorID        string
	Unassigned     bool
	ProposalStatus model.ProposalStatus
}

func (g Guard) apply(q *gorm.DB) *gorm.DB {
	if len(g.Statuses) > 0 {
		q = q.Where("status IN ?", g.Statuses)
	}
	if g.StudentID != "" {
		q = q.Where("student_id = ?", g.StudentID)
	}
	if g.TutorID != "" {
		q = q.Where("tutor_id = ?", g.TutorID)
	}
	if g.Unassigned {
		q = q.Where("tutor_id IS NULL")
	}
	if g.ProposalStatus != "" {
		q = q.Where("proposal_status = ?", g.ProposalStatus)
	}
	return q
}

// SessionFilter narrows ListSessions.
type SessionFilter struct {
	StudentID string
	TutorID   string
	Statuses  []model.SessionStatus
	Limit     int
}

// Page is a newest-first cursor.
type Page struct {
	Before *time.Time
	Limit  int
}

func (p Page) limit(def, max int) int {
	switch {
	case p.Limit <= 0:
		return def
	case p.Limit > max:
		return max
	default:
		return p.Limit
	}
}
