package model

import "time"

// SessionStatus is the lifecycle state of a tutoring session.
type SessionStatus string

const (
	StatusPending   SessionStatus = "PENDING"
	StatusAccepted  SessionStatus = "ACCEPTED"
	StatusRejected  SessionStatus = "REJECTED"
	StatusCancelled SessionStatus = "CANCELLED"
	StatusCompleted SessionStatus = "COMPLETED"
)

// ActiveStatuses occupy time on a calendar.
var ActiveStatuses = []SessionStatus{StatusPending, StatusAccepted}

// Closed reports whether no further cancel, reschedule or proposal is allowed.
func (s SessionStatus) Closed() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Terminal reports whether the status can never change again.
func (s SessionStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusCompleted
}

// ProposalStatus is the state of a tutor's reschedule proposal.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "PENDING"
	ProposalAccepted ProposalStatus = "ACCEPTED"
	ProposalRejected ProposalStatus = "REJECTED"
)

// Session is a tutoring engagement between a student and (eventually) a tutor.
type Session struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	StudentID   string        `gorm:"index;size:36;not null" json:"studentId"`
	TutorID     *string       `gorm:"index;size:36" json:"tutorId"`
	SubjectID   string        `gorm:"index;size:36;not null" json:"subjectId"`
	ScheduledAt time.Time     `gorm:"index;not null" json:"scheduledAt"`
	DurationMin int           `gorm:"not null;default:60" json:"durationMin"`
	EndsAt      *time.Time    `gorm:"index" json:"endsAt"`
	Status      SessionStatus `gorm:"index;size:16;not null" json:"status"`
	Note        string        `gorm:"size:1000" json:"note,omitempty"`

	ProposedAt       *time.Time      `json:"proposedAt,omitempty"`
	ProposedEndAt    *time.Time      `json:"proposedEndAt,omitempty"`
	ProposedNote     *string         `gorm:"size:500" json:"proposedNote,omitempty"`
	ProposalStatus   *ProposalStatus `gorm:"size:16" json:"proposalStatus,omitempty"`
	ProposedByUserID *string         `gorm:"size:36" json:"proposedByUserId,omitempty"`

	AcceptedAt     *time.Time `json:"acceptedAt,omitempty"`
	RejectedReason *string    `gorm:"size:500" json:"rejectedReason,omitempty"`
	CancelledAt    *time.Time `json:"cancelledAt,omitempty"`
	CancelReason   *string    `gorm:"size:500" json:"cancelReason,omitempty"`
	CancelledBy    *string    `gorm:"size:36" json:"cancelledBy,omitempty"`
	RescheduledAt  *time.Time `json:"rescheduledAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`

	CalendarUID            string  `gorm:"size:128;not null" json:"-"`
	CalendarSequence       int     `gorm:"not null;default:0" json:"-"`
	StudentReminderEmailID *string `gorm:"size:128" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Subject *Subject `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
}

// End returns the effective end of the session. Rows without a persisted end
// fall back to start + duration.
func (s *Session) End() time.Time {
	if s.EndsAt != nil {
		return *s.EndsAt
	}
	return s.ScheduledAt.Add(time.Duration(s.DurationMin) * time.Minute)
}

// HasTutor reports whether a tutor has been assigned.
func (s *Session) HasTutor() bool {
	return s.TutorID != nil && *s.TutorID != ""
}

// IsTutor reports whether userID is the assigned tutor.
func (s *Session) IsTutor(userID string) bool {
	return s.HasTutor() && *s.TutorID == userID
}

// SessionRating is a student's one-time rating and review of a completed session.
type SessionRating struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID string    `gorm:"uniqueIndex;size:36;not null" json:"sessionId"`
	StudentID string    `gorm:"index;size:36;not null" json:"studentId"`
	TutorID   string    `gorm:"index;size:36;not null" json:"tutorId"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"size:500" json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
