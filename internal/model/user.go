package model

import "time"

// Role is the coarse permission level of a user.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTutor   Role = "TUTOR"
	RoleAdmin   Role = "ADMIN"
)

// TutorStatus tracks a user's tutor application.
type TutorStatus string

const (
	TutorStatusNone     TutorStatus = "NONE"
	TutorStatusPending  TutorStatus = "PENDING"
	TutorStatusApproved TutorStatus = "APPROVED"
	TutorStatusRejected TutorStatus = "REJECTED"
)

// User is a campus member. Identity lives with the external provider; this row
// carries the marketplace state.
type User struct {
	ID            string      `gorm:"primaryKey;size:36" json:"id"`
	Email         string      `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name          string      `gorm:"size:255" json:"name"`
	Role          Role        `gorm:"size:16;not null;default:STUDENT" json:"role"`
	TutorStatus   TutorStatus `gorm:"size:16;not null;default:NONE" json:"tutorStatus"`
	IsVerified    bool        `gorm:"not null;default:false" json:"isVerified"`
	IsDeactivated bool        `gorm:"not null;default:false" json:"isDeactivated"`
	RatingAvg     float64     `gorm:"not null;default:0" json:"ratingAvg"`
	RatingCount   int         `gorm:"not null;default:0" json:"ratingCount"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// EligibleTutor reports whether the user may be booked or allocated as a tutor.
func (u *User) EligibleTutor() bool {
	return u.TutorStatus == TutorStatusApproved && u.IsVerified && !u.IsDeactivated
}
