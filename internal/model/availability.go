package model

import (
	"time"

	"gorm.io/datatypes"
)

// Availability is a tutor's weekly schedule document. Tutors append a new row
// on every change; the most recently created row is authoritative.
type Availability struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	TutorID   string         `gorm:"index;size:36;not null" json:"tutorId"`
	Days      datatypes.JSON `gorm:"not null" json:"days"`
	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
}
