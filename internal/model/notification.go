package model

import "time"

// Notification is an entry in a user's in-app feed.
type Notification struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	UserID    string     `gorm:"index;size:36;not null" json:"userId"`
	Kind      string     `gorm:"size:64;not null" json:"kind"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Body      string     `gorm:"size:1000" json:"body"`
	SessionID *string    `gorm:"size:36" json:"sessionId,omitempty"`
	ReadAt    *time.Time `json:"readAt"`
	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
}
