package model

import "time"

// ChatChannel is the message thread between a session's student and tutor.
// A channel with CloseAt in the past is closed even though the row persists.
type ChatChannel struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	SessionID     string     `gorm:"uniqueIndex;size:36;not null" json:"sessionId"`
	StudentID     string     `gorm:"index;size:36;not null" json:"studentId"`
	TutorID       string     `gorm:"index;size:36;not null" json:"tutorId"`
	CloseAt       *time.Time `json:"closeAt"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
	StudentReadAt *time.Time `json:"-"`
	TutorReadAt   *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ClosedAt reports whether the channel is closed at now.
func (c *ChatChannel) ClosedAt(now time.Time) bool {
	return c.CloseAt != nil && !c.CloseAt.After(now)
}

// Member reports whether userID is one of the two parties.
func (c *ChatChannel) Member(userID string) bool {
	return c.StudentID == userID || c.TutorID == userID
}

// ChatMessage is a single message in a channel.
type ChatMessage struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ChannelID string    `gorm:"index;size:36;not null" json:"channelId"`
	SenderID  string    `gorm:"size:36;not null" json:"senderId"`
	Body      string    `gorm:"size:2000;not null" json:"body"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}
