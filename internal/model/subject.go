package model

// Subject is a course that tutors can teach.
type Subject struct {
	ID    string `gorm:"primaryKey;size:36" json:"id"`
	Code  string `gorm:"uniqueIndex;size:32;not null" json:"code"`
	Title string `gorm:"size:255;not null" json:"title"`
}

// TutorSubject links a tutor to a subject they teach.
type TutorSubject struct {
	TutorID   string `gorm:"primaryKey;size:36"`
	SubjectID string `gorm:"primaryKey;size:36;index"`
}
