package model

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Subject{},
		&TutorSubject{},
		&Availability{},
		&Session{},
		&SessionRating{},
		&ChatChannel{},
		&ChatMessage{},
		&Notification{},
		&PushSubscription{},
	}
}
