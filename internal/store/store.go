package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Lingges1210/tutorlink-sub001/internal/model"
	"github.com/Lingges1210/tutorlink-sub001/internal/schedule"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique row already exists.
	ErrDuplicate = errors.New("already exists")
)

// Store defines the interface for all database operations.
type Store interface {
	// WithTx runs fn against a transaction-bound Store. Returning an error rolls back.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	GetUser(ctx context.Context, id string) (*model.User, error)
	EnsureUser(ctx context.Context, u *model.User) (*model.User, error)
	ApplyTutor(ctx context.Context, userID string) (bool, error)
	ApproveTutor(ctx context.Context, userID string) (bool, error)
	EligibleTutors(ctx context.Context, subjectID string, limit int) ([]model.User, error)

	ListSubjects(ctx context.Context) ([]model.Subject, error)
	CreateSubject(ctx context.Context, subject *model.Subject) error
	GetSubject(ctx context.Context, id string) (*model.Subject, error)
	SetTutorSubjects(ctx context.Context, tutorID string, subjectIDs []string) error
	TeachesSubject(ctx context.Context, tutorID, subjectID string) (bool, error)

	SaveAvailability(ctx context.Context, a *model.Availability) error
	LatestAvailability(ctx context.Context, tutorID string) (*model.Availability, error)
	LatestAvailabilities(ctx context.Context, tutorIDs []string) (map[string]model.Availability, error)

	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListSessions(ctx context.Context, f SessionFilter) ([]model.Session, error)
	ActiveBookings(ctx context.Context, userID string, start, end time.Time, excludeID string) ([]schedule.Booking, error)
	TutorBookings(ctx context.Context, tutorIDs []string, start, end time.Time) ([]model.Session, error)
	UnassignedSessions(ctx context.Context, after time.Time, limit int) ([]model.Session, error)
	OverdueAccepted(ctx context.Context, cutoff time.Time, limit int) ([]model.Session, error)
	UpdateSessionIf(ctx context.Context, id string, guard Guard, updates map[string]any) (bool, error)
	AssignTutor(ctx context.Context, sessionID, tutorID string) (bool, error)
	RateSession(ctx context.Context, r *model.SessionRating) (avg float64, count int, err error)

	OpenChannel(ctx context.Context, ch *model.ChatChannel) error
	ScheduleChannelClose(ctx context.Context, ch *model.ChatChannel) error
	CloseChannel(ctx context.Context, sessionID string, at time.Time) (bool, error)
	GetChannel(ctx context.Context, id string) (*model.ChatChannel, error)
	ListChannels(ctx context.Context, userID string) ([]model.ChatChannel, error)
	AddMessage(ctx context.Context, msg *model.ChatMessage) error
	ListMessages(ctx context.Context, channelID string, p Page) ([]model.ChatMessage, error)
	MarkChannelRead(ctx context.Context, ch *model.ChatChannel, userID string, at time.Time) error

	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID string, p Page) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkNotificationRead(ctx context.Context, userID, id string, at time.Time) (bool, error)
	MarkAllNotificationsRead(ctx context.Context, userID string, at time.Time) (int64, error)

	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	ListSubscriptions(ctx context.Context, userID string) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	DeleteUserSubscription(ctx context.Context, userID, endpoint string) (bool, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
