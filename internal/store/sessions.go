package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Lingges1210/tutorlink-sub001/internal/model"
	"github.com/Lingges1210/tutorlink-sub001/internal/schedule"
)

func (s *gormStore) CreateSession(ctx context.Context, sess *model.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Omit("Subject").Create(sess).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *gormStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	if err := s.db.WithContext(ctx).Preload("Subject").First(&sess, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sess, nil
}

func (s *gormStore) ListSessions(ctx context.Context, f SessionFilter) ([]model.Session, error) {
	q := s.db.WithContext(ctx).Preload("Subject")
	if f.StudentID != "" {
		q = q.Where("student_id = ?", f.StudentID)
	}
	if f.TutorID != "" {
		q = q.Where("tutor_id = ?", f.TutorID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	var sessions []model.Session
	if err := q.Order("scheduled_at DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// ActiveBookings returns the PENDING/ACCEPTED sessions in which userID takes
// part, as student or tutor, that could overlap [start, end). Rows without an
// end are always included.
func (s *gormStore) ActiveBookings(ctx context.Context, userID string, start, end time.Time, excludeID string) ([]schedule.Booking, error) {
	q := s.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("(student_id = ? OR tutor_id = ?)", userID, userID).
		Where("status IN ?", model.ActiveStatuses).
		Where("scheduled_at < ?", end).
		Where("(ends_at IS NULL OR ends_at > ?)", start)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var rows []model.Session
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch bookings for %s: %w", userID, err)
	}

	bookings := make([]schedule.Booking, 0, len(rows))
	for i := range rows {
		bookings = append(bookings, schedule.FromSession(&rows[i]))
	}
	return bookings, nil
}

// TutorBookings bulk-fetches active sessions for a set of tutors that could
// overlap [start, end).
func (s *gormStore) TutorBookings(ctx context.Context, tutorIDs []string, start, end time.Time) ([]model.Session, error) {
	if len(tutorIDs) == 0 {
		return nil, nil
	}
	var rows []model.Session
	err := s.db.WithContext(ctx).
		Where("tutor_id IN ?", tutorIDs).
		Where("status IN ?", model.ActiveStatuses).
		Where("scheduled_at < ?", end).
		Where("(ends_at IS NULL OR ends_at > ?)", start).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tutor bookings: %w", err)
	}
	return rows, nil
}

// UnassignedSessions returns PENDING sessions with no tutor starting after
// the given instant, oldest request first.
func (s *gormStore) UnassignedSessions(ctx context.Context, after time.Time, limit int) ([]model.Session, error) {
	var rows []model.Session
	err := s.db.WithContext(ctx).
		Where("status = ? AND tutor_id IS NULL", model.StatusPending).
		Where("scheduled_at > ?", after).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unassigned sessions: %w", err)
	}
	return rows, nil
}

// OverdueAccepted returns ACCEPTED sessions whose effective end is at or
// before cutoff. Legacy rows without ends_at fall back to start + duration.
func (s *gormStore) OverdueAccepted(ctx context.Context, cutoff time.Time, limit int) ([]model.Session, error) {
	var rows []model.Session
	err := s.db.WithContext(ctx).
		Where("status = ?", model.StatusAccepted).
		Where("(ends_at <= ? OR (ends_at IS NULL AND scheduled_at <= ?))", cutoff, cutoff).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch overdue sessions: %w", err)
	}

	overdue := rows[:0]
	for _, r := range rows {
		if !r.End().After(cutoff) {
			overdue = append(overdue, r)
		}
	}
	return overdue, nil
}

// UpdateSessionIf applies updates only while the row still matches guard.
// The boolean is the sole success signal: false means another writer got
// there first, not an error.
func (s *gormStore) UpdateSessionIf(ctx context.Context, id string, guard Guard, updates map[string]any) (bool, error) {
	q := s.db.WithContext(ctx).Model(&model.Session{}).Where("id = ?", id)
	res := guard.apply(q).Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update session %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AssignTutor commits an allocation if the session is still unassigned and PENDING.
func (s *gormStore) AssignTutor(ctx context.Context, sessionID, tutorID string) (bool, error) {
	return s.UpdateSessionIf(ctx, sessionID,
		Guard{Statuses: []model.SessionStatus{model.StatusPending}, Unassigned: true},
		map[string]any{"tutor_id": tutorID},
	)
}

// RateSession stores a rating and refreshes the tutor's cached average and
// count in one transaction.
func (s *gormStore) RateSession(ctx context.Context, r *model.SessionRating) (float64, int, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	var avg float64
	var count int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The unique index on session_id decides between concurrent submissions.
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoNothing: true,
		}).Create(r)
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		if res.Error != nil {
			return fmt.Errorf("failed to insert rating: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrDuplicate
		}

		var agg struct {
			Avg   float64
			Count int
		}
		if err := tx.Model(&model.SessionRating{}).
			Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
			Where("tutor_id = ?", r.TutorID).
			Scan(&agg).Error; err != nil {
			return fmt.Errorf("failed to aggregate ratings: %w", err)
		}
		avg = math.Round(agg.Avg*10) / 10
		count = agg.Count

		return tx.Model(&model.User{}).
			Where("id = ?", r.TutorID).
			Updates(map[string]any{"rating_avg": avg, "rating_count": count}).Error
	})
	if err != nil {
		return 0, 0, err
	}
	return avg, count, nil
}
