package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Lingges1210/tutorlink-sub001/internal/model"
)

func (s *gormStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// EnsureUser provisions a user row the first time a principal is seen and
// returns the stored row.
func (s *gormStore) EnsureUser(ctx context.Context, u *model.User) (*model.User, error) {
	if u.Role == "" {
		u.Role = model.RoleStudent
	}
	if u.TutorStatus == "" {
		u.TutorStatus = model.TutorStatusNone
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(u).Error; err != nil {
		return nil, fmt.Errorf("failed to provision user %s: %w", u.ID, err)
	}
	return s.GetUser(ctx, u.ID)
}

// ApplyTutor moves a user into the PENDING application state.
func (s *gormStore) ApplyTutor(ctx context.Context, userID string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND tutor_status IN ?", userID, []model.TutorStatus{model.TutorStatusNone, model.TutorStatusRejected}).
		Update("tutor_status", model.TutorStatusPending)
	if res.Error != nil {
		return false, fmt.Errorf("failed to record tutor application: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ApproveTutor approves a pending application and grants the tutor role in
// one transaction.
func (s *gormStore) ApproveTutor(ctx context.Context, userID string) (bool, error) {
	var approved bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).
			Where("id = ? AND tutor_status = ?", userID, model.TutorStatusPending).
			Updates(map[string]any{
				"tutor_status": model.TutorStatusApproved,
				"is_verified":  true,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Model(&model.User{}).
			Where("id = ? AND role = ?", userID, model.RoleStudent).
			Update("role", model.RoleTutor).Error; err != nil {
			return err
		}
		approved = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to approve tutor %s: %w", userID, err)
	}
	return approved, nil
}

// EligibleTutors returns up to limit approved, verified, active tutors
// teaching subjectID, sampled in random order so every tutor gets a chance
// when more qualify than the limit allows.
func (s *gormStore) EligibleTutors(ctx context.Context, subjectID string, limit int) ([]model.User, error) {
	var tutors []model.User
	err := s.db.WithContext(ctx).
		Joins("JOIN tutor_subjects ts ON ts.tutor_id = users.id").
		Where("ts.subject_id = ?", subjectID).
		Where("users.tutor_status = ? AND users.is_verified = ? AND users.is_deactivated = ?", model.TutorStatusApproved, true, false).
		Order("RANDOM()").
		Limit(limit).
		Find(&tutors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tutors for subject %s: %w", subjectID, err)
	}
	return tutors, nil
}

func (s *gormStore) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	var subjects []model.Subject
	if err := s.db.WithContext(ctx).Order("code").Find(&subjects).Error; err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	return subjects, nil
}

// CreateSubject adds a catalogue entry. A taken code is ErrDuplicate.
func (s *gormStore) CreateSubject(ctx context.Context, subject *model.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(subject)
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) || (res.Error == nil && res.RowsAffected == 0) {
		return ErrDuplicate
	}
	if res.Error != nil {
		return fmt.Errorf("failed to create subject %s: %w", subject.Code, res.Error)
	}
	return nil
}

func (s *gormStore) GetSubject(ctx context.Context, id string) (*model.Subject, error) {
	var subject model.Subject
	if err := s.db.WithContext(ctx).First(&subject, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &subject, nil
}

// SetTutorSubjects replaces the subjects a tutor teaches.
func (s *gormStore) SetTutorSubjects(ctx context.Context, tutorID string, subjectIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tutor_id = ?", tutorID).Delete(&model.TutorSubject{}).Error; err != nil {
			return fmt.Errorf("failed to clear tutor subjects: %w", err)
		}
		if len(subjectIDs) == 0 {
			return nil
		}
		links := make([]model.TutorSubject, 0, len(subjectIDs))
		for _, id := range subjectIDs {
			links = append(links, model.TutorSubject{TutorID: tutorID, SubjectID: id})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			return fmt.Errorf("failed to save tutor subjects: %w", err)
		}
		return nil
	})
}

func (s *gormStore) TeachesSubject(ctx context.Context, tutorID, subjectID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.TutorSubject{}).
		Where("tutor_id = ? AND subject_id = ?", tutorID, subjectID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check tutor subject: %w", err)
	}
	return n > 0, nil
}

func (s *gormStore) SaveAvailability(ctx context.Context, a *model.Availability) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to save availability: %w", err)
	}
	return nil
}

func (s *gormStore) LatestAvailability(ctx context.Context, tutorID string) (*model.Availability, error) {
	var a model.Availability
	err := s.db.WithContext(ctx).
		Where("tutor_id = ?", tutorID).
		Order("created_at DESC").
		First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// LatestAvailabilities returns the most recently created document per tutor.
func (s *gormStore) LatestAvailabilities(ctx context.Context, tutorIDs []string) (map[string]model.Availability, error) {
	out := make(map[string]model.Availability, len(tutorIDs))
	if len(tutorIDs) == 0 {
		return out, nil
	}
	var rows []model.Availability
	if err := s.db.WithContext(ctx).
		Where("tutor_id IN ?", tutorIDs).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch availability: %w", err)
	}
	// Ascending order lets later rows overwrite earlier ones.
	for _, r := range rows {
		out[r.TutorID] = r
	}
	return out, nil
}
