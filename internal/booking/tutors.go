package booking

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"

	"github.com/Lingges1210/tutorlink-sub001/internal/model"
	"github.com/Lingges1210/tutorlink-sub001/internal/notification"
	"github.com/Lingges1210/tutorlink-sub001/internal/schedule"
	"github.com/Lingges1210/tutorlink-sub001/internal/store"
)

// ApplyTutor files a tutor application for the user.
func (s *Service) ApplyTutor(ctx context.Context, userID string) (*model.User, error) {
	ok, err := s.store.ApplyTutor(ctx, userID)
	if err != nil {
		return nil, s.fail("apply_tutor", err)
	}
	if !ok {
		return nil, Conflictf("You already applied or are already a tutor.")
	}
	return s.user(ctx, userID)
}

// ApproveTutor approves a pending application and grants the tutor role.
func (s *Service) ApproveTutor(ctx context.Context, userID string) (*model.User, error) {
	if _, err := s.user(ctx, userID); err != nil {
		return nil, err
	}
	ok, err := s.store.ApproveTutor(ctx, userID)
	if err != nil {
		return nil, s.fail("approve_tutor", err)
	}
	if !ok {
		return nil, Conflictf("Only pending applications can be approved.")
	}
	s.notify.Notify(notification.Notice{
		UserID: userID,
		Kind:   "tutor.approved",
		Title:  "You are now a tutor",
		Body:   "Set your subjects and availability to start receiving sessions.",
	})
	return s.user(ctx, userID)
}

// SetSubjects replaces what the tutor teaches.
func (s *Service) SetSubjects(ctx context.Context, tutorID string, subjectIDs []string) error {
	if err := s.requireApplicant(ctx, tutorID); err != nil {
		return err
	}
	seen := make(map[string]bool, len(subjectIDs))
	unique := make([]string, 0, len(subjectIDs))
	for _, id := range subjectIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.store.GetSubject(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return Validationf("Unknown subject %q.", id)
			}
			return s.fail("set_subjects", err)
		}
		unique = append(unique, id)
	}
	if err := s.store.SetTutorSubjects(ctx, tutorID, unique); err != nil {
		return s.fail("set_subjects", err)
	}
	return nil
}

// SaveAvailability validates and stores a new weekly document. The newest
// document is the one the allocator reads.
func (s *Service) SaveAvailability(ctx context.Context, tutorID string, days []schedule.DayRecord) (*model.Availability, error) {
	if err := s.requireApplicant(ctx, tutorID); err != nil {
		return nil, err
	}
	if _, err := schedule.BuildWeek(days); err != nil {
		return nil, Validationf("%v", err)
	}
	doc, err := json.Marshal(days)
	if err != nil {
		return nil, s.fail("save_availability", err)
	}
	a := &model.Availability{TutorID: tutorID, Days: datatypes.JSON(doc), CreatedAt: s.clock()}
	if err := s.store.SaveAvailability(ctx, a); err != nil {
		return nil, s.fail("save_availability", err)
	}
	return a, nil
}

// Availability returns the tutor's current weekly document.
func (s *Service) Availability(ctx context.Context, tutorID string) (*model.Availability, error) {
	a, err := s.store.LatestAvailability(ctx, tutorID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFoundf("No availability saved yet.")
	}
	if err != nil {
		return nil, s.fail("availability", err)
	}
	return a, nil
}

func (s *Service) user(ctx context.Context, id string) (*model.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFoundf("User not found.")
	}
	if err != nil {
		return nil, s.fail("user", err)
	}
	return u, nil
}

func (s *Service) requireApplicant(ctx context.Context, userID string) error {
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if u.TutorStatus != model.TutorStatusPending && u.TutorStatus != model.TutorStatusApproved {
		return Forbiddenf("Apply as a tutor first.")
	}
	return nil
}
