// Package booking is the session lifecycle engine: the state machine that
// moves a tutoring session between PENDING, ACCEPTED, REJECTED, CANCELLED and
// COMPLETED, the tutor allocator and the auto-completion sweep.
//
// Every mutation follows the same shape: load the row, check the actor owns
// it, check the current status, run the overlap checks where the window
// changes, then issue one conditional update guarded on the status that was
// checked. A guarded update that touches no row means another request got
// there first and is reported as a conflict. Notifications, email and
// calendar invites run after the write and never fail the operation.
package booking

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Lingges1210/tutorlink-sub001/internal/logging"
	"github.com/Lingges1210/tutorlink-sub001/internal/mailer"
	"github.com/Lingges1210/tutorlink-sub001/internal/metrics"
	"github.com/Lingges1210/tutorlink-sub001/internal/model"
	"github.com/Lingges1210/tutorlink-sub001/internal/notification"
	"github.com/Lingges1210/tutorlink-sub001/internal/schedule"
	"github.com/Lingges1210/tutorlink-sub001/internal/store"
)

var openStatuses = []model.SessionStatus{model.StatusPending, model.StatusAccepted}

// Service implements the session state machine.
type Service struct {
	store  store.Store
	notify notification.Dispatcher
	mail   mailer.Mailer
	cfg    Config
	now    func() time.Time
}

// NewService wires the state machine. A nil dispatcher or mailer disables
// that side effect.
func NewService(st store.Store, d notification.Dispatcher, m mailer.Mailer, cfg Config, opts ...Option) *Service {
	o := buildOptions(opts)
	if d == nil {
		d = nopDispatcher{}
	}
	if m == nil {
		m = nopMailer{}
	}
	return &Service{store: st, notify: d, mail: m, cfg: cfg, now: o.now}
}

// Config returns the lifecycle tunables.
func (s *Service) Config() Config { return s.cfg }

func (s *Service) clock() time.Time { return s.now().UTC() }

// CreateInput is a student's booking request. An empty TutorID leaves the
// session for the allocator.
type CreateInput struct {
	StudentID   string
	TutorID     string
	SubjectID   string
	ScheduledAt time.Time
	DurationMin int
	Note        string
}

// Create books a new PENDING session.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Session, error) {
	if in.StudentID == "" {
		return nil, Unauthorizedf("Sign in to book a session.")
	}
	if in.SubjectID == "" {
		return nil, Validationf("subjectId is required.")
	}
	minutes, err := s.duration(in.DurationMin, s.cfg.DefaultDuration)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	start := in.ScheduledAt.UTC()
	if !start.After(now) {
		return nil, Validationf("scheduledAt must be in the future.")
	}
	end := start.Add(time.Duration(minutes) * time.Minute)

	if _, err := s.store.GetSubject(ctx, in.SubjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NotFoundf("Subject not found.")
		}
		return nil, s.fail("create", err)
	}
	if in.TutorID != "" {
		if err := s.checkTutor(ctx, in.TutorID, in.StudentID, in.SubjectID); err != nil {
			return nil, s.fail("create", err)
		}
	}

	sess := &model.Session{
		ID:          uuid.NewString(),
		StudentID:   in.StudentID,
		SubjectID:   in.SubjectID,
		ScheduledAt: start,
		DurationMin: minutes,
		EndsAt:      &end,
		Status:      model.StatusPending,
		Note:        in.Note,
		CalendarUID: uuid.NewString() + "@tutorlink",
	}
	if in.TutorID != "" {
		tutorID := in.TutorID
		sess.TutorID = &tutorID
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := checkWindow(ctx, tx, in.StudentID, in.TutorID, start, end, ""); err != nil {
			return err
		}
		return tx.CreateSession(ctx, sess)
	})
	if err != nil {
		return nil, s.fail("create", err)
	}
	metrics.RecordTransition("create", "ok")

	if sess.HasTutor() {
		s.notify.Notify(notification.Notice{
			UserID:    *sess.TutorID,
			Kind:      "session.requested",
			Title:     "New session request",
			Body:      "A student requested a session for " + start.In(s.cfg.Location).Format(noticeTimeLayout) + ".",
			SessionID: sess.ID,
		})
	}
	return s.reload(ctx, sess)
}

// CheckInput describes a window to test without booking it. SessionID, when
// set, excludes that session and supplies the tutor and duration defaults.
type CheckInput struct {
	StudentID   string
	TutorID     string
	SessionID   string
	ScheduledAt time.Time
	DurationMin int
}

// ConflictResult reports each side of the overlap check separately.
type ConflictResult struct {
	StudentConflict bool `json:"studentConflict"`
	TutorConflict   bool `json:"tutorConflict"`
}

// CheckConflict runs the overlap check for both parties without writing.
func (s *Service) CheckConflict(ctx context.Context, in CheckInput) (ConflictResult, error) {
	var res ConflictResult
	tutorID := in.TutorID
	minutes := in.DurationMin

	if in.SessionID != "" {
		sess, err := s.load(ctx, in.SessionID, func(x *model.Session) bool { return x.StudentID == in.StudentID })
		if err != nil {
			return res, err
		}
		if tutorID == "" && sess.HasTutor() {
			tutorID = *sess.TutorID
		}
		if minutes == 0 {
			minutes = sess.DurationMin
		}
	}
	minutes, err := s.duration(minutes, s.cfg.DefaultDuration)
	if err != nil {
		return res, err
	}
	start := in.ScheduledAt.UTC()
	end := start.Add(time.Duration(minutes) * time.Minute)

	mine, err := s.store.ActiveBookings(ctx, in.StudentID, start, end, in.SessionID)
	if err != nil {
		return res, s.fail("check_conflict", err)
	}
	res.StudentConflict = schedule.HasConflict(mine, start, end)

	if tutorID != "" {
		theirs, err := s.store.ActiveBookings(ctx, tutorID, start, end, in.SessionID)
		if err != nil {
			return res, s.fail("check_conflict", err)
		}
		res.TutorConflict = schedule.HasConflict(theirs, start, end)
	}
	return res, nil
}

// Accept moves a PENDING session owned by the tutor to ACCEPTED, opens the
// chat channel and sends the calendar invite.
func (s *Service) Accept(ctx context.Context, tutorID, sessionID string) (*model.Session, error) {
	sess, err := s.load(ctx, sessionID, func(x *model.Session) bool { return x.IsTutor(tutorID) })
	if err != nil {
		return nil, err
	}
	if sess.Status != model.StatusPending {
		return nil, s.fail("accept", Conflictf("Only pending sessions can be accepted."))
	}
	now := s.clock()
	if !now.Before(sess.End()) {
		return nil, s.fail("accept", Conflictf("Session has already ended."))
	}

	ok, err := s.store.UpdateSessionIf(ctx, sess.ID,
		store.Guard{Statuses: []model.SessionStatus{model.StatusPending}, TutorID: tutorID},
		map[string]any{
			"status":            model.StatusAccepted,
			"accepted_at":       now,
			"calendar_sequence": gorm.Expr("calendar_sequence + 1"),
		})
	if err != nil {
		return nil, s.fail("accept", err)
	}
	if !ok {
		return nil, s.lostRace("accept")
	}
	metrics.RecordTransition("accept", "ok")

	updated, err := s.reload(ctx, sess)
	if err != nil {
		return nil, err
	}

	if err := s.store.OpenChannel(ctx, &model.ChatChannel{
		SessionID: updated.ID,
		StudentID: updated.StudentID,
		TutorID:   tutorID,
	}); err != nil {
		logging.Warn().Err(err).Str("session_id", updated.ID).Msg("failed to open chat channel")
	}
	s.sendInvite(ctx, updated, mailer.MethodRequest)
	s.scheduleReminder(ctx, updated)
	s.notify.Notify(notification.Notice{
		UserID:    updated.StudentID,
		Kind:      "session.accepted",
		Title:     "Session accepted",
		Body:      "Your tutor accepted the session on " + updated.ScheduledAt.In(s.cfg.Location).Format(noticeTimeLayout) + ".",
		SessionID: updated.ID,
	})
	return updated, nil
}

// Reject declines a PENDING session. REJECTED is terminal.
func (s *Service) Reject(ctx context.Context, tutorID, sessionID, reason string) (*model.Session, error) {
	sess, err := s.load(ctx, sessionID, func(x *model.Session) bool { return x.IsTutor(tutorID) })
	if err != nil {
		return nil, err
	}
	if sess.Status != model.StatusPending {
		return nil, s.fail("reject", Conflictf("Only pending sessions can be rejected."))
	}
	if err := checkReason(reason); err != nil {
		return nil, err
	}

	ok, err := s.store.UpdateSessionIf(ctx, sess.ID,
		store.Guard{Statuses: []model.SessionStatus{model.StatusPending}, TutorID: tutorID},
		map[string]any{
			"status":          model.StatusRejected,
			"rejected_reason": optional(reason),
		})
	if err != nil {
		return nil, s.fail("reject", err)
	}
	if !ok {
		return nil, s.lostRace("reject")
	}
	metrics.RecordTransition("reject", "ok")

	s.notify.Notify(notification.Notice{
		UserID:    sess.StudentID,
		Kind:      "session.rejected",
		Title:     "Session request declined",
		Body:      reason,
		SessionID: sess.ID,
	})
	return s.reload(ctx, sess)
}

// ProposeInput is a tutor's alternative time. A nil ProposedEndAt keeps the
// session's current length.
type ProposeInput struct {
	ProposedAt    time.Time
	ProposedEndAt *time.Time
	Note          string
}

// Propose attaches a PENDING reschedule proposal to an open session.
func (s *Service) Propose(ctx context.Context, tutorID, sessionID string, in ProposeInput) (*model.Session, error) {
	sess, err := s.load(ctx, sessionID, func(x *model.Session) bool { return x.IsTutor(tutorID) })
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, s.fail("propose", Conflictf(msgSessionClosed))
	}
	now := s.clock()
	if !now.Before(sess.End()) {
		return nil, s.fail("propose", Conflictf("Session has already ended."))
	}

	proposedAt := in.ProposedAt.UTC()
	if proposedAt.Before(now.Add(s.cfg.ProposalLead)) {
		return nil, Validationf("Proposed time must be at least %d minutes from now.", int(s.cfg.ProposalLead/time.Minute))
	}
	proposedEnd := proposedAt.Add(time.Duration(sess.DurationMin) * time.Minute)
	if in.ProposedEndAt != nil {
		proposedEnd = in.ProposedEndAt.UTC()
	}
	if !proposedEnd.After(proposedAt) {
		return nil, Validationf("proposedEndAt must be after proposedAt.")
	}
	if _, err := s.duration(int(proposedEnd.Sub(proposedAt)/time.Minute), 0); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(in.Note) > 500 {
		return nil, Validationf("note must be at most 500 characters.")
	}

	ok, err := s.store.UpdateSessionIf(ctx, sess.ID,
		store.Guard{Statuses: openStatuses, TutorID: tutorID},
		map[string]any{
			"proposed_at":         proposedAt,
			"proposed_end_at":     proposedEnd,
			"proposed_note":       optional(in.Note),
			"proposal_status":     model.ProposalPending,
			"proposed_by_user_id": tutorID,
		})
	if err != nil {
		return nil, s.fail("propose", err)
	}
	if !ok {
		return nil, s.lostRace("propose")
	}
	metrics.RecordTransition("propose", "ok")

	s.notify.Notify(notification.Notice{
		UserID:    sess.StudentID,
		Kind:      "session.proposal",
		Title:     "New time proposed",
		Body:      "Your tutor proposed " + proposedAt.In(s.cfg.Location).Format(noticeTimeLayout) + ".",
		SessionID: sess.ID,
	})
	return s.reload(ctx, sess)
}

// RejectProposal declines the tutor's pending proposal. The session keeps its
// current time.
func (s *Service) RejectProposal(ctx context.Context, studentID, sessionID string) (*model.Session, error) {
	sess, err := s.load(ctx, sessionID, func(x *model.Session) bool { return x.StudentID == studentID })
	if err != nil {
		return nil, err
	}
	if sess.Status.Closed() {
		return nil, s.fail("reject_proposal", Conflictf(msgSessionClosed))
	}
	if !proposalPending(sess) {
		return nil, s.fail("reject_proposal", Conflictf("There is no pending proposal."))
	}

	ok, err := s.store.UpdateSessionIf(ctx, sess.ID,
		store.Guard{
			Statuses:       []model.SessionStatus{model.StatusPending, model.StatusAccepted, model.StatusRejected},
			StudentID:      studentID,
			ProposalStatus: model.ProposalPending,
		},
		map[string]any{"proposal_status": model.ProposalRejected})
	if err != nil {
		return nil, s.fail("reject_proposal", err)
	}
	if !ok {
		return nil, s.lostRace("reject_proposal")
	}
	metrics.RecordTransition("reject_proposal", "ok")

	if sess.HasTutor() {
		s.notify.Notify(notification.Notice{
			UserID:    *sess.TutorID,
			Kind:      "session.proposal_rejected",
			Title:     "Proposal declined",
			Body:      "The student kept the original time.",
			SessionID: sess.ID,
		})
	}
	return s.reload(ctx, sess)
}

// AcceptProposal moves the session to the proposed window after re-running
// the overlap checks. The status is left as it was.
func (s *Service) AcceptProposal(ctx context.Context, studentID, sessionID string) (*model.Session, error) {
	sess, err := s.load(ctx, sessionID, func(x *model.Session) bool { return x.StudentID == studentID })
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, s.fail("accept_proposal", Conflictf(msgSessionClosed))
	}
	if !proposalPending(sess) || sess.ProposedAt == nil {
		return nil, s.fail("accept_proposal", Conflictf("There is no pending proposal."))
	}
	now := s.clock()
	start := sess.ProposedAt.UTC()
	if !start.After(now) {
		return nil, s.fail("accept_proposal", Conflictf("The proposed time has already passed."))
	}
	end := start.Add(time.Duration(sess.DurationMin) * time.Minute)
	if sess.ProposedEndAt != nil {
		end = sess.ProposedEndAt.UTC()
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := checkWindow(ctx, tx, studentID, tutorOf(sess), start, end, sess.ID); err != nil {
			return err
		}
		ok, err := tx.UpdateSessionIf(ctx, sess.ID,
			store.Guard{Statuses: openStatuses, StudentID: studentID, ProposalStatus: model.ProposalPending},
			map[string]any{
				"scheduled_at":              start,
				"ends_at":                   end,
				"duration_min":              int(end.Sub(start) / time.Minute),
				"proposal_status":           model.ProposalAccepted,
				"rescheduled_at":            now,
				"calendar_sequence":         gorm.Expr("calendar_sequence + 1"),
				"student_reminder_email_id": nil,
			})
		if err != nil {
			return err
		}
		if !ok {
			return Conflictf(msgLostRace)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("accept_proposal", err)
	}
	metrics.RecordTransition("accept_proposal", "ok")

	updated, err := s.reload(ctx, sess)
	if err != nil {
		return nil, err
	}
	s.cancelReminder(ctx, sess)
	if updated.Status == model.StatusAccepted {
		s.sendInvite(ctx, updated, mailer.MethodRequest)
		s.scheduleReminder(ctx, updated)
	}
	if updated.HasTutor() {
		s.notify.Notify(notification.Notice{
			UserID:    *updated.TutorID,
			Kind:      "session.proposal_accepted",
			Title:     "Proposal accepted",
			Body:      "The session moved to " + start.In(s.cfg.Location).Format(noticeTimeLayout) + ".",
			SessionID: updated.ID,
		})
	}
	return updated, nil
}

// RescheduleInput is a student's new time. Zero DurationMin keeps the
// current length.
type RescheduleInput struct {
	ScheduledAt time.Time
	DurationMin int
}

// Reschedule moves the session to a new window and resets it to PENDING so
// the tutor has to confirm again.
func (s *Service) Reschedule(ctx context.Context, studentID, sessionID string, in RescheduleInput) (*model.Session, error) {
	sess, err := s.load(ctx, sessionID, func(x *model.Session) bool { return x.StudentID == studentID })
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, s.fail("reschedule", Conflictf(msgSessionClosed))
	}
	minutes, err := s.duration(in.DurationMin, sess.DurationMin)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	start := in.ScheduledAt.UTC()
	if !start.After(now) {
		return nil, Validationf("scheduledAt must be in the future.")
	}
	end := start.Add(time.Duration(minutes) * time.Minute)

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := checkWindow(ctx, tx, studentID, tutorOf(sess), start, end, sess.ID); err != nil {
			return err
		}
		ok, err := tx.UpdateSessionIf(ctx, sess.ID,
			store.Guard{Statuses: openStatuses, StudentID: studentID},
			map[string]any{
				"scheduled_at":              start,
				"ends_at":                   end,
				"duration_min":              minutes,
				"status":                    model.StatusPending,
				"accepted_at":               nil,
				"rescheduled_at":            now,
				"calendar_sequence":         gorm.Expr("calendar_sequence + 1"),
				"student_reminder_email_id": nil,
			})
		if err != nil {
			return err
		}
		if !ok {
			return Conflictf(msgLostRace)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("reschedule", err)
	}
	metrics.RecordTransition("reschedule", "ok")

	updated, err := s.reload(ctx, sess)
	if err != nil {
		return nil, err
	}
	s.cancelReminder(ctx, sess)
	if sess.Status == model.StatusAccepted {
		// Back to PENDING: withdraw the event until the tutor confirms again.
		s.sendInvite(ctx, updated, mailer.MethodCancel)
	}
	if updated.HasTutor() {
		s.notify.Notify(notification.Notice{
			UserID:    *updated.TutorID,
			Kind:      "session.rescheduled",
			Title:     "Session rescheduled",
			Body:      "The student moved the session to " + start.In(s.cfg.Location).Format(noticeTimeLayout) + ".",
			SessionID: updated.ID,
		})
	}
	return updated, nil
}

// CancelByStudent cancels a session the student booked.
func (s *Service) CancelByStudent(ctx context.Context, studentID, sessionID, reason string) (*model.Session, error) {
	return s.cancel(ctx, studentID, sessionID, reason, false)
}

// CancelByTutor cancels a session assigned to the tutor.
func (s *Service) CancelByTutor(ctx context.Context, tutorID, sessionID, reason string) (*model.Session, error) {
	return s.cancel(ctx, tutorID, sessionID, reason, true)
}

func (s *Service) cancel(ctx context.Context, actorID, sessionID, reason string, byTutor bool) (*model.Session, error) {
	owns := func(x *model.Session) bool { return x.StudentID == actorID }
	guard := store.Guard{Statuses: openStatuses, StudentID: actorID}
	if byTutor {
		owns = func(x *model.Session) bool { return x.IsTutor(actorID) }
		guard = store.Guard{Statuses: openStatuses, TutorID: actorID}
	}

	sess, err := s.load(ctx, sessionID, owns)
	if err != nil {
		return nil, err
	}
	if sess.Status.Terminal() {
		return nil, s.fail("cancel", Conflictf(msgSessionClosed))
	}
	if err := checkReason(reason); err != nil {
		return nil, err
	}
	now := s.clock()

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		ok, err := tx.UpdateSessionIf(ctx, sess.ID, guard, map[string]any{
			"status":                    model.StatusCancelled,
			"cancelled_at":              now,
			"cancel_reason":             optional(reason),
			"cancelled_by":              actorID,
			"calendar_sequence":         gorm.Expr("calendar_sequence + 1"),
			"student_reminder_email_id": nil,
		})
		if err != nil {
			return err
		}
		if !ok {
			return Conflictf(msgSessionClosed)
		}
		_, err = tx.CloseChannel(ctx, sess.ID, now)
		return err
	})
	if err != nil {
		return nil, s.fail("cancel", err)
	}
	metrics.RecordTransition("cancel", "ok")

	updated, err := s.reload(ctx, sess)
	if err != nil {
		return nil, err
	}
	s.cancelReminder(ctx, sess)
	if sess.Status == model.StatusAccepted {
		s.sendInvite(ctx, updated, mailer.MethodCancel)
	}

	counterparty := ""
	if byTutor {
		counterparty = updated.StudentID
	} else if updated.HasTutor() {
		counterparty = *updated.TutorID
	}
	if counterparty != "" {
		s.notify.Notify(notification.Notice{
			UserID:    counterparty,
			Kind:      "session.cancelled",
			Title:     "Session cancelled",
			Body:      reason,
			SessionID: updated.ID,
		})
	}
	return updated, nil
}

// Complete marks an ACCEPTED session as done once its end has passed.
func (s *Service) Complete(ctx context.Context, tutorID, sessionID string) (*model.Session, error) {
	sess, err := s.load(ctx, sessionID, func(x *model.Session) bool { return x.IsTutor(tutorID) })
	if err != nil {
		return nil, err
	}
	if sess.Status != model.StatusAccepted {
		return nil, s.fail("complete", Conflictf("Only accepted sessions can be completed."))
	}
	now := s.clock()
	end := sess.End()
	if now.Before(end) {
		return nil, s.fail("complete", Conflictf("Session has not ended yet."))
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		ok, err := tx.UpdateSessionIf(ctx, sess.ID,
			store.Guard{Statuses: []model.SessionStatus{model.StatusAccepted}, TutorID: tutorID},
			map[string]any{"status": model.StatusCompleted, "completed_at": now})
		if err != nil {
			return err
		}
		if !ok {
			return Conflictf("Session is already completed.")
		}
		return scheduleClose(ctx, tx, sess, end.Add(s.cfg.ChatWindow))
	})
	if err != nil {
		return nil, s.fail("complete", err)
	}
	metrics.RecordTransition("complete", "ok")

	s.notify.Notify(notification.Notice{
		UserID:    sess.StudentID,
		Kind:      "session.completed",
		Title:     "Session completed",
		Body:      "Rate your session to help other students.",
		SessionID: sess.ID,
	})
	return s.reload(ctx, sess)
}

// RatingResult is the tutor's refreshed aggregate.
type RatingResult struct {
	RatingAvg   float64 `json:"ratingAvg"`
	RatingCount int     `json:"ratingCount"`
}

// Rate records the student's one rating for a completed session.
func (s *Service) Rate(ctx context.Context, studentID, sessionID string, rating int, comment string) (RatingResult, error) {
	if rating < 1 || rating > 5 {
		return RatingResult{}, Validationf("rating must be between 1 and 5.")
	}
	if utf8.RuneCountInString(comment) > 500 {
		return RatingResult{}, Validationf("comment must be at most 500 characters.")
	}
	sess, err := s.load(ctx, sessionID, func(x *model.Session) bool { return x.StudentID == studentID })
	if err != nil {
		return RatingResult{}, err
	}
	if sess.Status != model.StatusCompleted || !sess.HasTutor() {
		return RatingResult{}, s.fail("rate", Conflictf("Only completed sessions can be rated."))
	}

	avg, count, err := s.store.RateSession(ctx, &model.SessionRating{
		SessionID: sess.ID,
		StudentID: studentID,
		TutorID:   *sess.TutorID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.clock(),
	})
	if errors.Is(err, store.ErrDuplicate) {
		return RatingResult{}, s.fail("rate", Conflictf("You already rated this session."))
	}
	if err != nil {
		return RatingResult{}, s.fail("rate", err)
	}
	metrics.RecordTransition("rate", "ok")

	s.notify.Notify(notification.Notice{
		UserID:    *sess.TutorID,
		Kind:      "session.rated",
		Title:     "New rating received",
		SessionID: sess.ID,
	})
	return RatingResult{RatingAvg: avg, RatingCount: count}, nil
}

// Get returns a session the user takes part in.
func (s *Service) Get(ctx context.Context, userID, sessionID string) (*model.Session, error) {
	return s.load(ctx, sessionID, func(x *model.Session) bool {
		return x.StudentID == userID || x.IsTutor(userID)
	})
}

// ListForStudent returns the student's sessions, newest first.
func (s *Service) ListForStudent(ctx context.Context, studentID string, statuses []model.SessionStatus) ([]model.Session, error) {
	sessions, err := s.store.ListSessions(ctx, store.SessionFilter{StudentID: studentID, Statuses: statuses})
	if err != nil {
		return nil, s.fail("list", err)
	}
	return sessions, nil
}

// ListForTutor returns sessions assigned to the tutor, newest first.
func (s *Service) ListForTutor(ctx context.Context, tutorID string, statuses []model.SessionStatus) ([]model.Session, error) {
	sessions, err := s.store.ListSessions(ctx, store.SessionFilter{TutorID: tutorID, Statuses: statuses})
	if err != nil {
		return nil, s.fail("list", err)
	}
	return sessions, nil
}
