package booking

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/Lingges1210/tutorlink-sub001/internal/logging"
	"github.com/Lingges1210/tutorlink-sub001/internal/mailer"
	"github.com/Lingges1210/tutorlink-sub001/internal/metrics"
	"github.com/Lingges1210/tutorlink-sub001/internal/model"
	"github.com/Lingges1210/tutorlink-sub001/internal/notification"
	"github.com/Lingges1210/tutorlink-sub001/internal/schedule"
	"github.com/Lingges1210/tutorlink-sub001/internal/store"
)

const noticeTimeLayout = "Mon 2 Jan 15:04"

// load fetches a session and hides it from anyone owns rejects.
func (s *Service) load(ctx context.Context, id string, owns func(*model.Session) bool) (*model.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NotFoundf(msgSessionNotFound)
	}
	if err != nil {
		return nil, s.fail("load", err)
	}
	if !owns(sess) {
		return nil, NotFoundf(msgSessionNotFound)
	}
	return sess, nil
}

func (s *Service) reload(ctx context.Context, sess *model.Session) (*model.Session, error) {
	fresh, err := s.store.GetSession(ctx, sess.ID)
	if err != nil {
		return nil, s.fail("reload", err)
	}
	return fresh, nil
}

// fail passes booking errors through and masks everything else.
func (s *Service) fail(op string, err error) error {
	var be *Error
	if errors.As(err, &be) {
		if be.Kind == KindConflict {
			metrics.RecordTransition(op, "conflict")
		}
		return be
	}
	logging.Error().Err(err).Str("operation", op).Msg("booking operation failed")
	return Internal(err)
}

func (s *Service) lostRace(op string) error {
	metrics.RecordTransition(op, "lost_race")
	return Conflictf(msgLostRace)
}

// duration applies the default and the allowed range to a length in minutes.
func (s *Service) duration(minutes, def int) (int, error) {
	if minutes == 0 {
		minutes = def
	}
	if minutes < s.cfg.MinDuration || minutes > s.cfg.MaxDuration {
		return 0, Validationf("durationMin must be between %d and %d.", s.cfg.MinDuration, s.cfg.MaxDuration)
	}
	return minutes, nil
}

func (s *Service) checkTutor(ctx context.Context, tutorID, studentID, subjectID string) error {
	if tutorID == studentID {
		return Validationf("You cannot book a session with yourself.")
	}
	tutor, err := s.store.GetUser(ctx, tutorID)
	if errors.Is(err, store.ErrNotFound) {
		return NotFoundf("Tutor not found.")
	}
	if err != nil {
		return err
	}
	if !tutor.EligibleTutor() {
		return Conflictf("Tutor is not available for booking.")
	}
	teaches, err := s.store.TeachesSubject(ctx, tutorID, subjectID)
	if err != nil {
		return err
	}
	if !teaches {
		return Conflictf("Tutor does not teach this subject.")
	}
	return nil
}

// checkWindow runs the overlap check for the student and, when known, the
// tutor. It must run on the same store as the write that follows.
func checkWindow(ctx context.Context, st store.Store, studentID, tutorID string, start, end time.Time, excludeID string) error {
	mine, err := st.ActiveBookings(ctx, studentID, start, end, excludeID)
	if err != nil {
		return err
	}
	if schedule.HasConflict(mine, start, end) {
		metrics.BookingConflicts.WithLabelValues("student").Inc()
		return Conflictf(msgStudentBooked)
	}
	if tutorID == "" {
		return nil
	}
	theirs, err := st.ActiveBookings(ctx, tutorID, start, end, excludeID)
	if err != nil {
		return err
	}
	if schedule.HasConflict(theirs, start, end) {
		metrics.BookingConflicts.WithLabelValues("tutor").Inc()
		return Conflictf(msgTutorBooked)
	}
	return nil
}

func scheduleClose(ctx context.Context, st store.Store, sess *model.Session, closeAt time.Time) error {
	return st.ScheduleChannelClose(ctx, &model.ChatChannel{
		SessionID: sess.ID,
		StudentID: sess.StudentID,
		TutorID:   tutorOf(sess),
		CloseAt:   &closeAt,
	})
}

func tutorOf(sess *model.Session) string {
	if sess.HasTutor() {
		return *sess.TutorID
	}
	return ""
}

func proposalPending(sess *model.Session) bool {
	return sess.ProposalStatus != nil && *sess.ProposalStatus == model.ProposalPending
}

func checkReason(reason string) error {
	if utf8.RuneCountInString(reason) > 500 {
		return Validationf("reason must be at most 500 characters.")
	}
	return nil
}

// optional stores empty text as NULL.
func optional(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func (s *Service) emailsOf(ctx context.Context, ids ...string) []string {
	var out []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		u, err := s.store.GetUser(ctx, id)
		if err != nil {
			logging.Warn().Err(err).Str("user_id", id).Msg("failed to resolve email recipient")
			continue
		}
		if u.Email != "" {
			out = append(out, u.Email)
		}
	}
	return out
}

func sessionSummary(sess *model.Session) string {
	if sess.Subject != nil && sess.Subject.Title != "" {
		return "Tutoring: " + sess.Subject.Title
	}
	return "Tutoring session"
}

func (s *Service) sendInvite(ctx context.Context, sess *model.Session, method mailer.Method) {
	to := s.emailsOf(ctx, sess.StudentID, tutorOf(sess))
	if len(to) == 0 {
		return
	}
	err := s.mail.SendInvite(ctx, mailer.Invite{
		UID:         sess.CalendarUID,
		Sequence:    sess.CalendarSequence,
		Method:      method,
		To:          to,
		Summary:     sessionSummary(sess),
		Description: sess.Note,
		Start:       sess.ScheduledAt,
		End:         sess.End(),
	})
	if err != nil {
		logging.Warn().Err(err).Str("session_id", sess.ID).Str("method", string(method)).Msg("failed to send calendar invite")
	}
}

// scheduleReminder queues the student's reminder email and records its
// handle while the session is still ACCEPTED.
func (s *Service) scheduleReminder(ctx context.Context, sess *model.Session) {
	at := sess.ScheduledAt.Add(-s.cfg.ReminderLead)
	if !at.After(s.clock()) {
		return
	}
	to := s.emailsOf(ctx, sess.StudentID)
	if len(to) == 0 {
		return
	}
	handle, err := s.mail.Schedule(ctx, mailer.Message{
		To:      to,
		Subject: "Reminder: " + sessionSummary(sess),
		Text:    "Your session starts at " + sess.ScheduledAt.In(s.cfg.Location).Format(noticeTimeLayout) + ".",
	}, at)
	if err != nil {
		logging.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to schedule reminder")
		return
	}
	if handle == "" {
		return
	}

	ok, err := s.store.UpdateSessionIf(ctx, sess.ID,
		store.Guard{Statuses: []model.SessionStatus{model.StatusAccepted}},
		map[string]any{"student_reminder_email_id": handle})
	if err != nil || !ok {
		if err != nil {
			logging.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to record reminder handle")
		}
		if cerr := s.mail.Cancel(ctx, handle); cerr != nil {
			logging.Warn().Err(cerr).Str("session_id", sess.ID).Msg("failed to withdraw orphaned reminder")
		}
		return
	}
	sess.StudentReminderEmailID = &handle
}

// cancelReminder withdraws the reminder recorded on the pre-update row.
func (s *Service) cancelReminder(ctx context.Context, before *model.Session) {
	if before.StudentReminderEmailID == nil || *before.StudentReminderEmailID == "" {
		return
	}
	if err := s.mail.Cancel(ctx, *before.StudentReminderEmailID); err != nil {
		logging.Warn().Err(err).Str("session_id", before.ID).Msg("failed to cancel reminder")
	}
}

type nopDispatcher struct{}

func (nopDispatcher) Notify(notification.Notice) {}

type nopMailer struct{}

func (nopMailer) Schedule(context.Context, mailer.Message, time.Time) (string, error) {
	return "", nil
}

func (nopMailer) Cancel(context.Context, string) error { return nil }

func (nopMailer) SendInvite(context.Context, mailer.Invite) error { return nil }
