package booking

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Lingges1210/tutorlink-sub001/internal/logging"
	"github.com/Lingges1210/tutorlink-sub001/internal/metrics"
	"github.com/Lingges1210/tutorlink-sub001/internal/model"
	"github.com/Lingges1210/tutorlink-sub001/internal/notification"
	"github.com/Lingges1210/tutorlink-sub001/internal/schedule"
	"github.com/Lingges1210/tutorlink-sub001/internal/store"
)

// Allocator matches unassigned sessions with eligible tutors.
type Allocator struct {
	store  store.Store
	notify notification.Dispatcher
	cfg    Config
	now    func() time.Time

	mu  sync.Mutex // guards rnd
	rnd *rand.Rand
}

// NewAllocator builds an allocator. A nil dispatcher disables notices.
func NewAllocator(st store.Store, d notification.Dispatcher, cfg Config, opts ...Option) *Allocator {
	o := buildOptions(opts)
	if d == nil {
		d = nopDispatcher{}
	}
	return &Allocator{store: st, notify: d, cfg: cfg, now: o.now, rnd: o.rnd}
}

// Allocate picks a tutor for subjectID who is free during [start, end) and
// whose newest availability document contains the window. ok is false when
// nobody qualifies.
func (a *Allocator) Allocate(ctx context.Context, subjectID string, start, end time.Time) (string, bool, error) {
	return a.allocate(ctx, subjectID, start, end, "")
}

func (a *Allocator) allocate(ctx context.Context, subjectID string, start, end time.Time, excludeID string) (string, bool, error) {
	candidates, err := a.store.EligibleTutors(ctx, subjectID, a.cfg.AllocationBatch)
	if err != nil {
		return "", false, err
	}
	if len(candidates) == 0 {
		return "", false, nil
	}
	a.shuffle(candidates)

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}

	rows, err := a.store.TutorBookings(ctx, ids, start, end)
	if err != nil {
		return "", false, err
	}
	busy := make(map[string]bool, len(rows))
	for i := range rows {
		if rows[i].TutorID != nil && schedule.FromSession(&rows[i]).Conflicts(start, end) {
			busy[*rows[i].TutorID] = true
		}
	}

	docs, err := a.store.LatestAvailabilities(ctx, ids)
	if err != nil {
		return "", false, err
	}

	for _, c := range candidates {
		if c.ID == excludeID || busy[c.ID] {
			continue
		}
		doc, ok := docs[c.ID]
		if !ok {
			continue
		}
		if schedule.IsWithinAvailability(doc.Days, start, end, a.cfg.Location) {
			return c.ID, true, nil
		}
	}
	return "", false, nil
}

// shuffle is an in-place Fisher-Yates shuffle.
func (a *Allocator) shuffle(users []model.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(users) - 1; i > 0; i-- {
		j := a.rnd.IntN(i + 1)
		users[i], users[j] = users[j], users[i]
	}
}

// AllocationResult summarises one batch.
type AllocationResult struct {
	Queued   int `json:"queued"`
	Assigned int `json:"assigned"`
}

// AssignBatch allocates tutors to the oldest unassigned future requests. A
// session someone else assigned in the meantime, or whose tutor was booked
// directly since the candidate scan, is skipped.
func (a *Allocator) AssignBatch(ctx context.Context) (AllocationResult, error) {
	started := time.Now()
	defer func() { metrics.AllocationDuration.Observe(time.Since(started).Seconds()) }()

	var res AllocationResult
	pending, err := a.store.UnassignedSessions(ctx, a.now().UTC(), a.cfg.AllocationQueue)
	if err != nil {
		return res, err
	}
	res.Queued = len(pending)

	for i := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		sess := &pending[i]

		tutorID, ok, err := a.allocate(ctx, sess.SubjectID, sess.ScheduledAt, sess.End(), sess.StudentID)
		if err != nil {
			metrics.RecordAllocation("error")
			logging.Warn().Err(err).Str("session_id", sess.ID).Msg("allocation failed")
			continue
		}
		if !ok {
			metrics.RecordAllocation("no_candidate")
			continue
		}

		assigned, err := a.commit(ctx, sess, tutorID)
		if err != nil {
			metrics.RecordAllocation("error")
			logging.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to commit allocation")
			continue
		}
		if !assigned {
			metrics.RecordAllocation("lost_race")
			continue
		}
		metrics.RecordAllocation("assigned")
		res.Assigned++

		logging.Info().Str("session_id", sess.ID).Str("tutor_id", tutorID).Msg("tutor allocated")
		a.notify.Notify(notification.Notice{
			UserID:    tutorID,
			Kind:      "session.assigned",
			Title:     "New session assigned",
			Body:      "You were matched with a student for " + sess.ScheduledAt.In(a.cfg.Location).Format(noticeTimeLayout) + ".",
			SessionID: sess.ID,
		})
		a.notify.Notify(notification.Notice{
			UserID:    sess.StudentID,
			Kind:      "session.matched",
			Title:     "Tutor found",
			Body:      "A tutor was matched to your request.",
			SessionID: sess.ID,
		})
	}
	return res, nil
}

// commit re-checks the tutor's calendar and assigns in one transaction. It
// reports false when the session was taken or the tutor is no longer free.
func (a *Allocator) commit(ctx context.Context, sess *model.Session, tutorID string) (bool, error) {
	start, end := sess.ScheduledAt, sess.End()
	var assigned bool
	err := a.store.WithTx(ctx, func(tx store.Store) error {
		busy, err := tx.ActiveBookings(ctx, tutorID, start, end, sess.ID)
		if err != nil {
			return err
		}
		if schedule.HasConflict(busy, start, end) {
			metrics.BookingConflicts.WithLabelValues("tutor").Inc()
			return nil
		}
		assigned, err = tx.AssignTutor(ctx, sess.ID, tutorID)
		return err
	})
	return assigned, err
}
