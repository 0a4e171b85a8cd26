package booking

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/Lingges1210/tutorlink-sub001/internal/logging"
	"github.com/Lingges1210/tutorlink-sub001/internal/metrics"
	"github.com/Lingges1210/tutorlink-sub001/internal/model"
	"github.com/Lingges1210/tutorlink-sub001/internal/notification"
	"github.com/Lingges1210/tutorlink-sub001/internal/store"
)

// Sweeper completes ACCEPTED sessions once their end plus the grace period
// has passed. Runs are safe to overlap: each row flips at most once.
type Sweeper struct {
	store  store.Store
	notify notification.Dispatcher
	cfg    Config
	now    func() time.Time

	lazy *rate.Limiter
}

// NewSweeper builds a sweeper. A nil dispatcher disables notices.
func NewSweeper(st store.Store, d notification.Dispatcher, cfg Config, opts ...Option) *Sweeper {
	o := buildOptions(opts)
	if d == nil {
		d = nopDispatcher{}
	}
	return &Sweeper{
		store:  st,
		notify: d,
		cfg:    cfg,
		now:    o.now,
		lazy:   rate.NewLimiter(rate.Every(cfg.LazySweepEvery), 1),
	}
}

// SweepResult counts the rows examined and the rows this run completed.
type SweepResult struct {
	Checked   int `json:"checked"`
	Completed int `json:"completed"`
}

// Run completes every overdue session in one bounded batch. A failure on one
// row is logged and does not stop the others.
func (s *Sweeper) Run(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now().UTC()

	overdue, err := s.store.OverdueAccepted(ctx, now.Add(-s.cfg.Grace), s.cfg.SweepBatch)
	if err != nil {
		return res, err
	}
	res.Checked = len(overdue)

	for i := range overdue {
		sess := &overdue[i]
		done, err := s.complete(ctx, sess, now)
		if err != nil {
			logging.Warn().Err(err).Str("session_id", sess.ID).Msg("sweep failed to complete session")
			continue
		}
		if !done {
			continue
		}
		res.Completed++
		metrics.SweepCompleted.Inc()

		for _, userID := range []string{sess.StudentID, tutorOf(sess)} {
			if userID == "" {
				continue
			}
			s.notify.Notify(notification.Notice{
				UserID:    userID,
				Kind:      "session.completed",
				Title:     "Session completed",
				Body:      "Chat stays open for " + s.cfg.ChatWindow.String() + " after the session.",
				SessionID: sess.ID,
			})
		}
	}

	if res.Completed > 0 {
		logging.Info().Int("checked", res.Checked).Int("completed", res.Completed).Msg("auto-completion sweep")
	}
	return res, nil
}

// complete flips one row and schedules its chat close in one transaction.
// It reports false when another writer already moved the row.
func (s *Sweeper) complete(ctx context.Context, sess *model.Session, now time.Time) (bool, error) {
	var done bool
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		ok, err := tx.UpdateSessionIf(ctx, sess.ID,
			store.Guard{Statuses: []model.SessionStatus{model.StatusAccepted}},
			map[string]any{"status": model.StatusCompleted, "completed_at": now})
		if err != nil || !ok {
			return err
		}
		done = true
		return scheduleClose(ctx, tx, sess, sess.End().Add(s.cfg.ChatWindow))
	})
	if err != nil {
		return false, err
	}
	return done, nil
}

// RunLazy runs the sweep from a read path, at most once per
// Config.LazySweepEvery across all callers. Errors are only logged.
func (s *Sweeper) RunLazy(ctx context.Context) {
	if !s.lazy.AllowN(s.now(), 1) {
		return
	}
	metrics.SweepRuns.WithLabelValues("lazy").Inc()
	if _, err := s.Run(ctx); err != nil {
		logging.Warn().Err(err).Msg("lazy sweep failed")
	}
}
