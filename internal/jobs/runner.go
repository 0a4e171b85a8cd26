// Package jobs runs the batch operations on a timer inside the server
// process. The cron endpoints remain the primary trigger; this loop is for
// deployments without an external scheduler.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/Lingges1210/tutorlink-sub001/internal/booking"
	"github.com/Lingges1210/tutorlink-sub001/internal/logging"
	"github.com/Lingges1210/tutorlink-sub001/internal/metrics"
)

// Job is one periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner owns the goroutines of a set of jobs.
type Runner struct {
	jobs []Job
	wg   sync.WaitGroup
}

// NewRunner returns a runner for jobs. Jobs with a non-positive interval are
// skipped.
func NewRunner(jobs ...Job) *Runner {
	r := &Runner{}
	for _, j := range jobs {
		if j.Interval <= 0 {
			logging.Warn().Str("job", j.Name).Msg("job has no interval, not scheduling")
			continue
		}
		r.jobs = append(r.jobs, j)
	}
	return r
}

// Start launches every job. Each runs once immediately, then after every
// interval until ctx is done.
func (r *Runner) Start(ctx context.Context) {
	for _, j := range r.jobs {
		r.wg.Add(1)
		go func(j Job) {
			defer r.wg.Done()
			loop(ctx, j)
		}(j)
	}
}

// Wait blocks until every job has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func loop(ctx context.Context, j Job) {
	logging.Info().Str("job", j.Name).Dur("interval", j.Interval).Msg("starting job")
	runOnce(ctx, j)

	timer := time.NewTimer(j.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("job", j.Name).Msg("job shutting down")
			return
		case <-timer.C:
			runOnce(ctx, j)
			timer.Reset(j.Interval)
		}
	}
}

func runOnce(ctx context.Context, j Job) {
	if ctx.Err() != nil {
		return
	}
	if err := j.Run(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Str("job", j.Name).Msg("job run failed")
	}
}

// SweepJob completes overdue sessions every interval.
func SweepJob(s *booking.Sweeper, interval time.Duration) Job {
	return Job{
		Name:     "auto-complete",
		Interval: interval,
		Run: func(ctx context.Context) error {
			metrics.SweepRuns.WithLabelValues("timer").Inc()
			_, err := s.Run(ctx)
			return err
		},
	}
}

// AllocateJob assigns tutors to queued requests every interval.
func AllocateJob(a *booking.Allocator, interval time.Duration) Job {
	return Job{
		Name:     "allocate",
		Interval: interval,
		Run: func(ctx context.Context) error {
			res, err := a.AssignBatch(ctx)
			if err != nil {
				return err
			}
			if res.Assigned > 0 {
				logging.Info().Int("queued", res.Queued).Int("assigned", res.Assigned).Msg("allocation batch")
			}
			return nil
		},
	}
}
