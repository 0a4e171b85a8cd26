package booking

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/Lingges1210/tutorlink-sub001/config"
)

// Config holds the lifecycle tunables in ready-to-use form.
type Config struct {
	Location        *time.Location
	Grace           time.Duration
	ChatWindow      time.Duration
	ProposalLead    time.Duration
	ReminderLead    time.Duration
	DefaultDuration int
	MinDuration     int
	MaxDuration     int
	AllocationBatch int
	AllocationQueue int
	SweepBatch      int
	LazySweepEvery  time.Duration
}

// ConfigFrom converts the file configuration.
func ConfigFrom(c *config.BookingConfig) (Config, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid booking timezone %q: %w", c.Timezone, err)
	}
	return Config{
		Location:        loc,
		Grace:           time.Duration(c.GraceMinutes) * time.Minute,
		ChatWindow:      time.Duration(c.ChatWindowHours) * time.Hour,
		ProposalLead:    time.Duration(c.ProposalLeadMinutes) * time.Minute,
		ReminderLead:    time.Duration(c.ReminderLeadMinutes) * time.Minute,
		DefaultDuration: c.DefaultDurationMinutes,
		MinDuration:     c.MinDurationMinutes,
		MaxDuration:     c.MaxDurationMinutes,
		AllocationBatch: c.AllocationBatchSize,
		AllocationQueue: c.AllocationQueueSize,
		SweepBatch:      c.SweepBatchSize,
		LazySweepEvery:  30 * time.Second,
	}, nil
}

// DefaultConfig mirrors the configuration defaults.
func DefaultConfig() Config {
	return Config{
		Location:        time.UTC,
		Grace:           15 * time.Minute,
		ChatWindow:      8 * time.Hour,
		ProposalLead:    5 * time.Minute,
		ReminderLead:    60 * time.Minute,
		DefaultDuration: 60,
		MinDuration:     30,
		MaxDuration:     180,
		AllocationBatch: 50,
		AllocationQueue: 100,
		SweepBatch:      200,
		LazySweepEvery:  30 * time.Second,
	}
}

// Option customises a Service, Allocator or Sweeper.
type Option func(*options)

type options struct {
	now func() time.Time
	rnd *rand.Rand
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRand replaces the random source used to shuffle allocation candidates.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rnd = r }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rnd == nil {
		o.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}
