// Package metrics exposes prometheus instrumentation for the session engine:
// state transitions, allocation outcomes, sweep progress, notification
// delivery and HTTP latency.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session lifecycle
	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorlink_session_transitions_total",
			Help: "Session state transitions by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: "ok", "conflict", "lost_race"
	)

	BookingConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorlink_booking_conflicts_total",
			Help: "Rejected bookings by the side that was already booked",
		},
		[]string{"side"}, // "student", "tutor"
	)

	// Allocation
	AllocationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorlink_allocation_attempts_total",
			Help: "Allocation attempts by result",
		},
		[]string{"result"}, // "assigned", "no_candidate", "lost_race", "error"
	)

	AllocationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tutorlink_allocation_batch_duration_seconds",
			Help:    "Duration of allocation batches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Auto-completion sweep
	SweepCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorlink_sweep_completed_total",
			Help: "Sessions moved to COMPLETED by the sweep",
		},
	)

	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorlink_sweep_runs_total",
			Help: "Sweep invocations by trigger",
		},
		[]string{"trigger"}, // "lazy", "cron", "timer"
	)

	// Notifications
	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorlink_notifications_dropped_total",
			Help: "Notices dropped because the worker queue was full",
		},
	)

	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorlink_push_deliveries_total",
			Help: "Web push deliveries by result",
		},
		[]string{"result"}, // "sent", "gone", "error"
	)

	// Email collaborator
	MailRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorlink_mail_requests_total",
			Help: "Email provider calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	// HTTP
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorlink_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route", "status"},
	)
)

// RecordTransition counts one attempted state transition.
func RecordTransition(operation, outcome string) {
	SessionTransitions.WithLabelValues(operation, outcome).Inc()
}

// RecordAllocation counts one allocation attempt.
func RecordAllocation(result string) {
	AllocationAttempts.WithLabelValues(result).Inc()
}

// RecordAPIRequest records the latency of one HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// GinMiddleware records request latency labelled by the matched route
// template, so path parameters do not explode label cardinality.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RecordAPIRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
