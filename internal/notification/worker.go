package notification

import (
	"context"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/goccy/go-json"

	"github.com/Lingges1210/tutorlink-sub001/internal/logging"
	"github.com/Lingges1210/tutorlink-sub001/internal/metrics"
	"github.com/Lingges1210/tutorlink-sub001/internal/model"
	"github.com/Lingges1210/tutorlink-sub001/internal/store"
)

// Notice is one message for one user. It becomes a feed row plus a web push
// to each of the user's browsers.
type Notice struct {
	UserID    string
	Kind      string
	Title     string
	Body      string
	SessionID string
}

// Dispatcher accepts notices for best-effort delivery. Notify must not block
// the caller and must not report failures.
type Dispatcher interface {
	Notify(n Notice)
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers for delivering notices.
type WorkerPool struct {
	size    int
	jobs    chan Notice
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	now     func() time.Time
}

// NewWorkerPool creates a new worker pool. A nil webpushOptions disables push
// delivery; feed rows are still written.
func NewWorkerPool(size, queueSize int, st store.Store, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Notice, queueSize),
		store:   st,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		now:     time.Now,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	logging.Debug().Int("worker", id).Msg("notification worker started")
	for {
		select {
		case n := <-wp.jobs:
			wp.deliver(ctx, n)
		case <-ctx.Done():
			logging.Debug().Int("worker", id).Msg("notification worker shutting down")
			return
		}
	}
}

// Notify queues a notice. When the queue is full the notice is dropped.
func (wp *WorkerPool) Notify(n Notice) {
	select {
	case wp.jobs <- n:
	default:
		metrics.NotificationsDropped.Inc()
		logging.Warn().
			Str("user_id", n.UserID).
			Str("kind", n.Kind).
			Str("session_id", n.SessionID).
			Msg("notification queue full, dropping notice")
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Notice {
	return wp.jobs
}

type pushPayload struct {
	Kind      string `json:"kind"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

func (wp *WorkerPool) deliver(ctx context.Context, n Notice) {
	row := &model.Notification{
		UserID:    n.UserID,
		Kind:      n.Kind,
		Title:     n.Title,
		Body:      n.Body,
		CreatedAt: wp.now().UTC(),
	}
	if n.SessionID != "" {
		sid := n.SessionID
		row.SessionID = &sid
	}
	if err := wp.store.CreateNotification(ctx, row); err != nil {
		logging.Warn().Err(err).Str("user_id", n.UserID).Str("kind", n.Kind).Msg("failed to store notification")
	}

	if wp.webpush == nil {
		return
	}

	subscriptions, err := wp.store.ListSubscriptions(ctx, n.UserID)
	if err != nil {
		logging.Warn().Err(err).Str("user_id", n.UserID).Msg("failed to fetch push subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(pushPayload{Kind: n.Kind, Title: n.Title, Body: n.Body, SessionID: n.SessionID})
	if err != nil {
		logging.Warn().Err(err).Msg("failed to encode push payload")
		return
	}
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		metrics.PushDeliveries.WithLabelValues("error").Inc()
		logging.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to send push notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		metrics.PushDeliveries.WithLabelValues("gone").Inc()
		logging.Info().Str("endpoint", sub.Endpoint).Msg("push subscription expired, deleting")
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			logging.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to delete expired subscription")
		}
		return
	}
	metrics.PushDeliveries.WithLabelValues("sent").Inc()
}
