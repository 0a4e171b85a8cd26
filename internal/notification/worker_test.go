package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lingges1210/tutorlink-sub001/internal/db"
	"github.com/Lingges1210/tutorlink-sub001/internal/model"
	"github.com/Lingges1210/tutorlink-sub001/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	gdb, err := db.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	return store.NewGormStore(gdb)
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestWorkerPool_NotifyQueues(t *testing.T) {
	wp := NewWorkerPool(1, 2, newTestStore(t), &webpush.Options{})

	wp.Notify(Notice{UserID: "alice", Kind: "session.accepted"})

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, "alice", job.UserID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_NotifyDropsWhenFull(t *testing.T) {
	wp := NewWorkerPool(1, 1, newTestStore(t), nil)

	wp.Notify(Notice{UserID: "a"})
	done := make(chan struct{})
	go func() {
		wp.Notify(Notice{UserID: "b"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
	assert.Len(t, wp.Jobs(), 1)
}

func TestWorkerPool_Delivery(t *testing.T) {
	st := newTestStore(t)
	wp := NewWorkerPool(1, 8, st, &webpush.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, st.SaveSubscription(ctx, &model.PushSubscription{
		Endpoint: "https://push.example/alive", UserID: "alice", P256DH: "k", Auth: "a", CreatedAt: time.Now(),
	}))
	require.NoError(t, st.SaveSubscription(ctx, &model.PushSubscription{
		Endpoint: "https://push.example/gone", UserID: "alice", P256DH: "k2", Auth: "a2", CreatedAt: time.Now(),
	}))

	var mu sync.Mutex
	var sent []string
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			var p pushPayload
			assert.NoError(t, json.Unmarshal(payload, &p))
			assert.Equal(t, "Session cancelled", p.Title)
			assert.Equal(t, "s-1", p.SessionID)

			mu.Lock()
			sent = append(sent, sub.Endpoint)
			mu.Unlock()
			if sub.Endpoint == "https://push.example/gone" {
				return response(http.StatusGone), nil
			}
			return response(http.StatusCreated), nil
		},
	}
	wp.Start(ctx)

	wp.Notify(Notice{UserID: "alice", Kind: "session.cancelled", Title: "Session cancelled", SessionID: "s-1"})

	require.Eventually(t, func() bool {
		mu.Lock()
		n := len(sent)
		mu.Unlock()
		subs, err := st.ListSubscriptions(ctx, "alice")
		return n == 2 && err == nil && len(subs) == 1
	}, 2*time.Second, 10*time.Millisecond, "expired subscription should be deleted")

	mu.Lock()
	assert.ElementsMatch(t, []string{"https://push.example/alive", "https://push.example/gone"}, sent)
	mu.Unlock()

	feed, err := st.ListNotifications(ctx, "alice", store.Page{})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "session.cancelled", feed[0].Kind)
	require.NotNil(t, feed[0].SessionID)
	assert.Equal(t, "s-1", *feed[0].SessionID)
}

func TestWorkerPool_FeedOnlyWithoutPush(t *testing.T) {
	st := newTestStore(t)
	wp := NewWorkerPool(1, 4, st, nil)
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			t.Error("push must not be attempted without VAPID options")
			return response(http.StatusCreated), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Notify(Notice{UserID: "bob", Kind: "session.completed", Title: "Session completed"})

	require.Eventually(t, func() bool {
		n, err := st.CountUnread(ctx, "bob")
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)
}
