package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Lingges1210/tutorlink-sub001/config"
	"github.com/Lingges1210/tutorlink-sub001/internal/logging"
	"github.com/Lingges1210/tutorlink-sub001/internal/metrics"
)

// HTTPMailer talks to a JSON email API. Calls go through a circuit breaker so
// a provider outage fails fast instead of stalling booking requests.
type HTTPMailer struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
	cb       *gobreaker.CircuitBreaker[[]byte]
}

// NewHTTPMailer builds a provider client from configuration.
func NewHTTPMailer(cfg *config.MailConfig) *HTTPMailer {
	threshold := cfg.BreakerThreshold
	if threshold == 0 {
		threshold = 5
	}
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "mail-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})

	return &HTTPMailer{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		client:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		cb:       cb,
	}
}

type scheduleRequest struct {
	From        string    `json:"from"`
	To          []string  `json:"to"`
	Subject     string    `json:"subject"`
	Text        string    `json:"text"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type scheduleResponse struct {
	ID string `json:"id"`
}

type inviteRequest struct {
	From string `json:"from"`
	Invite
}

func (m *HTTPMailer) Schedule(ctx context.Context, msg Message, at time.Time) (string, error) {
	body, err := m.call(ctx, "schedule", http.MethodPost, "/emails", scheduleRequest{
		From:        m.from,
		To:          msg.To,
		Subject:     msg.Subject,
		Text:        msg.Text,
		ScheduledAt: at.UTC(),
	})
	if err != nil {
		return "", err
	}
	var resp scheduleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode schedule response: %w", err)
	}
	if resp.ID == "" {
		return "", errors.New("mail provider returned no message id")
	}
	return resp.ID, nil
}

func (m *HTTPMailer) Cancel(ctx context.Context, handle string) error {
	_, err := m.call(ctx, "cancel", http.MethodPost, "/emails/"+url.PathEscape(handle)+"/cancel", nil)
	if errors.Is(err, errNotFound) {
		return nil
	}
	return err
}

func (m *HTTPMailer) SendInvite(ctx context.Context, inv Invite) error {
	_, err := m.call(ctx, "invite", http.MethodPost, "/invites", inviteRequest{From: m.from, Invite: inv})
	return err
}

var errNotFound = errors.New("mail provider: not found")

// call runs one request through the breaker. 4xx answers other than 404 are
// the caller's fault and do not count against the provider.
func (m *HTTPMailer) call(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var clientErr error
	body, err := m.cb.Execute(func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			buf, err := json.Marshal(payload)
			if err != nil {
				return nil, err
			}
			reader = bytes.NewReader(buf)
		}

		req, err := http.NewRequestWithContext(ctx, method, m.endpoint+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if m.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+m.apiKey)
		}

		resp, err := m.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		switch {
		case resp.StatusCode == http.StatusNotFound:
			clientErr = errNotFound
			return nil, nil
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("mail provider returned %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			clientErr = fmt.Errorf("mail provider rejected request: %d %s", resp.StatusCode, strings.TrimSpace(string(data)))
			return nil, nil
		}
		return data, nil
	})
	if err == nil {
		err = clientErr
	}

	result := "ok"
	if err != nil {
		result = "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = "rejected"
		}
	}
	metrics.MailRequests.WithLabelValues(op, result).Inc()
	return body, err
}
