// Package mailer is the client side of the transactional email provider:
// scheduled sends, cancellation of a scheduled send, and calendar invites.
// Rendering the calendar file is the provider's job.
package mailer

import (
	"context"
	"time"

	"github.com/Lingges1210/tutorlink-sub001/config"
)

// Method is the calendar-invite method.
type Method string

const (
	MethodRequest Method = "REQUEST"
	MethodCancel  Method = "CANCEL"
)

// Message is a plain email.
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// Invite is a calendar event update. UID is stable for the life of a session
// and Sequence must grow on every change so calendar clients replace the
// previous copy.
type Invite struct {
	UID         string    `json:"uid"`
	Sequence    int       `json:"sequence"`
	Method      Method    `json:"method"`
	To          []string  `json:"to"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// Mailer sends email through the provider. Callers treat every error as
// non-fatal.
type Mailer interface {
	// Schedule queues msg for delivery at the given instant and returns the
	// provider's handle for it.
	Schedule(ctx context.Context, msg Message, at time.Time) (string, error)
	// Cancel withdraws a scheduled message. Unknown handles are not an error.
	Cancel(ctx context.Context, handle string) error
	SendInvite(ctx context.Context, inv Invite) error
}

// New returns the provider client, or a LogMailer when no endpoint is set.
func New(cfg *config.MailConfig) Mailer {
	if cfg.Endpoint == "" {
		return NewLogMailer()
	}
	return NewHTTPMailer(cfg)
}
