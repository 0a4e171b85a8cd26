package mailer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Lingges1210/tutorlink-sub001/internal/logging"
)

// LogMailer writes every email to the log instead of sending it. It is used
// when no provider endpoint is configured.
type LogMailer struct{}

// NewLogMailer returns a dev-mode mailer.
func NewLogMailer() *LogMailer {
	logging.Warn().Msg("mailer running in dev mode, emails are logged only")
	return &LogMailer{}
}

func (LogMailer) Schedule(_ context.Context, msg Message, at time.Time) (string, error) {
	handle := "log-" + uuid.NewString()
	logging.Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Time("send_at", at).
		Str("handle", handle).
		Msg("scheduled email")
	return handle, nil
}

func (LogMailer) Cancel(_ context.Context, handle string) error {
	logging.Info().Str("handle", handle).Msg("cancelled scheduled email")
	return nil
}

func (LogMailer) SendInvite(_ context.Context, inv Invite) error {
	logging.Info().
		Strs("to", inv.To).
		Str("uid", inv.UID).
		Int("sequence", inv.Sequence).
		Str("method", string(inv.Method)).
		Time("start", inv.Start).
		Msg("calendar invite")
	return nil
}
