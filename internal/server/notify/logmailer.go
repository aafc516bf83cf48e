package notify

import (
	"context"

	"github.com/dmitrijs2005/lastword/internal/logging"
)

// LogMailer logs messages instead of sending them. Used in development when
// no SMTP relay is configured.
type LogMailer struct {
	logger logging.Logger
}

// NewLogMailer returns a mailer that writes every message to the logger.
func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendMail(ctx context.Context, msg *Message) error {
	args := []any{"to", msg.To, "subject", msg.Subject, "body", msg.Body}
	if msg.Attachment != nil {
		args = append(args, "attachment", msg.Attachment.Filename)
	}
	m.logger.Info(ctx, "outbound mail", args...)
	return nil
}
