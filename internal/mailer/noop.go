package mailer

import (
	"context"
	"log/slog"
)

// NoopMailer pretends to send email. Used in development environments
// without provider credentials.
type NoopMailer struct {
	logger *slog.Logger
}

// NewNoopMailer constructs a no-op mailer
func NewNoopMailer(logger *slog.Logger) *NoopMailer {
	return &NoopMailer{logger: logger}
}

// Send logs the email and returns nil without sending
func (m *NoopMailer) Send(_ context.Context, to, subject, _ string) error {
	m.logger.Info("Noop mailer: dropping email",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	return nil
}
