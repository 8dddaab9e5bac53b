package mail

import (
	"context"
	"log/slog"
)

// LogMailer writes emails to the log instead of sending them. Used in
// development where no SMTP relay is configured, so reset links stay
// reachable from the console.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendWelcome implements Mailer.
func (m *LogMailer) SendWelcome(_ context.Context, to, name, url string) error {
	m.logger.Info("welcome email (not sent, no mail host configured)",
		"to", to,
		"name", name,
		"url", url,
	)
	return nil
}

// SendPasswordReset implements Mailer.
func (m *LogMailer) SendPasswordReset(_ context.Context, to, name, url string) error {
	m.logger.Info("password reset email (not sent, no mail host configured)",
		"to", to,
		"name", name,
		"url", url,
	)
	return nil
}
