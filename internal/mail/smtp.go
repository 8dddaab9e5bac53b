package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"github.com/trailheadapp/trailhead-server/internal/config"
)

// SMTPMailer delivers email through an SMTP relay.
type SMTPMailer struct {
	client   *gomail.Client
	fromName string
	fromAddr string
	logger   *slog.Logger
}

// NewSMTPMailer builds a mailer for the configured relay.
func NewSMTPMailer(cfg config.MailConfig, logger *slog.Logger) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPMailer{
		client:   client,
		fromName: cfg.FromName,
		fromAddr: cfg.FromAddr,
		logger:   logger,
	}, nil
}

// SendWelcome implements Mailer.
func (m *SMTPMailer) SendWelcome(ctx context.Context, to, name, url string) error {
	msg, err := renderMessage("welcome.html", to, name, "Welcome to the Trailhead family!", url)
	if err != nil {
		return err
	}
	return m.send(ctx, msg)
}

// SendPasswordReset implements Mailer.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, name, url string) error {
	msg, err := renderMessage("password_reset.html", to, name,
		"Your password reset token (valid for only 10 minutes)", url)
	if err != nil {
		return err
	}
	return m.send(ctx, msg)
}

func (m *SMTPMailer) send(ctx context.Context, msg *Message) error {
	email := gomail.NewMsg()
	if err := email.FromFormat(m.fromName, m.fromAddr); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := email.AddToFormat(msg.ToName, msg.To); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	email.Subject(msg.Subject)
	email.SetBodyString(gomail.TypeTextPlain, msg.Text)
	email.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)

	if err := m.client.DialAndSendWithContext(ctx, email); err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}

	m.logger.Info("sent email", "to", msg.To, "subject", msg.Subject)
	return nil
}
