package providers

import (
	"github.com/samber/do/v2"

	"github.com/trailheadapp/trailhead-server/internal/config"
	"github.com/trailheadapp/trailhead-server/internal/logger"
	"github.com/trailheadapp/trailhead-server/internal/mail"
)

// ProvideMailer provides the outgoing mailer. Without an SMTP host the
// log-only mailer is used, which is what development runs want.
func ProvideMailer(i do.Injector) (mail.Mailer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Mail.Host == "" {
		log.Info("No SMTP host configured, logging outgoing mail instead")
		return mail.NewLogMailer(log.Logger), nil
	}

	mailer, err := mail.NewSMTPMailer(cfg.Mail, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("SMTP mailer configured", "host", cfg.Mail.Host, "from", cfg.Mail.FromAddr)

	return mailer, nil
}
