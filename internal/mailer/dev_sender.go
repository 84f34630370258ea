package mailer

import (
	"context"
	"log/slog"
)

// DevSender logs emails instead of delivering them. Used when MAIL_DEV is
// set, so local environments work without an SMTP server.
type DevSender struct{}

func (DevSender) Send(_ context.Context, to string, subject string, bodyHTML string) error {
	slog.Info("dev mailer: email suppressed", "to", to, "subject", subject, "bytes", len(bodyHTML))
	return nil
}
