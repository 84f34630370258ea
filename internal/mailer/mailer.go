package mailer

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"log/slog"
)

//go:embed templates/confirm_email.html
var confirmEmailHTML string

//go:embed templates/reset_password.html
var resetPasswordHTML string

var (
	confirmEmailTmpl  = template.Must(template.New("confirm_email").Parse(confirmEmailHTML))
	resetPasswordTmpl = template.Must(template.New("reset_password").Parse(resetPasswordHTML))
)

// Sender delivers a rendered email to a single recipient.
type Sender interface {
	Send(ctx context.Context, to string, subject string, bodyHTML string) error
}

// Mailer renders templated emails and hands them to a Sender. It is the
// outbound email transport for the auth flows; callers treat delivery as
// fire-and-forget.
type Mailer struct {
	sender Sender
}

func New(sender Sender) *Mailer {
	return &Mailer{sender: sender}
}

type tokenEmailData struct {
	Host     string
	Username string
	Token    string
}

// SendConfirmation renders and sends the email-confirmation message. The
// link embeds the signed confirmation token.
func (m *Mailer) SendConfirmation(ctx context.Context, email string, username string, host string, token string) error {
	return m.sendTokenEmail(ctx, confirmEmailTmpl, "Confirm your email", email, username, host, token)
}

// SendPasswordReset renders and sends the password-reset message. The link
// embeds the signed reset token.
func (m *Mailer) SendPasswordReset(ctx context.Context, email string, username string, host string, token string) error {
	return m.sendTokenEmail(ctx, resetPasswordTmpl, "Reset your password", email, username, host, token)
}

func (m *Mailer) sendTokenEmail(ctx context.Context, tmpl *template.Template, subject string, email string, username string, host string, token string) error {
	var body bytes.Buffer
	err := tmpl.Execute(&body, tokenEmailData{
		Host:     host,
		Username: username,
		Token:    token,
	})
	if err != nil {
		return err
	}

	if err := m.sender.Send(ctx, email, subject, body.String()); err != nil {
		return err
	}

	slog.Info("email sent", "email", email, "subject", subject)
	return nil
}
