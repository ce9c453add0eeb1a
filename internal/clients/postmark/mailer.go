package postmark

import (
	"context"
	"fmt"
	"log/slog"

	"buzzaar/internal/config"

	"github.com/keighl/postmark"
)

// Mailer sends transactional mail through Postmark.
type Mailer struct {
	client *postmark.Client
	from   string
	log    *slog.Logger
}

// NewMailer creates a Postmark-backed mailer
func NewMailer(cfg config.Config, log *slog.Logger) *Mailer {
	return &Mailer{
		client: postmark.NewClient(cfg.PostmarkToken, ""),
		from:   cfg.MailFrom,
		log:    log,
	}
}

// Send delivers a single HTML email
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := m.client.SendEmail(postmark.Email{
		From:     m.from,
		To:       to,
		Subject:  subject,
		HtmlBody: body,
		TextBody: body,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.log.Debug("email sent", "to", to, "subject", subject)
	return nil
}

// LogMailer writes mail to the log instead of sending it. Used when no
// Postmark token is configured (local development, e2e runs).
type LogMailer struct {
	log *slog.Logger
}

// NewLogMailer creates a mailer that only logs
func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

// Send logs the message that would have been delivered
func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.log.Info("mail suppressed, no delivery token configured", "to", to, "subject", subject, "body", body)
	return nil
}
