package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Paul-Karonji/taskiq/internal/infrastructure/config"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/logger"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

// SMTPMailer delivers digest emails over plain SMTP
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPMailer creates a mailer from the notification configuration
func NewSMTPMailer(cfg config.NotificationConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}

	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		auth: auth,
		from: cfg.FromAddress,
	}
}

// Send delivers one message. net/smtp does not take a context; the dial uses
// the package's default timeout and a stuck server surfaces to the caller.
func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// NopMailer logs instead of sending; used when SMTP is not configured.
type NopMailer struct {
	logger *logger.Logger
}

func NewNopMailer(logger *logger.Logger) *NopMailer {
	return &NopMailer{logger: logger}
}

func (m *NopMailer) Send(_ context.Context, to, subject, _ string) error {
	m.logger.Info("Mail delivery skipped (no SMTP configured)", "to", to, "subject", subject)
	return nil
}

var (
	_ ports.Mailer = (*SMTPMailer)(nil)
	_ ports.Mailer = (*NopMailer)(nil)
)
