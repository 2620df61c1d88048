package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// Sender delivers one transactional email.
type Sender interface {
	Send(to, subject, body string) error
}

// LogSender writes emails to the log instead of delivering them. Used in
// development and tests.
type LogSender struct {
	Logger zerolog.Logger
}

// Send implements Sender.
func (s LogSender) Send(to, subject, body string) error {
	s.Logger.Info().
		Str("to", to).
		Str("subject", subject).
		Int("body_bytes", len(body)).
		Msg("email suppressed")
	return nil
}

// SMTPSender delivers email through a plain SMTP relay.
type SMTPSender struct {
	Addr string
	From string
	Auth smtp.Auth
}

// Send implements Sender.
func (s SMTPSender) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(s.Addr, s.Auth, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("notify: smtp send: %w", err)
	}
	return nil
}
