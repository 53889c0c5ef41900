// Package mailer sends plain-text email over SMTP.
package mailer

import (
	"context"
	"fmt"

	mail "gopkg.in/mail.v2"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/internal/config"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through the configured SMTP relay.
type SMTPMailer struct {
	cfg    config.EmailConfig
	dialer *mail.Dialer
}

func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.UseSSL
	return &SMTPMailer{cfg: cfg, dialer: d}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email := mail.NewMessage()
	email.SetHeader("From", m.cfg.From)
	email.SetHeader("To", msg.To)
	email.SetHeader("Subject", msg.Subject)
	email.SetBody("text/plain", msg.Body)

	if err := m.dialer.DialAndSend(email); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}
