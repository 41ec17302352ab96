package mailer

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"

	"github.com/noah-isme/perf-review-api/pkg/config"
)

// Message is a single HTML email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// SMTPMailer delivers messages over SMTP with mandatory STARTTLS.
type SMTPMailer struct {
	from   string
	dialer *mail.Dialer
}

// NewSMTPMailer validates the settings and prepares a dialer.
func NewSMTPMailer(cfg config.NotificationsConfig) (*SMTPMailer, error) {
	if cfg.SMTPHost == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	d := mail.NewDialer(cfg.SMTPHost, port, cfg.SMTPUser, cfg.SMTPPass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.SMTPHost,
		InsecureSkipVerify: cfg.SkipTLSVerify, //nolint:gosec // opt-in for local relays
	}

	return &SMTPMailer{from: cfg.From, dialer: d}, nil
}

// Send delivers msg. A message without recipients is dropped silently.
func (m *SMTPMailer) Send(msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if err := m.dialer.DialAndSend(Build(m.from, msg)); err != nil {
		return fmt.Errorf("send mail %q: %w", msg.Subject, err)
	}
	return nil
}

// Build converts msg into a go-mail message sent from the given address.
func Build(from string, msg Message) *mail.Message {
	out := mail.NewMessage()
	out.SetHeader("From", from)
	out.SetHeader("To", msg.To...)
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/html", msg.HTML)
	return out
}
