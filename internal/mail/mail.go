// Package mail delivers notification emails. The tracker only needs the
// Sender interface; delivery failures never change an operation's outcome.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strconv"
	"strings"
)

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NopSender drops every message. Used when SMTP is not configured.
type NopSender struct{}

func (NopSender) Send(context.Context, Message) error { return nil }

// SMTPConfig holds the relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender returns a sender for cfg. From defaults to Username.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(msg.To, "\r\n") || strings.ContainsAny(msg.Subject, "\r\n") {
		return fmt.Errorf("invalid header value")
	}

	body := []byte("Subject: " + msg.Subject + "\r\n" +
		"From: " + s.cfg.From + "\r\n" +
		"To: " + msg.To + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n" +
		msg.HTML + "\r\n")

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	if err := s.send(addr, auth, s.cfg.From, []string{msg.To}, body); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

var invitationTemplate = template.Must(template.New("invitation").Parse(`<div style="font-family: 'Segoe UI', Tahoma, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1 style="color: #0284c7;">TaskOverflow</h1>
  <p>Hello {{.Name}},</p>
  <p>{{.Inviter}} added you to the project <strong>{{.Project}}</strong> as {{.Role}}.</p>
  <p>Sign in to TaskOverflow to see its tasks.</p>
  <p style="color: #94a3b8; font-size: 12px;">This email was sent by TaskOverflow.</p>
</div>`))

// Invitation holds the values rendered into the collaborator invite.
type Invitation struct {
	To      string
	Name    string
	Inviter string
	Project string
	Role    string
}

// InvitationMessage renders the "you were added to a project" email.
func InvitationMessage(inv Invitation) (Message, error) {
	var buf bytes.Buffer
	if err := invitationTemplate.Execute(&buf, inv); err != nil {
		return Message{}, fmt.Errorf("render invitation: %w", err)
	}
	return Message{
		To:      inv.To,
		Subject: "TaskOverflow - You were added to " + inv.Project,
		HTML:    buf.String(),
	}, nil
}
