// Package mail delivers account verification emails.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"storefront-service/pkg/config"
	"storefront-service/pkg/logger"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

const verificationSubject = "Storefront account verification"

//go:embed templates/*.html
var templateFS embed.FS

var verificationTemplate = template.Must(template.ParseFS(templateFS, "templates/verification_email.html"))

// VerificationMessage is the data rendered into the verification email
type VerificationMessage struct {
	Username string
	Link     string
}

// Sender delivers a verification message to a recipient
type Sender interface {
	SendVerification(ctx context.Context, recipient string, msg VerificationMessage) error
}

// RenderVerification renders the HTML body of the verification email
func RenderVerification(msg VerificationMessage) (string, error) {
	var buf bytes.Buffer
	if err := verificationTemplate.Execute(&buf, msg); err != nil {
		return "", fmt.Errorf("failed to render verification email: %w", err)
	}
	return buf.String(), nil
}

// SMTPSender sends mail through an SMTP server
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates a sender from the mail configuration
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// SendVerification renders and sends the verification email.
// It gives up waiting once ctx is done; the SMTP session itself is not interruptible.
func (s *SMTPSender) SendVerification(ctx context.Context, recipient string, msg VerificationMessage) error {
	body, err := RenderVerification(msg)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", verificationSubject)
	m.SetBody("text/html", body)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogSender writes the verification link to the log instead of sending mail.
// Used when MAIL_ENABLED is false.
type LogSender struct{}

// SendVerification logs the verification link
func (LogSender) SendVerification(ctx context.Context, recipient string, msg VerificationMessage) error {
	logger.FromContext(ctx).Info("Mail delivery disabled, verification link logged",
		zap.String("username", msg.Username),
		zap.String("verification_link", msg.Link))
	return nil
}

// NewSender picks the SMTP sender when mail is enabled and the log sender otherwise
func NewSender(cfg config.MailConfig) Sender {
	if cfg.Enabled {
		return NewSMTPSender(cfg)
	}
	return LogSender{}
}
