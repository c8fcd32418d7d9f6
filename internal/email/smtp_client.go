package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/brandon/termmail/internal/smtp"
)

// EmailMessage represents an email to be sent
type EmailMessage struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
}

// Validate checks that the message can be submitted. Every recipient must be
// a single address and no field may contain a line break.
func (m *EmailMessage) Validate() error {
	if len(m.To)+len(m.Cc)+len(m.Bcc) == 0 {
		return errors.New("at least one recipient is required")
	}
	if m.Subject == "" {
		return errors.New("subject is required")
	}
	return m.message().Validate()
}

func (m *EmailMessage) message() *smtp.Message {
	return &smtp.Message{
		To:      m.To,
		Cc:      m.Cc,
		Bcc:     m.Bcc,
		Subject: m.Subject,
		Body:    m.Body,
	}
}

// Send opens an SMTP session, submits msg and quits
func (a *Account) Send(ctx context.Context, msg *EmailMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	s, err := a.dialSMTP(ctx)
	if err != nil {
		return err
	}

	if err := s.Login(a.Config.SMTP.Username, a.Config.SMTP.Password); err != nil {
		s.Close() //nolint:errcheck
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	err = s.SendEmail(msg.message())
	if err != nil {
		s.Close() //nolint:errcheck
		return fmt.Errorf("failed to send email: %w", err)
	}

	if err := s.Quit(); err != nil {
		a.logger.WithError(err).Warn("SMTP QUIT failed after delivery")
	}
	return nil
}
