package email

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/brandon/termmail/internal/config"
	"github.com/brandon/termmail/internal/imap"
	"github.com/brandon/termmail/internal/smtp"
)

// IMAPDialer opens an unauthenticated IMAP session.
type IMAPDialer func(ctx context.Context) (*imap.Session, error)

// SMTPDialer opens an unauthenticated SMTP session.
type SMTPDialer func(ctx context.Context) (*smtp.Session, error)

// Account represents the configured mail account and how to reach it
type Account struct {
	Config   *config.Root
	logger   *logrus.Logger
	dialIMAP IMAPDialer
	dialSMTP SMTPDialer
}

// NewAccount creates an account that dials the configured servers over TLS
func NewAccount(cfg *config.Root, logger *logrus.Logger) *Account {
	if logger == nil {
		logger = logrus.New()
	}
	a := &Account{
		Config: cfg,
		logger: logger,
	}
	a.dialIMAP = func(ctx context.Context) (*imap.Session, error) {
		s, err := imap.Connect(ctx, cfg.IMAP.Host, cfg.IMAP.Port, cfg.IMAP.TLSConfig(), a.logger)
		if err != nil {
			return nil, err
		}
		s.SetTimeout(cfg.Timeout)
		return s, nil
	}
	a.dialSMTP = func(ctx context.Context) (*smtp.Session, error) {
		s, err := smtp.Connect(ctx, cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.TLSConfig(), a.logger)
		if err != nil {
			return nil, err
		}
		s.SetTimeout(cfg.Timeout)
		return s, nil
	}
	return a
}

// SetDialers replaces how sessions are opened. A nil dialer keeps the
// current one.
func (a *Account) SetDialers(dialIMAP IMAPDialer, dialSMTP SMTPDialer) {
	if dialIMAP != nil {
		a.dialIMAP = dialIMAP
	}
	if dialSMTP != nil {
		a.dialSMTP = dialSMTP
	}
}

// SetLogger sets the logger for the account
func (a *Account) SetLogger(logger *logrus.Logger) {
	a.logger = logger
}
