package email

import (
	"context"
	"fmt"

	"github.com/brandon/termmail/internal/imap"
	"github.com/brandon/termmail/pkg/types"
)

// OpenIMAP connects and logs in to the IMAP server
func (a *Account) OpenIMAP(ctx context.Context) (*imap.Session, error) {
	s, err := a.dialIMAP(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.Login(a.Config.IMAP.Username, a.Config.IMAP.Password); err != nil {
		a.logger.WithError(err).Error("Failed to login to IMAP server")
		s.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	a.logger.WithField("host", a.Config.IMAP.Host).Info("Connected to IMAP server")
	return s, nil
}

func toMailbox(mb imap.Mailbox) types.Mailbox {
	return types.Mailbox{
		Name:        mb.Name,
		DisplayName: mb.DisplayName(),
		Selectable:  mb.Selectable,
		HasChildren: mb.HasChildren,
	}
}

func toAddress(c imap.Contact) types.Address {
	return types.Address{Name: c.Name, Email: c.Email}
}

func toAddresses(contacts []imap.Contact) []types.Address {
	if contacts == nil {
		return nil
	}
	out := make([]types.Address, len(contacts))
	for i, c := range contacts {
		out[i] = toAddress(c)
	}
	return out
}

func toSummary(index int, h imap.MessageHeader) types.MessageSummary {
	return types.MessageSummary{
		Index:   index,
		Seq:     h.ID,
		Subject: h.Subject,
		From:    toAddress(h.From),
		To:      toAddresses(h.To),
		Cc:      toAddresses(h.Cc),
		Bcc:     toAddresses(h.Bcc),
		Read:    h.Read,
	}
}
