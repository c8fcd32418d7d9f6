package email

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/brandon/termmail/internal/cache"
	"github.com/brandon/termmail/internal/config"
	"github.com/brandon/termmail/internal/imap"
	"github.com/brandon/termmail/pkg/types"
)

var (
	// ErrNotOpen is returned before Open succeeds or after Close.
	ErrNotOpen = errors.New("email: session is not open")
	// ErrMailboxNotFound is returned when selecting a name the server did
	// not list.
	ErrMailboxNotFound = errors.New("email: mailbox not found")
)

// Archive records what the manager sees for offline search.
type Archive interface {
	cache.Recorder
	UpsertMailboxes(ctx context.Context, mailboxes []imap.Mailbox) error
}

// Manager serialises access to one IMAP session and the message cache of
// its selected mailbox. SMTP sessions are opened per send.
type Manager struct {
	mu        sync.Mutex
	account   *Account
	archive   Archive
	config    *config.Root
	logger    *logrus.Logger
	session   *imap.Session
	mailboxes []imap.Mailbox
	selected  string
	messages  *cache.MessageCache
}

// NewManager creates a new email manager. archive may be nil.
func NewManager(cfg *config.Root, archive Archive, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		account: NewAccount(cfg, logger),
		archive: archive,
		config:  cfg,
		logger:  logger,
	}
}

// Account returns the account the manager connects with
func (m *Manager) Account() *Account {
	return m.account
}

// Open logs in, lists mailboxes and selects the configured mailbox
func (m *Manager) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return nil
	}

	s, err := m.account.OpenIMAP(ctx)
	if err != nil {
		return err
	}
	m.session = s

	if _, err := m.listMailboxes(ctx); err != nil {
		m.closeSession()
		return err
	}
	if err := m.selectMailbox(m.config.Mailbox); err != nil {
		m.closeSession()
		return err
	}
	return nil
}

// Mailboxes lists the mailboxes on the server
func (m *Manager) Mailboxes(ctx context.Context) ([]types.Mailbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, ErrNotOpen
	}
	mailboxes, err := m.listMailboxes(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]types.Mailbox, len(mailboxes))
	for i, mb := range mailboxes {
		out[i] = toMailbox(mb)
	}
	return out, nil
}

// Select selects a listed mailbox and starts a fresh message cache
func (m *Manager) Select(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return ErrNotOpen
	}
	return m.selectMailbox(name)
}

// Selected returns the name of the selected mailbox
func (m *Manager) Selected() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

// CurrentPage returns the current page of the selected mailbox
func (m *Manager) CurrentPage() (*types.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentPage()
}

// NextPage moves to the next older page and returns it
func (m *Manager) NextPage() (*types.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.messages == nil {
		return nil, ErrNotOpen
	}
	m.messages.NextPage()
	return m.currentPage()
}

// PrevPage moves to the next newer page and returns it
func (m *Manager) PrevPage() (*types.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.messages == nil {
		return nil, ErrNotOpen
	}
	m.messages.PrevPage()
	return m.currentPage()
}

// Body returns the plain text of the message at index on the current page
func (m *Manager) Body(index int) (*types.MessageBody, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.messages == nil {
		return nil, ErrNotOpen
	}
	page, err := m.messages.CurrentPage()
	if err != nil {
		return nil, err
	}
	raw, err := m.messages.GetBody(index)
	if err != nil {
		return nil, err
	}

	h := page[index]
	return &types.MessageBody{
		Seq:     h.ID,
		Subject: h.Subject,
		From:    toAddress(h.From),
		Text:    imap.LiteralText(raw),
	}, nil
}

// Send sends an email over a new SMTP session
func (m *Manager) Send(ctx context.Context, msg *EmailMessage) error {
	// SMTP is independent of the IMAP session, so only the account is shared.
	return m.account.Send(ctx, msg)
}

// Close logs out of the IMAP session
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}
	err := m.session.Logout()
	m.session = nil
	m.messages = nil
	m.selected = ""
	return err
}

func (m *Manager) listMailboxes(ctx context.Context) ([]imap.Mailbox, error) {
	mailboxes, err := m.session.ListMailboxes()
	if err != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", err)
	}
	m.mailboxes = mailboxes

	if m.archive != nil {
		if err := m.archive.UpsertMailboxes(ctx, mailboxes); err != nil {
			m.logger.WithError(err).Warn("Failed to archive mailboxes")
		}
	}
	return mailboxes, nil
}

func (m *Manager) selectMailbox(name string) error {
	mb, ok := m.findMailbox(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMailboxNotFound, name)
	}
	if err := m.session.SelectMailbox(mb); err != nil {
		if errors.Is(err, imap.ErrNotSelectable) {
			return err
		}
		m.messages = nil
		m.selected = ""
		return fmt.Errorf("failed to select %s: %w", name, err)
	}

	opts := cache.Options{
		PageSize:  m.config.PageSize,
		BatchSize: m.config.BatchSize,
		Mailbox:   mb.Name,
		Logger:    m.logger,
	}
	if m.archive != nil {
		opts.Recorder = m.archive
	}
	m.messages = cache.NewMessageCache(m.session, opts)
	m.selected = mb.Name

	m.logger.WithField("mailbox", mb.Name).Info("Selected mailbox")
	return nil
}

// findMailbox matches the listed names exactly, except INBOX which is
// case-insensitive and always selectable.
func (m *Manager) findMailbox(name string) (imap.Mailbox, bool) {
	for _, mb := range m.mailboxes {
		if mb.Name == name {
			return mb, true
		}
	}
	if imap.IsInbox(name) {
		return imap.Mailbox{Name: imap.InboxName, Selectable: true}, true
	}
	return imap.Mailbox{}, false
}

func (m *Manager) currentPage() (*types.Page, error) {
	if m.messages == nil {
		return nil, ErrNotOpen
	}
	headers, err := m.messages.CurrentPage()
	if err != nil {
		return nil, err
	}

	page := &types.Page{
		Mailbox:   m.selected,
		Page:      m.messages.Page(),
		PageSize:  m.messages.PageSize(),
		Exhausted: m.messages.Exhausted(),
		Messages:  make([]types.MessageSummary, len(headers)),
	}
	for i, h := range headers {
		page.Messages[i] = toSummary(i, h)
	}
	return page, nil
}

func (m *Manager) closeSession() {
	if err := m.session.Close(); err != nil {
		m.logger.WithError(err).Debug("Failed to close IMAP session")
	}
	m.session = nil
	m.messages = nil
	m.selected = ""
}
