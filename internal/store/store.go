package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/brandon/termmail/internal/imap"
	"github.com/brandon/termmail/pkg/types"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type mailboxRow struct {
	Name        string         `db:"name"`
	DisplayName string         `db:"display_name"`
	Selectable  bool           `db:"selectable"`
	HasChildren bool           `db:"has_children"`
	LastSynced  sql.NullString `db:"last_synced"`
}

type headerRow struct {
	ID          int64  `db:"id"`
	Mailbox     string `db:"mailbox"`
	Seq         uint32 `db:"seq"`
	Subject     string `db:"subject"`
	SenderName  string `db:"sender_name"`
	SenderEmail string `db:"sender_email"`
	Recipients  string `db:"recipients"`
	Seen        bool   `db:"seen"`
	RecordedAt  string `db:"recorded_at"`
}

func (r headerRow) summary() types.EmailSummary {
	return types.EmailSummary{
		ID:          r.ID,
		Mailbox:     r.Mailbox,
		Seq:         r.Seq,
		Subject:     r.Subject,
		SenderName:  r.SenderName,
		SenderEmail: r.SenderEmail,
		Recipients:  r.Recipients,
		Read:        r.Seen,
		RecordedAt:  parseTimestamp(r.RecordedAt),
	}
}

// UpsertMailboxes records a LIST result
func (s *Store) UpsertMailboxes(ctx context.Context, mailboxes []imap.Mailbox) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO mailboxes (name, display_name, selectable, has_children, last_synced)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			display_name = excluded.display_name,
			selectable = excluded.selectable,
			has_children = excluded.has_children,
			last_synced = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare mailbox upsert: %w", err)
	}
	defer stmt.Close()

	for _, mb := range mailboxes {
		if _, err := stmt.ExecContext(ctx, mb.Name, mb.DisplayName(), mb.Selectable, mb.HasChildren); err != nil {
			return fmt.Errorf("failed to upsert mailbox %s: %w", mb.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mailboxes: %w", err)
	}
	return nil
}

// ListMailboxes lists archived mailboxes by name
func (s *Store) ListMailboxes(ctx context.Context) ([]types.Mailbox, error) {
	var rows []mailboxRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT name, display_name, selectable, has_children, last_synced
		FROM mailboxes
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mailboxes: %w", err)
	}

	mailboxes := make([]types.Mailbox, 0, len(rows))
	for _, row := range rows {
		mb := types.Mailbox{
			Name:        row.Name,
			DisplayName: row.DisplayName,
			Selectable:  row.Selectable,
			HasChildren: row.HasChildren,
		}
		if row.LastSynced.Valid {
			t := parseTimestamp(row.LastSynced.String)
			mb.LastSynced = &t
		}
		mailboxes = append(mailboxes, mb)
	}
	return mailboxes, nil
}

// RecordHeaders upserts one batch of headers for mailbox in a single
// transaction.
func (s *Store) RecordHeaders(mailbox string, headers []imap.MessageHeader) error {
	ctx := context.Background()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	mailboxID, err := ensureMailbox(ctx, tx, mailbox)
	if err != nil {
		return err
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO headers (mailbox_id, seq, subject, sender_name, sender_email, recipients, seen)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mailbox_id, seq) DO UPDATE SET
			subject = excluded.subject,
			sender_name = excluded.sender_name,
			sender_email = excluded.sender_email,
			recipients = excluded.recipients,
			seen = excluded.seen,
			recorded_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare header upsert: %w", err)
	}
	defer stmt.Close()

	for _, h := range headers {
		_, err := stmt.ExecContext(ctx,
			mailboxID,
			h.ID,
			h.Subject,
			h.From.Name,
			h.From.Email,
			joinRecipients(h),
			h.Read,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert header %d: %w", h.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit headers: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"mailbox": mailbox,
		"count":   len(headers),
	}).Debug("Archived headers")
	return nil
}

// ListHeaders returns up to limit archived headers of mailbox, highest
// sequence number first.
func (s *Store) ListHeaders(ctx context.Context, mailbox string, limit int) ([]types.EmailSummary, error) {
	var rows []headerRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT h.id, m.name AS mailbox, h.seq, h.subject, h.sender_name, h.sender_email, h.recipients, h.seen, h.recorded_at
		FROM headers h
		JOIN mailboxes m ON h.mailbox_id = m.id
		WHERE m.name = ?
		ORDER BY h.seq DESC
		LIMIT ?
	`, mailbox, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query headers: %w", err)
	}
	return summaries(rows), nil
}

func ensureMailbox(ctx context.Context, tx *sqlx.Tx, name string) (int64, error) {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO mailboxes (name, display_name) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, name, imap.Mailbox{Name: name}.DisplayName())
	if err != nil {
		return 0, fmt.Errorf("failed to insert mailbox %s: %w", name, err)
	}

	var id int64
	if err := tx.GetContext(ctx, &id, "SELECT id FROM mailboxes WHERE name = ?", name); err != nil {
		return 0, fmt.Errorf("failed to get mailbox ID: %w", err)
	}
	return id, nil
}

func joinRecipients(h imap.MessageHeader) string {
	var parts []string
	for _, list := range [][]imap.Contact{h.To, h.Cc, h.Bcc} {
		for _, c := range list {
			parts = append(parts, c.String())
		}
	}
	return strings.Join(parts, ", ")
}

func summaries(rows []headerRow) []types.EmailSummary {
	out := make([]types.EmailSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.summary())
	}
	return out
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
