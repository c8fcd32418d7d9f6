package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/brandon/termmail/pkg/types"
)

// SearchOptions contains search parameters. Empty fields are not filtered on.
type SearchOptions struct {
	Mailbox string
	Sender  string
	Subject string
	// Query is matched as a phrase against the full-text index of subject,
	// sender and recipients.
	Query string
	Limit int
}

// Search performs a search on archived headers
func (s *Store) Search(ctx context.Context, opts SearchOptions) ([]types.EmailSummary, error) {
	var conditions []string
	var args []interface{}

	if opts.Mailbox != "" {
		conditions = append(conditions, "m.name = ?")
		args = append(args, opts.Mailbox)
	}

	if opts.Sender != "" {
		conditions = append(conditions, "(h.sender_email LIKE ? OR h.sender_name LIKE ?)")
		searchTerm := "%" + opts.Sender + "%"
		args = append(args, searchTerm, searchTerm)
	}

	if opts.Subject != "" {
		conditions = append(conditions, "h.subject LIKE ?")
		args = append(args, "%"+opts.Subject+"%")
	}

	if opts.Query != "" {
		conditions = append(conditions, "h.id IN (SELECT rowid FROM headers_fts WHERE headers_fts MATCH ?)")
		args = append(args, ftsPhrase(opts.Query))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT h.id, m.name AS mailbox, h.seq, h.subject, h.sender_name, h.sender_email, h.recipients, h.seen, h.recorded_at
		FROM headers h
		JOIN mailboxes m ON h.mailbox_id = m.id
		%s
		ORDER BY h.recorded_at DESC, h.seq DESC
		LIMIT ?
	`, whereClause)
	args = append(args, clampLimit(opts.Limit))

	var rows []headerRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search headers: %w", err)
	}

	s.logger.WithField("results", len(rows)).Debug("Archive search")
	return summaries(rows), nil
}

// ftsPhrase quotes q as a single FTS5 phrase so operators in user input are
// matched literally.
func ftsPhrase(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}
