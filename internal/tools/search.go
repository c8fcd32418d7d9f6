package tools

import (
	"context"
	"fmt"

	"github.com/brandon/termmail/internal/store"
)

// SearchArchiveTool searches headers recorded while paging
type SearchArchiveTool struct {
	archive Archive
}

// NewSearchArchiveTool creates a new search archive tool
func NewSearchArchiveTool(archive Archive) *SearchArchiveTool {
	return &SearchArchiveTool{archive: archive}
}

// Name returns the tool name
func (t *SearchArchiveTool) Name() string {
	return "search_archive"
}

// Description returns the tool description
func (t *SearchArchiveTool) Description() string {
	return "Search headers archived while browsing (sender, subject, mailbox, full text)"
}

// InputSchema returns the JSON schema for tool inputs
func (t *SearchArchiveTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Optional: Phrase matched against subject, sender and recipients",
			},
			"sender": map[string]interface{}{
				"type":        "string",
				"description": "Optional: Filter by sender email/name",
			},
			"subject": map[string]interface{}{
				"type":        "string",
				"description": "Optional: Filter by subject substring",
			},
			"mailbox": map[string]interface{}{
				"type":        "string",
				"description": "Optional: Filter by mailbox name",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Optional: Maximum results (default 100, max 1000)",
			},
		},
	}
}

// Execute executes the tool
func (t *SearchArchiveTool) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	limit, err := intParam(params, "limit", 0)
	if err != nil {
		return nil, err
	}
	opts := store.SearchOptions{
		Query:   stringParam(params, "query"),
		Sender:  stringParam(params, "sender"),
		Subject: stringParam(params, "subject"),
		Mailbox: stringParam(params, "mailbox"),
		Limit:   limit,
	}
	if opts.Query == "" && opts.Sender == "" && opts.Subject == "" && opts.Mailbox == "" {
		return nil, fmt.Errorf("at least one of query, sender, subject or mailbox is required")
	}

	results, err := t.archive.Search(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search archive: %w", err)
	}
	return map[string]interface{}{
		"count":   len(results),
		"results": results,
	}, nil
}
