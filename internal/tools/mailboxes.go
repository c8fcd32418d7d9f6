package tools

import (
	"context"
	"fmt"
)

// ListMailboxesTool lists the mailboxes on the server
type ListMailboxesTool struct {
	mailer Mailer
}

// NewListMailboxesTool creates a new list mailboxes tool
func NewListMailboxesTool(mailer Mailer) *ListMailboxesTool {
	return &ListMailboxesTool{mailer: mailer}
}

// Name returns the tool name
func (t *ListMailboxesTool) Name() string {
	return "list_mailboxes"
}

// Description returns the tool description
func (t *ListMailboxesTool) Description() string {
	return "List the mailboxes of the account with their decoded display names"
}

// InputSchema returns the JSON schema for tool inputs
func (t *ListMailboxesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// Execute executes the tool
func (t *ListMailboxesTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	mailboxes, err := t.mailer.Mailboxes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", err)
	}
	return mailboxes, nil
}

// SelectMailboxTool selects a mailbox and returns its newest page
type SelectMailboxTool struct {
	mailer Mailer
}

// NewSelectMailboxTool creates a new select mailbox tool
func NewSelectMailboxTool(mailer Mailer) *SelectMailboxTool {
	return &SelectMailboxTool{mailer: mailer}
}

// Name returns the tool name
func (t *SelectMailboxTool) Name() string {
	return "select_mailbox"
}

// Description returns the tool description
func (t *SelectMailboxTool) Description() string {
	return "Select a mailbox by its server name and return the first page of messages"
}

// InputSchema returns the JSON schema for tool inputs
func (t *SelectMailboxTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{
				"type":        "string",
				"description": "Mailbox name as returned by list_mailboxes",
			},
		},
		"required": []string{"name"},
	}
}

// Execute executes the tool
func (t *SelectMailboxTool) Execute(_ context.Context, params map[string]interface{}) (interface{}, error) {
	name := stringParam(params, "name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if err := t.mailer.Select(name); err != nil {
		return nil, err
	}
	return t.mailer.CurrentPage()
}
