package tools

import (
	"context"
	"fmt"

	"github.com/brandon/termmail/pkg/types"
)

// ListMessagesTool pages through the selected mailbox, newest first
type ListMessagesTool struct {
	mailer Mailer
}

// NewListMessagesTool creates a new list messages tool
func NewListMessagesTool(mailer Mailer) *ListMessagesTool {
	return &ListMessagesTool{mailer: mailer}
}

// Name returns the tool name
func (t *ListMessagesTool) Name() string {
	return "list_messages"
}

// Description returns the tool description
func (t *ListMessagesTool) Description() string {
	return "List one page of message headers in the selected mailbox, newest first"
}

// InputSchema returns the JSON schema for tool inputs
func (t *ListMessagesTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"page": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"current", "next", "prev"},
				"description": "Optional: move to the next (older) or previous (newer) page first",
			},
		},
	}
}

// Execute executes the tool
func (t *ListMessagesTool) Execute(_ context.Context, params map[string]interface{}) (interface{}, error) {
	var (
		page *types.Page
		err  error
	)
	switch move := stringParam(params, "page"); move {
	case "", "current":
		page, err = t.mailer.CurrentPage()
	case "next":
		page, err = t.mailer.NextPage()
	case "prev":
		page, err = t.mailer.PrevPage()
	default:
		return nil, fmt.Errorf("invalid page %q: use current, next or prev", move)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return page, nil
}

// ReadMessageTool returns the plain text body of a message on the current page
type ReadMessageTool struct {
	mailer Mailer
}

// NewReadMessageTool creates a new read message tool
func NewReadMessageTool(mailer Mailer) *ReadMessageTool {
	return &ReadMessageTool{mailer: mailer}
}

// Name returns the tool name
func (t *ReadMessageTool) Name() string {
	return "read_message"
}

// Description returns the tool description
func (t *ReadMessageTool) Description() string {
	return "Read the plain text body of a message on the current page"
}

// InputSchema returns the JSON schema for tool inputs
func (t *ReadMessageTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"index": map[string]interface{}{
				"type":        "integer",
				"minimum":     0,
				"description": "Position of the message on the current page, as returned by list_messages",
			},
		},
		"required": []string{"index"},
	}
}

// Execute executes the tool
func (t *ReadMessageTool) Execute(_ context.Context, params map[string]interface{}) (interface{}, error) {
	if _, ok := params["index"]; !ok {
		return nil, fmt.Errorf("index is required")
	}
	index, err := intParam(params, "index", 0)
	if err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, fmt.Errorf("index must not be negative")
	}

	body, err := t.mailer.Body(index)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	return body, nil
}
