package tools

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/brandon/termmail/internal/email"
	"github.com/brandon/termmail/internal/store"
	"github.com/brandon/termmail/pkg/types"
)

// Mailer is the live mailbox session the tools drive.
// *email.Manager implements it.
type Mailer interface {
	Mailboxes(ctx context.Context) ([]types.Mailbox, error)
	Select(name string) error
	CurrentPage() (*types.Page, error)
	NextPage() (*types.Page, error)
	PrevPage() (*types.Page, error)
	Body(index int) (*types.MessageBody, error)
	Send(ctx context.Context, msg *email.EmailMessage) error
}

// Archive searches recorded headers. *store.Store implements it.
type Archive interface {
	Search(ctx context.Context, opts store.SearchOptions) ([]types.EmailSummary, error)
}

// Registry manages MCP tools
type Registry struct {
	logger  *logrus.Logger
	mailer  Mailer
	archive Archive
	tools   map[string]Tool
}

// Tool represents an MCP tool
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// NewRegistry creates a new tool registry. archive may be nil, in which case
// search_archive is not offered.
func NewRegistry(mailer Mailer, archive Archive, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	reg := &Registry{
		logger:  logger,
		mailer:  mailer,
		archive: archive,
		tools:   make(map[string]Tool),
	}
	reg.registerTools()
	return reg
}

func (r *Registry) registerTools() {
	toolList := []Tool{
		NewListMailboxesTool(r.mailer),
		NewSelectMailboxTool(r.mailer),
		NewListMessagesTool(r.mailer),
		NewReadMessageTool(r.mailer),
		NewSendEmailTool(r.mailer, r.logger),
	}
	if r.archive != nil {
		toolList = append(toolList, NewSearchArchiveTool(r.archive))
	}

	for _, tool := range toolList {
		r.tools[tool.Name()] = tool
		r.logger.WithField("tool", tool.Name()).Debug("Registered tool")
	}

	r.logger.WithField("count", len(r.tools)).Info("Registered tools")
}

// GetTool returns a tool by name
func (r *Registry) GetTool(name string) (Tool, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// ListTools returns all registered tools ordered by name
func (r *Registry) ListTools() []Tool {
	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// GetToolDefinitions returns tool definitions for MCP
func (r *Registry) GetToolDefinitions() []map[string]interface{} {
	tools := r.ListTools()
	definitions := make([]map[string]interface{}, 0, len(tools))
	for _, tool := range tools {
		definitions = append(definitions, map[string]interface{}{
			"name":        tool.Name(),
			"description": tool.Description(),
			"inputSchema": tool.InputSchema(),
		})
	}
	return definitions
}
