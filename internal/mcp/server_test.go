package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/termmail/internal/email"
	"github.com/brandon/termmail/internal/tools"
	"github.com/brandon/termmail/pkg/types"
)

type stubMailer struct{}

func (stubMailer) Mailboxes(context.Context) ([]types.Mailbox, error) {
	return []types.Mailbox{{Name: "INBOX", DisplayName: "INBOX", Selectable: true}}, nil
}
func (stubMailer) Select(string) error                             { return nil }
func (stubMailer) CurrentPage() (*types.Page, error)               { return &types.Page{Mailbox: "INBOX"}, nil }
func (stubMailer) NextPage() (*types.Page, error)                  { return &types.Page{Mailbox: "INBOX", Page: 1}, nil }
func (stubMailer) PrevPage() (*types.Page, error)                  { return &types.Page{Mailbox: "INBOX"}, nil }
func (stubMailer) Body(int) (*types.MessageBody, error)            { return &types.MessageBody{Text: "hi"}, nil }
func (stubMailer) Send(context.Context, *email.EmailMessage) error { return nil }

func runRequests(t *testing.T, requests ...string) []map[string]interface{} {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := NewServer(tools.NewRegistry(stubMailer{}, nil, logger), "test", logger)

	var out strings.Builder
	err := s.Run(context.Background(), strings.NewReader(strings.Join(requests, "\n")), &out)
	require.NoError(t, err)

	var responses []map[string]interface{}
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	for scanner.Scan() {
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func TestInitializeAndList(t *testing.T) {
	responses := runRequests(t,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	)
	require.Len(t, responses, 2)

	result := responses[0]["result"].(map[string]interface{})
	assert.Equal(t, protocolVersion, result["protocolVersion"])
	info := result["serverInfo"].(map[string]interface{})
	assert.Equal(t, "termmail", info["name"])
	assert.Equal(t, "test", info["version"])

	assert.Equal(t, float64(2), responses[1]["id"])
	list := responses[1]["result"].(map[string]interface{})["tools"].([]interface{})
	assert.Len(t, list, 5)
}

func TestToolsCall(t *testing.T) {
	responses := runRequests(t,
		`{"jsonrpc":"2.0","id":"a","method":"tools/call","params":{"name":"list_messages","arguments":{"page":"next"}}}`,
	)
	require.Len(t, responses, 1)

	content := responses[0]["result"].(map[string]interface{})["content"].([]interface{})
	require.Len(t, content, 1)
	item := content[0].(map[string]interface{})
	assert.Equal(t, "text", item["type"])

	var page types.Page
	require.NoError(t, json.Unmarshal([]byte(item["text"].(string)), &page))
	assert.Equal(t, 1, page.Page)
}

func TestErrors(t *testing.T) {
	responses := runRequests(t,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope"}}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"read_message","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{}}`,
	)
	require.Len(t, responses, 4)

	codes := make([]float64, len(responses))
	for i, resp := range responses {
		codes[i] = resp["error"].(map[string]interface{})["code"].(float64)
	}
	assert.Equal(t, []float64{codeMethodNotFound, codeInternalError, codeMethodNotFound, codeInvalidParams}, codes)
}

func TestMalformedRequest(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := NewServer(tools.NewRegistry(stubMailer{}, nil, logger), "test", logger)

	var out strings.Builder
	err := s.Run(context.Background(), strings.NewReader("{not json}\n"), &out)
	assert.Error(t, err)
	assert.Contains(t, out.String(), `"code":-32700`)
}
