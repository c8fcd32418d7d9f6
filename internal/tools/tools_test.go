package tools

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/termmail/internal/email"
	"github.com/brandon/termmail/internal/store"
	"github.com/brandon/termmail/pkg/types"
)

type fakeMailer struct {
	page     int
	selected string
	sent     []*email.EmailMessage
	bodyErr  error
}

func (f *fakeMailer) Mailboxes(context.Context) ([]types.Mailbox, error) {
	return []types.Mailbox{
		{Name: "INBOX", DisplayName: "INBOX", Selectable: true},
		{Name: "Entw&APw-rfe", DisplayName: "Entwürfe", Selectable: true},
	}, nil
}

func (f *fakeMailer) Select(name string) error {
	if name != "INBOX" {
		return errors.New("mailbox not found")
	}
	f.selected = name
	f.page = 0
	return nil
}

func (f *fakeMailer) CurrentPage() (*types.Page, error) {
	return &types.Page{Mailbox: f.selected, Page: f.page, PageSize: 2}, nil
}

func (f *fakeMailer) NextPage() (*types.Page, error) {
	f.page++
	return f.CurrentPage()
}

func (f *fakeMailer) PrevPage() (*types.Page, error) {
	if f.page > 0 {
		f.page--
	}
	return f.CurrentPage()
}

func (f *fakeMailer) Body(index int) (*types.MessageBody, error) {
	if f.bodyErr != nil {
		return nil, f.bodyErr
	}
	return &types.MessageBody{Seq: uint32(10 - index), Text: "hello"}, nil
}

func (f *fakeMailer) Send(_ context.Context, msg *email.EmailMessage) error {
	f.sent = append(f.sent, msg)
	return nil
}

type fakeArchive struct {
	opts store.SearchOptions
}

func (f *fakeArchive) Search(_ context.Context, opts store.SearchOptions) ([]types.EmailSummary, error) {
	f.opts = opts
	return []types.EmailSummary{{Subject: "Q3 budget review"}}, nil
}

func newTestRegistry(mailer Mailer, archive Archive) *Registry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRegistry(mailer, archive, logger)
}

func execute(t *testing.T, r *Registry, name string, params map[string]interface{}) (interface{}, error) {
	t.Helper()
	tool, ok := r.GetTool(name)
	require.True(t, ok, "tool %s not registered", name)
	return tool.Execute(context.Background(), params)
}

func TestRegistryDefinitions(t *testing.T) {
	r := newTestRegistry(&fakeMailer{}, &fakeArchive{})

	var names []string
	for _, def := range r.GetToolDefinitions() {
		names = append(names, def["name"].(string))
		assert.NotEmpty(t, def["description"])
		assert.NotNil(t, def["inputSchema"])
	}
	assert.Equal(t, []string{
		"list_mailboxes",
		"list_messages",
		"read_message",
		"search_archive",
		"select_mailbox",
		"send_email",
	}, names)
}

func TestRegistryWithoutArchive(t *testing.T) {
	r := newTestRegistry(&fakeMailer{}, nil)

	_, ok := r.GetTool("search_archive")
	assert.False(t, ok)
	assert.Len(t, r.ListTools(), 5)
}

func TestListMailboxes(t *testing.T) {
	r := newTestRegistry(&fakeMailer{}, nil)

	result, err := execute(t, r, "list_mailboxes", nil)
	require.NoError(t, err)
	mailboxes := result.([]types.Mailbox)
	require.Len(t, mailboxes, 2)
	assert.Equal(t, "Entwürfe", mailboxes[1].DisplayName)
}

func TestSelectMailbox(t *testing.T) {
	mailer := &fakeMailer{page: 3}
	r := newTestRegistry(mailer, nil)

	_, err := execute(t, r, "select_mailbox", map[string]interface{}{})
	assert.Error(t, err)

	_, err = execute(t, r, "select_mailbox", map[string]interface{}{"name": "Nope"})
	assert.Error(t, err)

	result, err := execute(t, r, "select_mailbox", map[string]interface{}{"name": "INBOX"})
	require.NoError(t, err)
	page := result.(*types.Page)
	assert.Equal(t, "INBOX", page.Mailbox)
	assert.Equal(t, 0, page.Page)
}

func TestListMessagesPaging(t *testing.T) {
	r := newTestRegistry(&fakeMailer{}, nil)

	tests := []struct {
		move string
		want int
	}{
		{"", 0},
		{"next", 1},
		{"next", 2},
		{"current", 2},
		{"prev", 1},
		{"prev", 0},
		{"prev", 0},
	}
	for _, tt := range tests {
		result, err := execute(t, r, "list_messages", map[string]interface{}{"page": tt.move})
		require.NoError(t, err)
		assert.Equal(t, tt.want, result.(*types.Page).Page, "after %q", tt.move)
	}

	_, err := execute(t, r, "list_messages", map[string]interface{}{"page": "last"})
	assert.Error(t, err)
}

func TestReadMessage(t *testing.T) {
	mailer := &fakeMailer{}
	r := newTestRegistry(mailer, nil)

	result, err := execute(t, r, "read_message", map[string]interface{}{"index": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, uint32(8), result.(*types.MessageBody).Seq)

	tests := []struct {
		name   string
		params map[string]interface{}
	}{
		{"missing", map[string]interface{}{}},
		{"fraction", map[string]interface{}{"index": 1.5}},
		{"string", map[string]interface{}{"index": "1"}},
		{"negative", map[string]interface{}{"index": float64(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, r, "read_message", tt.params)
			assert.Error(t, err)
		})
	}

	mailer.bodyErr = errors.New("index out of range")
	_, err = execute(t, r, "read_message", map[string]interface{}{"index": float64(9)})
	assert.ErrorIs(t, err, mailer.bodyErr)
}

func TestSendEmail(t *testing.T) {
	mailer := &fakeMailer{}
	r := newTestRegistry(mailer, nil)

	_, err := execute(t, r, "send_email", map[string]interface{}{
		"to":      "ann@example.com, bob@example.com",
		"cc":      []interface{}{"carol@example.com"},
		"bcc":     []interface{}{" ", "dave@example.com"},
		"subject": "Lunch",
		"body":    "Friday?",
	})
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)

	msg := mailer.sent[0]
	assert.Equal(t, []string{"ann@example.com", "bob@example.com"}, msg.To)
	assert.Equal(t, []string{"carol@example.com"}, msg.Cc)
	assert.Equal(t, []string{"dave@example.com"}, msg.Bcc)
	assert.Equal(t, "Lunch", msg.Subject)
	assert.Equal(t, "Friday?", msg.Body)
}

func TestSendEmailInvalid(t *testing.T) {
	mailer := &fakeMailer{}
	r := newTestRegistry(mailer, nil)

	tests := []struct {
		name   string
		params map[string]interface{}
	}{
		{"no recipient", map[string]interface{}{"subject": "x"}},
		{"blank recipient", map[string]interface{}{"to": " , ", "subject": "x"}},
		{"no subject", map[string]interface{}{"to": "a@example.com"}},
		{"bad to type", map[string]interface{}{"to": float64(1), "subject": "x"}},
		{"bad cc item", map[string]interface{}{"to": "a@example.com", "cc": []interface{}{1.0}, "subject": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, r, "send_email", tt.params)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, mailer.sent)
}

func TestSearchArchive(t *testing.T) {
	archive := &fakeArchive{}
	r := newTestRegistry(&fakeMailer{}, archive)

	_, err := execute(t, r, "search_archive", map[string]interface{}{})
	assert.Error(t, err)

	result, err := execute(t, r, "search_archive", map[string]interface{}{
		"query":   "budget",
		"sender":  "finance",
		"mailbox": "INBOX",
		"limit":   float64(5),
	})
	require.NoError(t, err)
	assert.Equal(t, store.SearchOptions{
		Query:   "budget",
		Sender:  "finance",
		Mailbox: "INBOX",
		Limit:   5,
	}, archive.opts)
	assert.Equal(t, 1, result.(map[string]interface{})["count"])
}
