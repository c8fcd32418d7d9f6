package imap

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandon/termmail/internal/testutil"
	"github.com/brandon/termmail/internal/transport"
)

var inbox = Mailbox{Name: "INBOX", Selectable: true}

func newTestSession(t *testing.T, replies ...string) (*Session, *testutil.ScriptedServer) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	srv, conn := testutil.NewScriptedServer(t, "* OK IMAP4rev1 Service Ready\r\n", replies...)
	s, err := NewSession(transport.New(conn, logger), logger)
	require.NoError(t, err)
	return s, srv
}

func selectReply() string {
	return testutil.Lines("* 3 EXISTS", "* 0 RECENT", "? OK [READ-WRITE] SELECT completed")
}

func TestLogin(t *testing.T) {
	s, srv := newTestSession(t, "? OK LOGIN completed\r\n")

	require.NoError(t, s.Login("user@example.com", `pa"ss\word`))
	assert.True(t, s.Authenticated())
	assert.Equal(t, []string{`? LOGIN "user@example.com" "pa\"ss\\word"`}, srv.Received())
}

func TestLoginRejected(t *testing.T) {
	s, _ := newTestSession(t, "? NO [AUTHENTICATIONFAILED] Invalid credentials\r\n")

	err := s.Login("user@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.False(t, s.Authenticated())
}

func TestListMailboxes(t *testing.T) {
	s, srv := newTestSession(t, testutil.Lines(
		`* LIST (\HasNoChildren) "/" "INBOX"`,
		`* LIST (\HasChildren \Noselect) "/" "[Gmail]"`,
		`* LIST (\HasNoChildren \Trash) "/" "[Gmail]/Trash"`,
		"? OK LIST completed",
	))

	mailboxes, err := s.ListMailboxes()
	require.NoError(t, err)
	assert.Equal(t, []Mailbox{
		{Name: "INBOX", Selectable: true},
		{Name: "[Gmail]", HasChildren: true},
		{Name: "[Gmail]/Trash", Selectable: true},
	}, mailboxes)
	assert.Equal(t, []string{`? LIST "*" "*"`}, srv.Received())
}

func TestSelectNotSelectable(t *testing.T) {
	s, srv := newTestSession(t)

	err := s.SelectMailbox(Mailbox{Name: "[Gmail]", HasChildren: true})
	assert.ErrorIs(t, err, ErrNotSelectable)
	assert.Empty(t, srv.Received())

	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestOperationsNeedSelection(t *testing.T) {
	s, _ := newTestSession(t)

	_, err := s.MessageCount()
	assert.ErrorIs(t, err, ErrNoMailboxSelected)
	_, err = s.FetchHeaders(From(1))
	assert.ErrorIs(t, err, ErrNoMailboxSelected)
	_, err = s.FetchBodyStructure(1)
	assert.ErrorIs(t, err, ErrNoMailboxSelected)
	_, err = s.ReadEmailText(1)
	assert.ErrorIs(t, err, ErrNoMailboxSelected)
}

func TestMessageCount(t *testing.T) {
	s, srv := newTestSession(t,
		selectReply(),
		testutil.Lines(`* STATUS "INBOX" (MESSAGES 42)`, "? OK STATUS completed"),
	)

	require.NoError(t, s.SelectMailbox(inbox))
	selected, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, inbox, selected)

	count, err := s.MessageCount()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), count)
	assert.Equal(t, []string{`? SELECT "INBOX"`, `? STATUS "INBOX" (MESSAGES)`}, srv.Received())
}

func TestMessageCountUnparsable(t *testing.T) {
	s, _ := newTestSession(t,
		selectReply(),
		testutil.Lines(`* STATUS "INBOX" ()`, "? OK STATUS completed"),
	)
	require.NoError(t, s.SelectMailbox(inbox))

	_, err := s.MessageCount()
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestMessageCountIgnoresUnsolicitedLines(t *testing.T) {
	s, _ := newTestSession(t,
		selectReply(),
		testutil.Lines(`* STATUS "INBOX" (MESSAGES 42)`, "* 4 EXISTS", "? OK STATUS completed"),
	)
	require.NoError(t, s.SelectMailbox(inbox))

	count, err := s.MessageCount()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), count)
}

func TestMessageCountWithoutStatusLine(t *testing.T) {
	s, _ := newTestSession(t,
		selectReply(),
		testutil.Lines("* 4 EXISTS", "? OK STATUS completed"),
	)
	require.NoError(t, s.SelectMailbox(inbox))

	_, err := s.MessageCount()
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "status", perr.Kind)
}

func TestLoginRefusesLineBreaks(t *testing.T) {
	s, srv := newTestSession(t)

	err := s.Login("user@example.com", "secret\r\n? LOGOUT")
	assert.ErrorIs(t, err, ErrLineBreak)
	err = s.Login("user\n@example.com", "secret")
	assert.ErrorIs(t, err, ErrLineBreak)

	assert.False(t, s.Authenticated())
	assert.Empty(t, srv.Received())
}

func TestSelectRefusesLineBreaks(t *testing.T) {
	s, srv := newTestSession(t)

	err := s.SelectMailbox(Mailbox{Name: "Bad\r\nName", Selectable: true})
	assert.ErrorIs(t, err, ErrLineBreak)
	assert.Empty(t, srv.Received())
}

func TestSelectRejectedClearsSelection(t *testing.T) {
	s, _ := newTestSession(t,
		selectReply(),
		"? NO Mailbox does not exist\r\n",
	)
	require.NoError(t, s.SelectMailbox(inbox))

	err := s.SelectMailbox(Mailbox{Name: "Gone", Selectable: true})
	var rejected *CommandRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "SELECT", rejected.Command)

	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestFetchHeaders(t *testing.T) {
	s, srv := newTestSession(t,
		selectReply(),
		testutil.Literal(`* 2 FETCH (FLAGS (\Seen) BODY[HEADER.FIELDS (SUBJECT FROM TO CC BCC)]`,
			testutil.Lines("Subject: Second", "From: Bob <bob@example.com>", ""))+
			testutil.Lines(")")+
			testutil.Literal(`* 3 FETCH (FLAGS () BODY[HEADER.FIELDS (SUBJECT FROM TO CC BCC)]`,
				testutil.Lines("Subject: Third", "From: carol@example.com", ""))+
			testutil.Lines(")", "? OK FETCH completed"),
	)
	require.NoError(t, s.SelectMailbox(inbox))

	headers, err := s.FetchHeaders(Between(2, 3))
	require.NoError(t, err)
	require.Len(t, headers, 2)
	assert.Equal(t, MessageHeader{
		ID:      2,
		Subject: "Second",
		From:    Contact{Name: "Bob", Email: "bob@example.com"},
		Read:    true,
	}, headers[0])
	assert.Equal(t, uint32(3), headers[1].ID)
	assert.False(t, headers[1].Read)

	received := srv.Received()
	require.Len(t, received, 2)
	assert.Equal(t, "? FETCH 2:3 (FLAGS BODY.PEEK[HEADER.FIELDS (SUBJECT FROM TO CC BCC)])", received[1])
}

func TestFetchRejected(t *testing.T) {
	s, _ := newTestSession(t,
		selectReply(),
		"? BAD Error in IMAP command FETCH: Invalid messageset\r\n",
	)
	require.NoError(t, s.SelectMailbox(inbox))

	_, err := s.FetchHeaders(Between(9, 1))
	var rejected *CommandRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "FETCH", rejected.Command)
}

func TestReadEmailText(t *testing.T) {
	s, srv := newTestSession(t,
		selectReply(),
		testutil.Lines(
			`* 7 FETCH (BODYSTRUCTURE (("TEXT" "HTML" NIL NIL NIL "7BIT" 20 1 NIL NIL NIL)("TEXT" "PLAIN" NIL NIL NIL "7BIT" 12 1 NIL NIL NIL) "ALTERNATIVE" ("BOUNDARY" "b") NIL NIL))`,
			"? OK FETCH completed",
		),
		testutil.Literal("* 7 FETCH (BODY[2]", "Hello there\r\n")+
			testutil.Lines(")", "? OK FETCH completed"),
	)
	require.NoError(t, s.SelectMailbox(inbox))

	text, err := s.ReadEmailText(7)
	require.NoError(t, err)
	assert.Contains(t, text, "Hello there")
	assert.Equal(t, []string{
		`? SELECT "INBOX"`,
		"? FETCH 7 (BODYSTRUCTURE)",
		"? FETCH 7 BODY[2]",
	}, srv.Received())
}

func TestReadEmailTextLiteralWithTagLikeLine(t *testing.T) {
	s, srv := newTestSession(t,
		selectReply(),
		testutil.Lines(
			`* 7 FETCH (BODYSTRUCTURE ("TEXT" "PLAIN" ("CHARSET" "utf-8") NIL NIL "7BIT" 27 3 NIL NIL NIL))`,
			"? OK FETCH completed",
		),
		testutil.Literal("* 7 FETCH (BODY[1]", "Hi\r\n? anyone there\r\nbye\r\n")+
			testutil.Lines(")", "? OK FETCH completed"),
		testutil.Lines(`* STATUS "INBOX" (MESSAGES 7)`, "? OK STATUS completed"),
	)
	require.NoError(t, s.SelectMailbox(inbox))

	raw, err := s.ReadEmailText(7)
	require.NoError(t, err)
	assert.Equal(t, "Hi\r\n? anyone there\r\nbye\r\n", LiteralText(raw))

	// The session stays in step with the server after the literal.
	count, err := s.MessageCount()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), count)
	assert.Equal(t, `? STATUS "INBOX" (MESSAGES)`, srv.Received()[3])
}

func TestReadEmailTextWithoutPlainPart(t *testing.T) {
	s, srv := newTestSession(t,
		selectReply(),
		testutil.Lines(
			`* 7 FETCH (BODYSTRUCTURE ("TEXT" "HTML" NIL NIL NIL "7BIT" 20 1 NIL NIL NIL))`,
			"? OK FETCH completed",
		),
	)
	require.NoError(t, s.SelectMailbox(inbox))

	_, err := s.ReadEmailText(7)
	assert.ErrorIs(t, err, ErrNoTextPart)
	assert.Len(t, srv.Received(), 2)
}

func TestLogout(t *testing.T) {
	s, srv := newTestSession(t,
		selectReply(),
		testutil.Lines("* BYE IMAP4rev1 Server logging out", "? OK LOGOUT completed"),
	)
	require.NoError(t, s.SelectMailbox(inbox))

	require.NoError(t, s.Logout())
	_, ok := s.Selected()
	assert.False(t, ok)
	assert.Equal(t, "? LOGOUT", srv.Received()[1])
}
