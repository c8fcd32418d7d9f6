package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/sirupsen/logrus"

	"github.com/brandon/termmail/internal/transport"
)

// commandTag prefixes every command. One tag is reused because requests are
// strictly sequential; pipelining would need a unique tag per request.
const commandTag = "?"

const headerFields = "BODY.PEEK[HEADER.FIELDS (SUBJECT FROM TO CC BCC)]"

// Session is a single IMAP connection. It is not safe for concurrent use.
type Session struct {
	transport     *transport.Transport
	logger        *logrus.Logger
	authenticated bool
	selected      *Mailbox
}

// Connect dials host:port over TLS and consumes the server greeting.
func Connect(ctx context.Context, host string, port int, tlsConfig *tls.Config, logger *logrus.Logger) (*Session, error) {
	t, err := transport.Dial(ctx, host, port, tlsConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	s, err := NewSession(t, logger)
	if err != nil {
		t.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

// NewSession starts a session on an established transport by discarding
// the server greeting.
func NewSession(t *transport.Transport, logger *logrus.Logger) (*Session, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if _, err := t.ReadLine(); err != nil {
		return nil, fmt.Errorf("failed to read IMAP greeting: %w", err)
	}
	return &Session{transport: t, logger: logger}, nil
}

// SetLogger sets the logger for the session
func (s *Session) SetLogger(logger *logrus.Logger) {
	s.logger = logger
	s.transport.SetLogger(logger)
}

// SetTimeout bounds each command round trip.
func (s *Session) SetTimeout(d time.Duration) {
	s.transport.SetTimeout(d)
}

// Login authenticates with LOGIN. The command line is never logged.
func (s *Session) Login(username, password string) error {
	user, err := quote(username)
	if err != nil {
		return fmt.Errorf("username: %w", err)
	}
	pass, err := quote(password)
	if err != nil {
		return fmt.Errorf("password: %w", err)
	}
	_, err = s.execute("LOGIN", "LOGIN "+user+" "+pass)
	if err != nil {
		var rejected *CommandRejectedError
		if errors.As(err, &rejected) {
			return fmt.Errorf("%w: %s", ErrAuthFailed, strings.TrimRight(rejected.Line, "\r\n"))
		}
		return err
	}
	s.authenticated = true
	s.log().Info("Logged in to IMAP server")
	return nil
}

// Authenticated reports whether Login succeeded.
func (s *Session) Authenticated() bool {
	return s.authenticated
}

// ListMailboxes lists every mailbox in server order.
func (s *Session) ListMailboxes() ([]Mailbox, error) {
	body, err := s.execute("LIST", `LIST "*" "*"`)
	if err != nil {
		return nil, err
	}
	return parseMailboxes(body)
}

// SelectMailbox selects mb. A \Noselect mailbox fails without a round trip.
func (s *Session) SelectMailbox(mb Mailbox) error {
	if !mb.Selectable {
		return fmt.Errorf("%w: %s", ErrNotSelectable, mb.Name)
	}
	name, err := quote(mb.Name)
	if err != nil {
		return err
	}
	if _, err := s.execute("SELECT", "SELECT "+name); err != nil {
		s.selected = nil
		return err
	}
	s.selected = &mb
	s.log().WithField("mailbox", mb.Name).Debug("Selected mailbox")
	return nil
}

// Selected returns the selected mailbox, if any.
func (s *Session) Selected() (Mailbox, bool) {
	if s.selected == nil {
		return Mailbox{}, false
	}
	return *s.selected, true
}

// MessageCount returns the number of messages in the selected mailbox.
func (s *Session) MessageCount() (uint32, error) {
	if s.selected == nil {
		return 0, ErrNoMailboxSelected
	}
	name, err := quote(s.selected.Name)
	if err != nil {
		return 0, err
	}
	body, err := s.execute("STATUS", fmt.Sprintf("STATUS %s (%s)", name, goimap.StatusMessages))
	if err != nil {
		return 0, err
	}
	return parseStatusCount(body)
}

// parseStatusCount reads the trailing integer of the * STATUS line. Other
// untagged lines, such as an unsolicited EXISTS, are ignored.
func parseStatusCount(body string) (uint32, error) {
	for _, line := range strings.Split(body, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "*" || !strings.EqualFold(fields[1], "STATUS") {
			continue
		}
		// * STATUS INBOX (MESSAGES 42)
		count, err := strconv.ParseUint(strings.TrimRight(fields[len(fields)-1], ")"), 10, 32)
		if err != nil {
			return 0, &ParseError{Kind: "status", Input: line, Reason: "no message count"}
		}
		return uint32(count), nil
	}
	return 0, &ParseError{Kind: "status", Input: body, Reason: "no STATUS response"}
}

// FetchHeaders fetches header summaries for r. Any unparsable message fails
// the whole call.
func (s *Session) FetchHeaders(r SeqRange) ([]MessageHeader, error) {
	if s.selected == nil {
		return nil, ErrNoMailboxSelected
	}
	cmd := fmt.Sprintf("FETCH %s (%s %s)", r, goimap.FetchFlags, headerFields)
	body, err := s.execute("FETCH", cmd)
	if err != nil {
		return nil, err
	}
	headers, err := parseMessageHeaders(body)
	if err != nil {
		return nil, err
	}
	s.log().WithFields(logrus.Fields{
		"range": r.String(),
		"count": len(headers),
	}).Debug("Fetched headers")
	return headers, nil
}

// FetchBodyStructure fetches and parses the MIME structure of message id.
func (s *Session) FetchBodyStructure(id uint32) (BodyPart, error) {
	if s.selected == nil {
		return nil, ErrNoMailboxSelected
	}
	cmd := fmt.Sprintf("FETCH %d (%s)", id, goimap.FetchBodyStructure)
	body, err := s.execute("FETCH", cmd)
	if err != nil {
		return nil, err
	}
	return ParseBodyStructure(body)
}

// ReadEmailText returns the raw FETCH response for the first text/plain
// part of message id.
func (s *Session) ReadEmailText(id uint32) (string, error) {
	bs, err := s.FetchBodyStructure(id)
	if err != nil {
		return "", err
	}
	section, err := FindTextSection(bs)
	if err != nil {
		return "", fmt.Errorf("message %d: %w", id, err)
	}
	return s.execute("FETCH", fmt.Sprintf("FETCH %d BODY[%s]", id, section))
}

// Logout sends LOGOUT and closes the connection.
func (s *Session) Logout() error {
	_, err := s.execute("LOGOUT", "LOGOUT")
	closeErr := s.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// Close closes the connection without logging out.
func (s *Session) Close() error {
	s.authenticated = false
	s.selected = nil
	return s.transport.Close()
}

// execute runs one command and returns the untagged response text.
func (s *Session) execute(verb, cmd string) (string, error) {
	s.log().WithField("command", verb).Debug("Sending command")
	if err := s.transport.SendLine(commandTag + " " + cmd); err != nil {
		return "", err
	}
	body, last, err := s.readResponse()
	if err != nil {
		return "", err
	}
	if isRejected(last) {
		s.log().WithFields(logrus.Fields{
			"command": verb,
			"reply":   strings.TrimRight(last, "\r\n"),
		}).Warn("Command rejected")
		return "", &CommandRejectedError{Command: verb, Line: last}
	}
	return body, nil
}

// readResponse reads up to the tagged line. A line announcing a {n} literal
// is followed by exactly n octets, which are never taken as the tagged line.
func (s *Session) readResponse() (string, string, error) {
	var body strings.Builder
	for {
		line, err := s.transport.ReadLine()
		if err != nil {
			return "", "", err
		}
		if isTagged(line) {
			return body.String(), line, nil
		}
		body.WriteString(line)

		if n, ok := literalSize(line); ok {
			literal, err := s.transport.ReadFull(n)
			if err != nil {
				return "", "", err
			}
			body.WriteString(literal)
		}
	}
}

func (s *Session) log() *logrus.Entry {
	return s.logger.WithField("conn", s.transport.ID())
}

func isTagged(line string) bool {
	return strings.HasPrefix(line, commandTag)
}

func isRejected(line string) bool {
	if strings.Contains(line, "BAD") {
		return true
	}
	fields := strings.Fields(line)
	return len(fields) >= 2 && strings.EqualFold(fields[1], "NO")
}

// quote renders s as an IMAP quoted string. A quoted string cannot carry a
// line break, so CR and LF are refused.
func quote(s string) (string, error) {
	if strings.ContainsAny(s, "\r\n") {
		return "", ErrLineBreak
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`, nil
}
