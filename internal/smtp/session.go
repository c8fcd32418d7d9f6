// Package smtp implements a minimal SMTP submission client: greeting, EHLO,
// AUTH LOGIN and a single-part plain text message.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/emersion/go-sasl"
	"github.com/sirupsen/logrus"

	"github.com/brandon/termmail/internal/transport"
)

const (
	codeReady         = 220
	codeClosing       = 221
	codeAuthenticated = 235
	codeOK            = 250
	codeContinue      = 334
	codeStartInput    = 354
)

var (
	// ErrNotAuthenticated is returned by SendEmail before Login succeeds.
	ErrNotAuthenticated = errors.New("smtp: not authenticated")
	// ErrNoRecipients is returned when a message has no To, Cc or Bcc.
	ErrNoRecipients = errors.New("smtp: message has no recipients")
	// ErrInvalidMessage is returned when an address or the subject cannot be
	// written to the wire as given.
	ErrInvalidMessage = errors.New("smtp: invalid message")
)

// UnexpectedReplyError is returned when a reply code differs from the one the
// current step requires.
type UnexpectedReplyError struct {
	Expected int
	Actual   int
	Line     string
}

func (e *UnexpectedReplyError) Error() string {
	return fmt.Sprintf("smtp: expected reply %d, got %d: %s", e.Expected, e.Actual, strings.TrimRight(e.Line, "\r\n"))
}

// Message is a plain text message to submit.
type Message struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
}

// Recipients returns To, Cc and Bcc in envelope order.
func (m *Message) Recipients() []string {
	rcpts := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	rcpts = append(rcpts, m.To...)
	rcpts = append(rcpts, m.Cc...)
	return append(rcpts, m.Bcc...)
}

// Validate checks that m has recipients, that each one is a single address
// and that the subject fits on one header line.
func (m *Message) Validate() error {
	_, err := m.envelope()
	return err
}

// envelope returns the bare address of every recipient in Recipients order.
func (m *Message) envelope() ([]string, error) {
	rcpts := m.Recipients()
	if len(rcpts) == 0 {
		return nil, ErrNoRecipients
	}
	if strings.ContainsAny(m.Subject, "\r\n") {
		return nil, fmt.Errorf("%w: line break in subject", ErrInvalidMessage)
	}

	out := make([]string, len(rcpts))
	for i, rcpt := range rcpts {
		if strings.ContainsAny(rcpt, "\r\n") {
			return nil, fmt.Errorf("%w: line break in recipient %q", ErrInvalidMessage, rcpt)
		}
		addr, err := mail.ParseAddress(rcpt)
		if err != nil {
			return nil, fmt.Errorf("%w: recipient %q: %v", ErrInvalidMessage, rcpt, err)
		}
		if strings.ContainsAny(addr.Address, "\r\n<>") {
			return nil, fmt.Errorf("%w: recipient %q", ErrInvalidMessage, rcpt)
		}
		out[i] = addr.Address
	}
	return out, nil
}

// Session is a single SMTP connection. It is not safe for concurrent use.
type Session struct {
	transport     *transport.Transport
	logger        *logrus.Logger
	sender        string
	authenticated bool
}

// Connect dials host:port over TLS and checks the 220 greeting.
func Connect(ctx context.Context, host string, port int, tlsConfig *tls.Config, logger *logrus.Logger) (*Session, error) {
	t, err := transport.Dial(ctx, host, port, tlsConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	s, err := NewSession(t, logger)
	if err != nil {
		t.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

// NewSession reads the greeting from an established transport. Any code
// other than 220 fails before a command is sent.
func NewSession(t *transport.Transport, logger *logrus.Logger) (*Session, error) {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Session{transport: t, logger: logger}
	if _, err := s.expect(codeReady); err != nil {
		return nil, err
	}
	return s, nil
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

// Login greets the server with the domain part of username and
// authenticates with AUTH LOGIN. username also becomes the envelope sender.
func (s *Session) Login(username, password string) error {
	domain := "localhost"
	if _, d, ok := strings.Cut(username, "@"); ok && d != "" {
		domain = d
	}
	if _, err := s.command("EHLO "+domain, codeOK); err != nil {
		return err
	}

	client := sasl.NewLoginClient(username, password)
	mech, ir, err := client.Start()
	if err != nil {
		return fmt.Errorf("smtp: start %s: %w", mech, err)
	}
	if _, err := s.command("AUTH "+mech, codeContinue); err != nil {
		return err
	}

	// Credentials are sent without logging.
	line, err := s.secret(base64.StdEncoding.EncodeToString(ir), codeContinue)
	if err != nil {
		return err
	}
	challenge, err := decodeChallenge(line)
	if err != nil {
		return err
	}
	resp, err := client.Next(challenge)
	if err != nil {
		return fmt.Errorf("smtp: %s challenge: %w", mech, err)
	}
	if _, err := s.secret(base64.StdEncoding.EncodeToString(resp), codeAuthenticated); err != nil {
		return err
	}

	s.sender = username
	s.authenticated = true
	s.log().Info("Logged in to SMTP server")
	return nil
}

// Authenticated reports whether Login succeeded.
func (s *Session) Authenticated() bool {
	return s.authenticated
}

// SendEmail submits msg to every recipient. A rejected recipient abandons
// the transaction so nothing is delivered.
func (s *Session) SendEmail(msg *Message) error {
	if !s.authenticated {
		return ErrNotAuthenticated
	}
	rcpts, err := msg.envelope()
	if err != nil {
		return err
	}
	if strings.ContainsAny(s.sender, "\r\n<>") {
		return fmt.Errorf("%w: sender %q", ErrInvalidMessage, s.sender)
	}
	lines, err := s.data(msg)
	if err != nil {
		return err
	}

	if _, err := s.command("MAIL FROM:<"+s.sender+">", codeOK); err != nil {
		return err
	}
	for _, rcpt := range rcpts {
		if _, err := s.command("RCPT TO:<"+rcpt+">", codeOK); err != nil {
			s.reset()
			return fmt.Errorf("recipient %s: %w", rcpt, err)
		}
	}
	if _, err := s.command("DATA", codeStartInput); err != nil {
		s.reset()
		return err
	}

	for _, line := range lines {
		if err := s.transport.SendLine(line); err != nil {
			return err
		}
	}
	if _, err := s.command(".", codeOK); err != nil {
		return err
	}

	s.log().WithField("recipients", len(rcpts)).Info("Message sent")
	return nil
}

// Quit sends QUIT and closes the connection.
func (s *Session) Quit() error {
	_, err := s.command("QUIT", codeClosing)
	closeErr := s.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// Close closes the connection without QUIT.
func (s *Session) Close() error {
	s.authenticated = false
	return s.transport.Close()
}

// data renders the header block and dot-stuffed body, one entry per line.
func (s *Session) data(msg *Message) ([]string, error) {
	var h textproto.Header
	h.Set("From", s.sender)
	h.Set("To", strings.Join(msg.To, ", "))
	if len(msg.Cc) > 0 {
		h.Set("Cc", strings.Join(msg.Cc, ", "))
	}
	if len(msg.Bcc) > 0 {
		h.Set("Bcc", strings.Join(msg.Bcc, ", "))
	}
	h.Set("Subject", msg.Subject)
	h.Set("Date", time.Now().Format(time.RFC1123Z))
	h.Set("Content-Type", "text/plain; charset=utf-8")

	var buf bytes.Buffer
	if err := textproto.WriteHeader(&buf, h); err != nil {
		return nil, fmt.Errorf("smtp: write header: %w", err)
	}
	header := strings.TrimRight(buf.String(), "\r\n")

	lines := strings.Split(header, "\r\n")
	lines = append(lines, "")

	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	body = strings.TrimSuffix(body, "\n")
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, ".") {
			line = "." + line
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// reset abandons the current transaction. Its outcome is only logged since
// the caller already has the error that triggered it.
func (s *Session) reset() {
	if _, err := s.command("RSET", codeOK); err != nil {
		s.log().WithError(err).Warn("RSET failed")
	}
}

func (s *Session) command(cmd string, want int) (string, error) {
	verb, _, _ := strings.Cut(cmd, " ")
	s.log().WithField("command", verb).Debug("Sending command")
	if err := s.transport.SendLine(cmd); err != nil {
		return "", err
	}
	return s.expect(want)
}

func (s *Session) secret(text string, want int) (string, error) {
	if err := s.transport.SendLine(text); err != nil {
		return "", err
	}
	return s.expect(want)
}

// expect reads one reply, following 250- continuation lines, and checks its
// code against want.
func (s *Session) expect(want int) (string, error) {
	var line string
	for {
		var err error
		line, err = s.transport.ReadLine()
		if err != nil {
			return "", err
		}
		if len(line) < 4 || line[3] != '-' {
			break
		}
	}

	code := replyCode(line)
	if code != want {
		return "", &UnexpectedReplyError{Expected: want, Actual: code, Line: line}
	}
	return line, nil
}

func (s *Session) log() *logrus.Entry {
	return s.logger.WithField("conn", s.transport.ID())
}

// replyCode returns the leading three-digit code of line, or 0.
func replyCode(line string) int {
	if len(line) < 3 {
		return 0
	}
	code, err := strconv.Atoi(line[:3])
	if err != nil {
		return 0
	}
	return code
}

func decodeChallenge(line string) ([]byte, error) {
	text := strings.TrimSpace(strings.TrimRight(line, "\r\n"))
	if len(text) > 3 {
		text = strings.TrimSpace(text[3:])
	} else {
		text = ""
	}
	challenge, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("smtp: malformed AUTH challenge: %w", err)
	}
	return challenge, nil
}
