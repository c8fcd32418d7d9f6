package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrConnectionClosed is returned when the peer closes the stream before a
// complete line could be read.
var ErrConnectionClosed = errors.New("transport: connection closed")

// Error wraps an I/O failure on the underlying connection.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transport is a line-oriented, blocking request/response stream.
// It is not safe for concurrent use.
type Transport struct {
	conn    net.Conn
	reader  *bufio.Reader
	logger  *logrus.Logger
	id      string
	timeout time.Duration
}

// Dial opens a TCP connection to host:port and performs a TLS handshake.
// A nil tlsConfig uses the host as server name and requires TLS 1.2.
func Dial(ctx context.Context, host string, port int, tlsConfig *tls.Config, logger *logrus.Logger) (*Transport, error) {
	if tlsConfig == nil {
		tlsConfig = &tls.Config{
			ServerName: host,
			MinVersion: tls.VersionTLS12,
		}
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := &tls.Dialer{Config: tlsConfig}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &Error{Op: "dial " + addr, Err: err}
	}

	t := New(conn, logger)
	t.log().WithField("addr", addr).Debug("Connected")
	return t, nil
}

// New wraps an established connection.
func New(conn net.Conn, logger *logrus.Logger) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	return &Transport{
		conn:   conn,
		reader: bufio.NewReader(conn),
		logger: logger,
		id:     uuid.NewString(),
	}
}

// ID returns the connection identifier used in log entries.
func (t *Transport) ID() string {
	return t.id
}

// SetLogger sets the logger for the transport
func (t *Transport) SetLogger(logger *logrus.Logger) {
	t.logger = logger
}

// SetTimeout bounds every subsequent request/response pair. Zero disables
// the deadline.
func (t *Transport) SetTimeout(d time.Duration) {
	t.timeout = d
}

// SendLine writes text followed by CRLF.
func (t *Transport) SendLine(text string) error {
	if err := t.arm(); err != nil {
		return err
	}
	if _, err := io.WriteString(t.conn, text+"\r\n"); err != nil {
		return &Error{Op: "write", Err: err}
	}
	return nil
}

// ReadLine reads one line, including its line terminator.
func (t *Transport) ReadLine() (string, error) {
	line, err := t.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrConnectionClosed
		}
		return "", &Error{Op: "read", Err: err}
	}
	return line, nil
}

// ReadFull reads exactly n bytes, regardless of line terminators.
func (t *Transport) ReadFull(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(t.reader, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", ErrConnectionClosed
		}
		return "", &Error{Op: "read", Err: err}
	}
	return string(buf), nil
}

// ReadUntil accumulates lines until one satisfies isLast. It returns the
// accumulated text without that line, and the line itself.
func (t *Transport) ReadUntil(isLast func(line string) bool) (string, string, error) {
	var body []byte
	for {
		line, err := t.ReadLine()
		if err != nil {
			return "", "", err
		}
		if isLast(line) {
			return string(body), line, nil
		}
		body = append(body, line...)
	}
}

// Exchange sends one line and reads the response framed by isLast.
func (t *Transport) Exchange(text string, isLast func(line string) bool) (string, string, error) {
	if err := t.SendLine(text); err != nil {
		return "", "", err
	}
	return t.ReadUntil(isLast)
}

// Close closes the underlying connection.
func (t *Transport) Close() error {
	t.log().Debug("Closing connection")
	return t.conn.Close()
}

func (t *Transport) arm() error {
	if t.timeout <= 0 {
		return nil
	}
	if err := t.conn.SetDeadline(time.Now().Add(t.timeout)); err != nil {
		return &Error{Op: "set deadline", Err: err}
	}
	return nil
}

func (t *Transport) log() *logrus.Entry {
	return t.logger.WithField("conn", t.id)
}
