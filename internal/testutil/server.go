// Package testutil provides a scripted line-protocol peer for tests.
package testutil

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// ScriptedServer plays the server side of one end of a net.Pipe. It writes a
// greeting, then for every scripted reply reads one client line, records it
// and answers with the reply. Once the script is exhausted it keeps recording
// lines until the pipe closes.
type ScriptedServer struct {
	conn     net.Conn
	mu       sync.Mutex
	received []string
	done     chan struct{}
}

// NewScriptedServer starts the peer and returns the client end of the pipe.
// Both ends are closed when the test finishes.
func NewScriptedServer(t *testing.T, greeting string, replies ...string) (*ScriptedServer, net.Conn) {
	t.Helper()

	serverConn, clientConn := net.Pipe()
	_ = clientConn.SetDeadline(time.Now().Add(5 * time.Second))

	s := &ScriptedServer{
		conn: serverConn,
		done: make(chan struct{}),
	}
	go s.run(greeting, replies)

	t.Cleanup(func() {
		_ = clientConn.Close()
		s.Close()
	})
	return s, clientConn
}

func (s *ScriptedServer) run(greeting string, replies []string) {
	defer close(s.done)

	if greeting != "" {
		if _, err := io.WriteString(s.conn, greeting); err != nil {
			return
		}
	}

	r := bufio.NewReader(s.conn)
	for _, reply := range replies {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		s.record(line)
		if start, end, ok := strings.Cut(reply, dataMarker); ok {
			if _, err := io.WriteString(s.conn, start); err != nil {
				return
			}
			if !s.recordData(r) {
				return
			}
			reply = end
		}
		if reply == "" {
			continue
		}
		if _, err := io.WriteString(s.conn, reply); err != nil {
			return
		}
	}

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		s.record(line)
	}
}

// recordData records lines up to and including a lone ".".
func (s *ScriptedServer) recordData(r *bufio.Reader) bool {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return false
		}
		s.record(line)
		if strings.TrimRight(line, "\r\n") == "." {
			return true
		}
	}
}

func (s *ScriptedServer) record(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, strings.TrimRight(line, "\r\n"))
}

// Received returns the lines read from the client so far, without CRLF.
func (s *ScriptedServer) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.received))
	copy(out, s.received)
	return out
}

// Close closes the server end and waits for the peer goroutine to exit.
func (s *ScriptedServer) Close() {
	_ = s.conn.Close()
	<-s.done
}

const dataMarker = "\x00data\x00"

// AfterData makes a scripted step answer the command line with start, then
// consume an SMTP data block up to the terminating "." and answer with end.
func AfterData(start, end string) string {
	return start + dataMarker + end
}

// Lines joins lines with CRLF, terminating the last one as well.
func Lines(lines ...string) string {
	return strings.Join(lines, "\r\n") + "\r\n"
}

// Literal renders head followed by a {n} literal carrying content.
func Literal(head, content string) string {
	return fmt.Sprintf("%s {%d}\r\n%s", head, len(content), content)
}
