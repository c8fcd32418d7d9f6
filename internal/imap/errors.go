package imap

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthFailed is returned when the server rejects LOGIN.
	ErrAuthFailed = errors.New("imap: authentication failed")
	// ErrNotSelectable is returned when selecting a \Noselect mailbox.
	ErrNotSelectable = errors.New("imap: mailbox is not selectable")
	// ErrNoMailboxSelected is returned by operations that need a selection.
	ErrNoMailboxSelected = errors.New("imap: no mailbox selected")
	// ErrMalformedBodyStructure is returned when a BODYSTRUCTURE reply
	// cannot be reduced to a single part tree.
	ErrMalformedBodyStructure = errors.New("imap: malformed body structure")
	// ErrNoTextPart is returned when a message has no text/plain part.
	ErrNoTextPart = errors.New("imap: no plain text part")
	// ErrLineBreak is returned when a command argument contains CR or LF.
	ErrLineBreak = errors.New("imap: argument contains a line break")
)

// CommandRejectedError carries the tagged line of a failed command.
type CommandRejectedError struct {
	Command string
	Line    string
}

func (e *CommandRejectedError) Error() string {
	return fmt.Sprintf("imap: %s rejected: %s", e.Command, strings.TrimRight(e.Line, "\r\n"))
}

// ParseError reports protocol text that could not be understood.
type ParseError struct {
	Kind   string
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("imap: cannot parse %s: %s: %q", e.Kind, e.Reason, strings.TrimRight(e.Input, "\r\n"))
}
