package imap

import (
	"strings"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/utf7"
)

// InboxName is the mailbox name servers match case-insensitively.
const InboxName = goimap.InboxName

// IsInbox reports whether name refers to the INBOX.
func IsInbox(name string) bool {
	return strings.EqualFold(name, InboxName)
}

// Mailbox describes one entry of a LIST response.
type Mailbox struct {
	Name        string
	Selectable  bool
	HasChildren bool
}

// DisplayName returns the mailbox name decoded from modified UTF-7. The raw
// Name must still be used on the wire.
func (m Mailbox) DisplayName() string {
	name, err := utf7.Encoding.NewDecoder().String(m.Name)
	if err != nil {
		return m.Name
	}
	return name
}

// ParseMailbox parses an untagged LIST response line such as
// `* LIST (\Flag \Flag) "/" "Name"`.
// Flags are scanned up to the token that closes the attribute list. The
// name is the text between the last pair of double quotes.
func ParseMailbox(line string) (Mailbox, error) {
	line = strings.TrimRight(line, "\r\n")
	mb := Mailbox{Selectable: true, HasChildren: true}

	fields := strings.Split(line, " ")
	if len(fields) > 2 {
		for _, field := range fields[2:] {
			closing := strings.HasSuffix(field, ")")
			flag := strings.TrimSuffix(strings.TrimPrefix(field, "("), ")")
			if strings.EqualFold(flag, string(goimap.NoSelectAttr)) {
				mb.Selectable = false
			} else if strings.EqualFold(flag, string(goimap.HasNoChildrenAttr)) {
				mb.HasChildren = false
			}
			if closing {
				break
			}
		}
	}

	end := strings.LastIndexByte(line, '"')
	if end < 0 {
		return Mailbox{}, &ParseError{Kind: "mailbox", Input: line, Reason: "no quoted name"}
	}
	start := strings.LastIndexByte(line[:end], '"')
	if start < 0 {
		return Mailbox{}, &ParseError{Kind: "mailbox", Input: line, Reason: "no quoted name"}
	}
	mb.Name = line[start+1 : end]

	return mb, nil
}

// parseMailboxes parses every non-empty line of a LIST response body.
func parseMailboxes(body string) ([]Mailbox, error) {
	var mailboxes []Mailbox
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		mb, err := ParseMailbox(line)
		if err != nil {
			return nil, err
		}
		mailboxes = append(mailboxes, mb)
	}
	return mailboxes, nil
}
