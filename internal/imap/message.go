package imap

import (
	"strconv"
	"strings"

	goimap "github.com/emersion/go-imap"
)

// Contact is one address of an address header.
type Contact struct {
	// Name is the display name, empty when the address had none.
	Name  string
	Email string
}

// String formats the contact the way it appears in a header.
func (c Contact) String() string {
	if c.Name == "" {
		return c.Email
	}
	return c.Name + " <" + c.Email + ">"
}

// MessageHeader is the header summary of one message. ID is a sequence
// number, valid only for the current session.
type MessageHeader struct {
	ID      uint32
	Subject string
	From    Contact
	// To, Cc and Bcc are nil when the field is absent or could not be parsed.
	To   []Contact
	Cc   []Contact
	Bcc  []Contact
	Read bool
}

// ParseMessageHeader parses one FETCH block holding FLAGS and a
// HEADER.FIELDS literal. Subject and From are mandatory.
func ParseMessageHeader(block string) (MessageHeader, error) {
	lines := strings.Split(block, "\n")
	first := strings.TrimRight(lines[0], "\r")

	var h MessageHeader
	found := false
	for _, word := range strings.Split(first, " ") {
		id, err := strconv.ParseUint(word, 10, 32)
		if err == nil {
			h.ID = uint32(id)
			found = true
			break
		}
	}
	if !found {
		return MessageHeader{}, &ParseError{Kind: "message header", Input: first, Reason: "no sequence number"}
	}
	h.Read = strings.Contains(first, string(goimap.SeenFlag))

	fields := make(map[string]string)
	var current string
	inHeader := true
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if !inHeader {
			if strings.Contains(line, string(goimap.SeenFlag)) {
				h.Read = true
			}
			continue
		}
		if line == "" {
			inHeader = false
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if current != "" {
				fields[current] += " " + strings.TrimSpace(line)
			}
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			// closing parenthesis or trailing fetch items
			inHeader = false
			if strings.Contains(line, string(goimap.SeenFlag)) {
				h.Read = true
			}
			continue
		}
		current = strings.ToLower(strings.TrimSpace(key))
		if _, seen := fields[current]; seen {
			current = ""
			continue
		}
		fields[current] = strings.TrimSpace(value)
	}

	subject, ok := fields["subject"]
	if !ok {
		return MessageHeader{}, &ParseError{Kind: "message header", Input: block, Reason: "no Subject"}
	}
	h.Subject = subject

	from, ok := fields["from"]
	if !ok {
		return MessageHeader{}, &ParseError{Kind: "message header", Input: block, Reason: "no From"}
	}
	contact, ok := parseContact(from)
	if !ok {
		return MessageHeader{}, &ParseError{Kind: "message header", Input: block, Reason: "unparsable From"}
	}
	h.From = contact

	if v, ok := fields["to"]; ok {
		h.To = parseAddressList(v)
	}
	if v, ok := fields["cc"]; ok {
		h.Cc = parseAddressList(v)
	}
	if v, ok := fields["bcc"]; ok {
		h.Bcc = parseAddressList(v)
	}

	return h, nil
}

// parseMessageHeaders splits a multi-message FETCH response on the start of
// each untagged response. Untagged responses other than FETCH are skipped;
// any unparsable FETCH block fails the whole response.
func parseMessageHeaders(body string) ([]MessageHeader, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}

	var headers []MessageHeader
	for _, block := range strings.Split(body, "\n*") {
		first, _, _ := strings.Cut(block, "\n")
		if !strings.Contains(strings.ToUpper(first), " FETCH ") {
			continue
		}
		h, err := ParseMessageHeader(block)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	return headers, nil
}

// parseAddressList parses a comma-separated address list. One bad entry
// makes the whole list absent.
func parseAddressList(value string) []Contact {
	entries := splitAddresses(value)
	contacts := make([]Contact, 0, len(entries))
	for _, entry := range entries {
		c, ok := parseContact(entry)
		if !ok {
			return nil
		}
		contacts = append(contacts, c)
	}
	return contacts
}

// splitAddresses splits on commas outside double quotes.
func splitAddresses(value string) []string {
	var parts []string
	inQuotes := false
	start := 0
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '\\':
			if inQuotes {
				i++
			}
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				parts = append(parts, value[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, value[start:])
}

// parseContact accepts "Display Name <email>" or a bare address.
func parseContact(s string) (Contact, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Contact{}, false
	}

	name, rest, angled := strings.Cut(s, "<")
	if !angled {
		if !strings.Contains(s, "@") || strings.ContainsAny(s, " \t") {
			return Contact{}, false
		}
		return Contact{Email: s}, true
	}

	email, _, closed := strings.Cut(rest, ">")
	email = strings.TrimSpace(email)
	if !closed || email == "" {
		return Contact{}, false
	}

	name = strings.TrimSpace(name)
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		name = strings.ReplaceAll(name[1:len(name)-1], `\"`, `"`)
	}
	return Contact{Name: name, Email: email}, true
}
