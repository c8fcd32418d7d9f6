package imap

import (
	"fmt"
	"strconv"
	"strings"

	goimap "github.com/emersion/go-imap"
)

// BodyPart is a node of a message's MIME tree. The concrete types are
// PlainText, HTMLText, Image, Application and Multipart.
type BodyPart interface {
	bodyPart()
}

// PlainText is a text/plain leaf.
type PlainText struct{}

// HTMLText is a text/html leaf.
type HTMLText struct{}

// FileAttachment describes a named image or application leaf.
type FileAttachment struct {
	MediaSubtype string
	FileName     string
}

// Image is an image/* leaf carrying a NAME parameter.
type Image struct {
	FileAttachment
}

// Application is an application/* leaf carrying a NAME parameter.
type Application struct {
	FileAttachment
}

// MultipartKind is the subtype of a multipart node.
type MultipartKind int

const (
	Mixed MultipartKind = iota
	Related
	Alternative
)

func (k MultipartKind) String() string {
	switch k {
	case Mixed:
		return "MIXED"
	case Related:
		return "RELATED"
	case Alternative:
		return "ALTERNATIVE"
	}
	return "MultipartKind(" + strconv.Itoa(int(k)) + ")"
}

// Multipart groups child parts.
type Multipart struct {
	Kind     MultipartKind
	Boundary string
	Children []BodyPart
	// Sections holds the server's 1-based part number of each child.
	// Unrecognised siblings are dropped from Children but still counted
	// here, so section paths stay valid. Nil means positional numbering.
	Sections []int
}

func (PlainText) bodyPart()   {}
func (HTMLText) bodyPart()    {}
func (Image) bodyPart()       {}
func (Application) bodyPart() {}
func (Multipart) bodyPart()   {}

// ParseBodyStructure parses the text of a FETCH (BODYSTRUCTURE) reply into
// a part tree. Leaves other than text/plain, text/html and named
// image/application parts are skipped.
func ParseBodyStructure(reply string) (BodyPart, error) {
	keyword := string(goimap.FetchBodyStructure)
	idx := strings.Index(strings.ToUpper(reply), keyword)
	if idx < 0 {
		return nil, fmt.Errorf("%w: no %s item", ErrMalformedBodyStructure, keyword)
	}

	p := &sexpParser{s: reply, pos: idx + len(keyword)}
	p.skipSpace()
	if p.peek() != '(' {
		return nil, fmt.Errorf("%w: expected '(' at offset %d", ErrMalformedBodyStructure, p.pos)
	}
	root, err := p.parseList()
	if err != nil {
		return nil, err
	}

	part, err := buildPart(root)
	if err != nil {
		return nil, err
	}
	if part == nil {
		return nil, fmt.Errorf("%w: no recognised part", ErrMalformedBodyStructure)
	}
	return part, nil
}

// FindTextSection returns the section path of the first text/plain leaf in
// depth-first, left-to-right order. A message that is a single text/plain
// part has the path "1".
func FindTextSection(root BodyPart) (string, error) {
	switch p := root.(type) {
	case PlainText:
		return "1", nil
	case Multipart:
		if path, ok := findText(p, nil); ok {
			parts := make([]string, len(path))
			for i, n := range path {
				parts[i] = strconv.Itoa(n)
			}
			return strings.Join(parts, "."), nil
		}
	}
	return "", ErrNoTextPart
}

func findText(m Multipart, prefix []int) ([]int, bool) {
	for i, child := range m.Children {
		section := i + 1
		if i < len(m.Sections) {
			section = m.Sections[i]
		}
		path := append(append(make([]int, 0, len(prefix)+1), prefix...), section)

		switch c := child.(type) {
		case PlainText:
			return path, true
		case Multipart:
			if found, ok := findText(c, path); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// buildPart interprets one parenthesised body. A nil part with a nil error
// means the leaf was not recognised.
func buildPart(list []sexp) (BodyPart, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedBodyStructure)
	}
	if list[0].isList() {
		return buildMultipart(list)
	}

	if len(list) < 2 || !list[0].isString() || !list[1].isString() {
		return nil, fmt.Errorf("%w: leaf without type and subtype", ErrMalformedBodyStructure)
	}
	mediaType := strings.ToUpper(list[0].text)
	subtype := list[1].text
	var params []sexp
	if len(list) > 2 && list[2].isList() {
		params = list[2].list
	}

	switch mediaType {
	case "TEXT":
		switch strings.ToUpper(subtype) {
		case "PLAIN":
			return PlainText{}, nil
		case "HTML":
			return HTMLText{}, nil
		}
	case "IMAGE":
		if name, ok := lookupParam(params, "NAME"); ok {
			return Image{FileAttachment{MediaSubtype: subtype, FileName: name}}, nil
		}
	case "APPLICATION":
		if name, ok := lookupParam(params, "NAME"); ok {
			return Application{FileAttachment{MediaSubtype: subtype, FileName: name}}, nil
		}
	}
	return nil, nil
}

func buildMultipart(list []sexp) (BodyPart, error) {
	var m Multipart
	i := 0
	for ; i < len(list) && list[i].isList(); i++ {
		child, err := buildPart(list[i].list)
		if err != nil {
			return nil, err
		}
		if child == nil {
			continue
		}
		m.Children = append(m.Children, child)
		m.Sections = append(m.Sections, i+1)
	}

	if i >= len(list) || !list[i].isString() {
		return nil, fmt.Errorf("%w: multipart without subtype", ErrMalformedBodyStructure)
	}
	subtype := strings.ToUpper(list[i].text)
	switch subtype {
	case "MIXED":
		m.Kind = Mixed
	case "RELATED":
		m.Kind = Related
	case "ALTERNATIVE":
		m.Kind = Alternative
	default:
		return nil, fmt.Errorf("%w: unsupported multipart subtype %q", ErrMalformedBodyStructure, subtype)
	}

	var params []sexp
	if i+1 < len(list) && list[i+1].isList() {
		params = list[i+1].list
	}
	boundary, ok := lookupParam(params, "BOUNDARY")
	if !ok {
		return nil, fmt.Errorf("%w: multipart/%s without boundary", ErrMalformedBodyStructure, strings.ToLower(subtype))
	}
	m.Boundary = boundary

	return m, nil
}

// lookupParam finds key in a ("KEY" "value" ...) parameter list.
func lookupParam(params []sexp, key string) (string, bool) {
	for i := 0; i+1 < len(params); i += 2 {
		if params[i].isString() && strings.EqualFold(params[i].text, key) && params[i+1].isString() {
			return params[i+1].text, true
		}
	}
	return "", false
}

type sexpKind int

const (
	sexpAtom sexpKind = iota
	sexpString
	sexpList
)

// sexp is one item of a parenthesised IMAP data structure.
type sexp struct {
	kind sexpKind
	text string
	list []sexp
}

func (s sexp) isList() bool   { return s.kind == sexpList }
func (s sexp) isString() bool { return s.kind == sexpString }

type sexpParser struct {
	s   string
	pos int
}

func (p *sexpParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *sexpParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\r' || p.s[p.pos] == '\n') {
		p.pos++
	}
}

func (p *sexpParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s at offset %d", ErrMalformedBodyStructure, fmt.Sprintf(format, args...), p.pos)
}

func (p *sexpParser) parseList() ([]sexp, error) {
	p.pos++ // '('
	items := []sexp{}
	for {
		p.skipSpace()
		switch p.peek() {
		case 0:
			return nil, p.errorf("unterminated list")
		case ')':
			p.pos++
			return items, nil
		}
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

func (p *sexpParser) parseItem() (sexp, error) {
	switch p.peek() {
	case '(':
		list, err := p.parseList()
		if err != nil {
			return sexp{}, err
		}
		return sexp{kind: sexpList, list: list}, nil
	case '"':
		text, err := p.parseQuoted()
		if err != nil {
			return sexp{}, err
		}
		return sexp{kind: sexpString, text: text}, nil
	case '{':
		text, err := p.parseLiteral()
		if err != nil {
			return sexp{}, err
		}
		return sexp{kind: sexpString, text: text}, nil
	}

	start := p.pos
	for p.pos < len(p.s) && !strings.ContainsRune(" ()\r\n", rune(p.s[p.pos])) {
		p.pos++
	}
	if p.pos == start {
		return sexp{}, p.errorf("unexpected %q", p.peek())
	}
	return sexp{kind: sexpAtom, text: p.s[start:p.pos]}, nil
}

// parseQuoted reads a quoted string, honouring backslash escapes so that a
// quoted ')' or '"' never ends the enclosing structure.
func (p *sexpParser) parseQuoted() (string, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.s) {
		c := p.s[p.pos]
		switch c {
		case '\\':
			if p.pos+1 < len(p.s) {
				p.pos++
				c = p.s[p.pos]
			}
		case '"':
			p.pos++
			return b.String(), nil
		}
		b.WriteByte(c)
		p.pos++
	}
	return "", p.errorf("unterminated quoted string")
}

// parseLiteral reads a {n} literal followed by CRLF and n octets.
func (p *sexpParser) parseLiteral() (string, error) {
	end := strings.IndexByte(p.s[p.pos:], '}')
	if end < 0 {
		return "", p.errorf("unterminated literal length")
	}
	n, err := strconv.Atoi(p.s[p.pos+1 : p.pos+end])
	if err != nil || n < 0 {
		return "", p.errorf("bad literal length")
	}
	p.pos += end + 1
	if strings.HasPrefix(p.s[p.pos:], "\r\n") {
		p.pos += 2
	} else if strings.HasPrefix(p.s[p.pos:], "\n") {
		p.pos++
	}
	if p.pos+n > len(p.s) {
		return "", p.errorf("short literal")
	}
	text := p.s[p.pos : p.pos+n]
	p.pos += n
	return text, nil
}
