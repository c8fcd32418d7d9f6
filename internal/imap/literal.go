package imap

import (
	"strconv"
	"strings"
)

// LiteralText returns the content of the first {n} literal in a FETCH
// response, or the response itself when it carries no literal. Section text
// is returned as the server sent it, without transfer decoding.
func LiteralText(raw string) string {
	open := strings.IndexByte(raw, '{')
	if open < 0 {
		return raw
	}
	end := strings.Index(raw[open:], "}\r\n")
	if end < 0 {
		return raw
	}
	n, err := strconv.Atoi(raw[open+1 : open+end])
	if err != nil || n < 0 {
		return raw
	}

	start := open + end + len("}\r\n")
	if start+n > len(raw) {
		return raw[start:]
	}
	return raw[start : start+n]
}

// literalSize returns n when line ends with a {n} literal announcement.
func literalSize(line string) (int, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasSuffix(line, "}") {
		return 0, false
	}
	open := strings.LastIndexByte(line, '{')
	if open < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(line[open+1 : len(line)-1])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
