// Package sqllex splits SQL text into plain text, quoted and comment segments.
//
// Placeholder scanning, clause detection and script splitting all need to know
// which bytes of a statement are "real" SQL and which belong to a string
// literal, a quoted identifier or a comment. The lexer answers exactly that
// question and nothing more.
package sqllex

import (
	"errors"
	"fmt"
)

// Kind classifies a segment.
type Kind int

const (
	// Text is ordinary SQL text.
	Text Kind = iota
	// String is a single-quoted literal.
	String
	// QuotedIdent is a "double quoted", `backtick quoted` or [bracketed] identifier.
	QuotedIdent
	// LineComment is a -- comment up to the end of the line.
	LineComment
	// BlockComment is a /* */ comment.
	BlockComment
	// DollarQuoted is a $tag$ ... $tag$ body.
	DollarQuoted
)

// String returns the segment kind name.
func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case String:
		return "string"
	case QuotedIdent:
		return "quoted identifier"
	case LineComment:
		return "line comment"
	case BlockComment:
		return "block comment"
	case DollarQuoted:
		return "dollar quoted"
	default:
		return "unknown"
	}
}

// Segment is a half-open byte range [Start, End) of the input.
type Segment struct {
	Kind  Kind
	Start int
	End   int
}

// ErrUnterminated is returned when a literal, identifier or comment is not closed.
var ErrUnterminated = errors.New("unterminated token")

// Error describes where lexing failed.
type Error struct {
	Kind Kind
	Pos  int
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("unterminated %s starting at offset %d", e.Kind, e.Pos)
}

// Unwrap returns ErrUnterminated.
func (e *Error) Unwrap() error {
	return ErrUnterminated
}

// Options tune dialect-dependent lexing rules.
type Options struct {
	// BackslashEscapes treats \' inside string literals as an escaped quote (MySQL).
	BackslashEscapes bool
	// Brackets treats [name] as a quoted identifier (SQL Server).
	Brackets bool
}

// Segments splits q into consecutive segments covering the whole input.
func Segments(q string, opts Options) ([]Segment, error) {
	var segs []Segment
	textStart := 0

	flush := func(end int) {
		if end > textStart {
			segs = append(segs, Segment{Kind: Text, Start: textStart, End: end})
		}
	}

	for i := 0; i < len(q); {
		c := q[i]
		var (
			kind Kind
			end  int
			ok   bool
		)

		switch {
		case c == '\'':
			kind, end, ok = String, closeQuote(q, i, '\'', opts.BackslashEscapes), true
		case c == '"':
			kind, end, ok = QuotedIdent, closeQuote(q, i, '"', false), true
		case c == '`':
			kind, end, ok = QuotedIdent, closeQuote(q, i, '`', false), true
		case c == '[' && opts.Brackets:
			kind, end, ok = QuotedIdent, closeBracket(q, i), true
		case c == '-' && i+1 < len(q) && q[i+1] == '-':
			kind, end, ok = LineComment, closeLine(q, i), true
		case c == '/' && i+1 < len(q) && q[i+1] == '*':
			kind, end, ok = BlockComment, closeBlock(q, i), true
		case c == '$':
			if tag, isTag := dollarTag(q, i); isTag {
				kind, end, ok = DollarQuoted, closeDollar(q, i, tag), true
			}
		}

		if !ok {
			i++
			continue
		}
		if end < 0 {
			return nil, &Error{Kind: kind, Pos: i}
		}
		flush(i)
		segs = append(segs, Segment{Kind: kind, Start: i, End: end})
		i = end
		textStart = end
	}
	flush(len(q))

	return segs, nil
}

// closeQuote returns the offset just past the closing quote, or -1.
// A doubled quote is an escaped quote.
func closeQuote(q string, start int, quote byte, backslash bool) int {
	for i := start + 1; i < len(q); i++ {
		switch q[i] {
		case '\\':
			if backslash {
				i++
			}
		case quote:
			if i+1 < len(q) && q[i+1] == quote {
				i++
				continue
			}
			return i + 1
		}
	}
	return -1
}

func closeBracket(q string, start int) int {
	for i := start + 1; i < len(q); i++ {
		if q[i] == ']' {
			if i+1 < len(q) && q[i+1] == ']' {
				i++
				continue
			}
			return i + 1
		}
	}
	return -1
}

func closeLine(q string, start int) int {
	for i := start; i < len(q); i++ {
		if q[i] == '\n' {
			return i + 1
		}
	}
	return len(q)
}

func closeBlock(q string, start int) int {
	depth := 0
	for i := start; i+1 < len(q); i++ {
		switch {
		case q[i] == '/' && q[i+1] == '*':
			depth++
			i++
		case q[i] == '*' && q[i+1] == '/':
			depth--
			i++
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// dollarTag reports whether a dollar quote opens at start and returns its tag
// ("$$" or "$name$"). "$1" and "$name" followed by anything but '$' are not tags.
func dollarTag(q string, start int) (string, bool) {
	if start > 0 && IsIdentByte(q[start-1]) {
		return "", false
	}
	i := start + 1
	if i < len(q) && q[i] == '$' {
		return "$$", true
	}
	if i >= len(q) || !IsIdentStart(q[i]) {
		return "", false
	}
	for i < len(q) && IsIdentByte(q[i]) {
		i++
	}
	if i < len(q) && q[i] == '$' {
		return q[start : i+1], true
	}
	return "", false
}

func closeDollar(q string, start int, tag string) int {
	for i := start + len(tag); i+len(tag) <= len(q); i++ {
		if q[i:i+len(tag)] == tag {
			return i + len(tag)
		}
	}
	return -1
}

// IsIdentStart reports whether c can start an unquoted identifier.
func IsIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

// IsIdentByte reports whether c can continue an unquoted identifier.
func IsIdentByte(c byte) bool {
	return IsIdentStart(c) || (c >= '0' && c <= '9')
}

// IsDigit reports whether c is an ASCII digit.
func IsDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
