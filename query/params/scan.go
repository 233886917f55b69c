package params

import (
	"errors"
	"strconv"

	"github.com/satishbabariya/sqlkit/internal/sqllex"
)

// Placeholder is one placeholder occurrence in SQL text.
type Placeholder struct {
	Style Style
	// Name is set for named styles.
	Name string
	// Number is the one based slot number of numbered styles ($2, :2).
	Number int
	// Ordinal is the zero based position of the placeholder in the scan.
	Ordinal int
	// Start and End delimit the placeholder text in the input.
	Start int
	End   int
	Text  string
}

// Option configures scanning.
type Option func(*options)

type options struct {
	allowMixed bool
	lex        sqllex.Options
}

// WithAllowMixed accepts statements that combine several placeholder styles.
func WithAllowMixed() Option {
	return func(o *options) {
		o.allowMixed = true
	}
}

// WithLexOptions sets dialect-dependent lexing rules.
func WithLexOptions(lex sqllex.Options) Option {
	return func(o *options) {
		o.lex = lex
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Scan returns every placeholder of q from left to right. Literals, quoted
// identifiers and comments are skipped.
func Scan(q string, opts ...Option) ([]Placeholder, error) {
	o := buildOptions(opts)
	return scan(q, o.lex)
}

// Detect returns the style of q together with its placeholders. A statement
// without placeholders reports StyleNone. When several styles appear the first
// one wins if mixing was allowed; otherwise a *MixedStyleError is returned.
func Detect(q string, opts ...Option) (Style, []Placeholder, error) {
	o := buildOptions(opts)
	phs, err := scan(q, o.lex)
	if err != nil {
		return StyleNone, nil, err
	}
	styles := distinctStyles(phs)
	if len(styles) == 0 {
		return StyleNone, phs, nil
	}
	if len(styles) > 1 && !o.allowMixed {
		return StyleNone, nil, &MixedStyleError{Styles: styles}
	}
	return styles[0], phs, nil
}

func distinctStyles(phs []Placeholder) []Style {
	var styles []Style
	seen := make(map[Style]bool)
	for _, ph := range phs {
		if !seen[ph.Style] {
			seen[ph.Style] = true
			styles = append(styles, ph.Style)
		}
	}
	return styles
}

func scan(q string, lex sqllex.Options) ([]Placeholder, error) {
	segs, err := sqllex.Segments(q, lex)
	if err != nil {
		var lexErr *sqllex.Error
		pos := 0
		if errors.As(err, &lexErr) {
			pos = lexErr.Pos
		}
		return nil, &PlaceholderError{Pos: pos, Msg: err.Error(), Err: err}
	}

	var phs []Placeholder
	for _, seg := range segs {
		if seg.Kind != sqllex.Text {
			continue
		}
		for i := seg.Start; i < seg.End; {
			ph, next, err := scanAt(q, i, seg.End)
			if err != nil {
				return nil, err
			}
			if ph != nil {
				ph.Ordinal = len(phs)
				ph.Text = q[ph.Start:ph.End]
				phs = append(phs, *ph)
			}
			i = next
		}
	}
	return phs, nil
}

// scanAt reads a placeholder starting at i, if any, and returns the offset to
// continue from.
func scanAt(q string, i, end int) (*Placeholder, int, error) {
	c := q[i]
	afterIdent := i > 0 && sqllex.IsIdentByte(q[i-1])

	switch c {
	case '?':
		// jsonb operators ?| and ?&
		if i+1 < end && (q[i+1] == '|' || q[i+1] == '&') {
			return nil, i + 2, nil
		}
		return &Placeholder{Style: StyleQMark, Start: i, End: i + 1}, i + 1, nil

	case '$':
		if afterIdent || i+1 >= end {
			return nil, i + 1, nil
		}
		if sqllex.IsDigit(q[i+1]) {
			j := digitsEnd(q, i+1, end)
			n, err := slotNumber(q, i, j)
			if err != nil || n == 0 {
				return nil, j, err
			}
			return &Placeholder{Style: StyleNumeric, Number: n, Start: i, End: j}, j, nil
		}
		if sqllex.IsIdentStart(q[i+1]) {
			j := identEnd(q, i+1, end)
			return &Placeholder{Style: StyleNamedDollar, Name: q[i+1 : j], Start: i, End: j}, j, nil
		}

	case ':':
		if i+1 >= end {
			return nil, i + 1, nil
		}
		// :: casts and := assignments
		if q[i+1] == ':' || q[i+1] == '=' {
			return nil, i + 2, nil
		}
		// array slices arr[1:2], labels
		if afterIdent {
			return nil, i + 1, nil
		}
		if sqllex.IsDigit(q[i+1]) {
			j := digitsEnd(q, i+1, end)
			n, err := slotNumber(q, i, j)
			if err != nil || n == 0 {
				return nil, j, err
			}
			return &Placeholder{Style: StylePositionalColon, Number: n, Start: i, End: j}, j, nil
		}
		if sqllex.IsIdentStart(q[i+1]) {
			j := identEnd(q, i+1, end)
			return &Placeholder{Style: StyleNamedColon, Name: q[i+1 : j], Start: i, End: j}, j, nil
		}

	case '@':
		// @@session variables
		if i+1 < end && q[i+1] == '@' {
			return nil, identEnd(q, i+2, end), nil
		}
		if !afterIdent && i+1 < end && sqllex.IsIdentStart(q[i+1]) {
			j := identEnd(q, i+1, end)
			return &Placeholder{Style: StyleNamedAt, Name: q[i+1 : j], Start: i, End: j}, j, nil
		}

	case '%':
		if i+1 >= end {
			return nil, i + 1, nil
		}
		switch q[i+1] {
		case '%':
			return nil, i + 2, nil
		case 's':
			if i+2 < end && sqllex.IsIdentByte(q[i+2]) {
				// modulo by a column, e.g. a %size
				return nil, i + 1, nil
			}
			return &Placeholder{Style: StylePyformatPositional, Start: i, End: i + 2}, i + 2, nil
		case '(':
			return scanPyformat(q, i, end)
		}
	}
	return nil, i + 1, nil
}

// MaxSlots is the highest slot number a numbered placeholder may use. It is
// the bind parameter limit of the Postgres wire protocol.
const MaxSlots = 65535

// slotNumber reads the digits of the numbered placeholder q[start:end].
func slotNumber(q string, start, end int) (int, error) {
	n, err := strconv.Atoi(q[start+1 : end])
	if err != nil || n > MaxSlots {
		return 0, &PlaceholderError{Pos: start, Text: q[start:end], Msg: "slot number out of range"}
	}
	return n, nil
}

func scanPyformat(q string, start, end int) (*Placeholder, int, error) {
	nameStart := start + 2
	j := nameStart
	for j < end && q[j] != ')' {
		if !sqllex.IsIdentByte(q[j]) {
			return nil, 0, &PlaceholderError{Pos: start, Text: q[start : j+1], Msg: "invalid character in parameter name"}
		}
		j++
	}
	if j >= end {
		return nil, 0, &PlaceholderError{Pos: start, Text: q[start:end], Msg: "missing closing parenthesis"}
	}
	if j == nameStart || !sqllex.IsIdentStart(q[nameStart]) {
		return nil, 0, &PlaceholderError{Pos: start, Text: q[start : j+1], Msg: "invalid parameter name"}
	}
	if j+1 >= end || q[j+1] != 's' {
		text := q[start : j+1]
		if j+1 < end {
			text = q[start : j+2]
		}
		return nil, 0, &PlaceholderError{Pos: start, Text: text, Msg: "only the s conversion is supported"}
	}
	return &Placeholder{Style: StylePyformatNamed, Name: q[nameStart:j], Start: start, End: j + 2}, j + 2, nil
}

func digitsEnd(q string, i, end int) int {
	for i < end && sqllex.IsDigit(q[i]) {
		i++
	}
	return i
}

func identEnd(q string, i, end int) int {
	for i < end && sqllex.IsIdentByte(q[i]) {
		i++
	}
	return i
}
