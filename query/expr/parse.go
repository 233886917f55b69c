package expr

import (
	"errors"
	"strings"

	"github.com/satishbabariya/sqlkit/internal/sqllex"
	"github.com/satishbabariya/sqlkit/query/dialect"
)

// word is a top-level keyword candidate.
type word struct {
	upper      string
	start, end int
}

// layout is the top-level structure of a statement.
type layout struct {
	words  []word
	semis  []int
	hasSQL bool
	segs   []sqllex.Segment
}

// scanLayout collects the words and semicolons outside parentheses, literals
// and comments.
func scanLayout(q string, d dialect.Dialect) (*layout, error) {
	segs, err := sqllex.Segments(q, d.LexOptions())
	if err != nil {
		pe := &ParseError{SQL: q, Dialect: d, Pos: -1, Msg: err.Error(), Err: err}
		var lexErr *sqllex.Error
		if errors.As(err, &lexErr) {
			pe.Pos = lexErr.Pos
		}
		return nil, pe
	}

	l := &layout{segs: segs}
	depth := 0
	for _, seg := range segs {
		switch seg.Kind {
		case sqllex.LineComment, sqllex.BlockComment:
			continue
		case sqllex.Text:
		default:
			l.hasSQL = true
			continue
		}
		for i := seg.Start; i < seg.End; i++ {
			c := q[i]
			switch {
			case c == '(':
				depth++
			case c == ')':
				depth--
				if depth < 0 {
					return nil, &ParseError{SQL: q, Dialect: d, Pos: i, Msg: "unbalanced parenthesis"}
				}
			case c == ';' && depth == 0:
				l.semis = append(l.semis, i)
			case sqllex.IsIdentStart(c) && (i == 0 || !wordBoundaryBlocked(q[i-1])):
				j := i
				for j < seg.End && sqllex.IsIdentByte(q[j]) {
					j++
				}
				if depth == 0 {
					l.words = append(l.words, word{upper: strings.ToUpper(q[i:j]), start: i, end: j})
				}
				i = j - 1
			}
			if c != ';' && c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				l.hasSQL = true
			}
		}
	}
	if depth != 0 {
		return nil, &ParseError{SQL: q, Dialect: d, Pos: len(q), Msg: "unbalanced parenthesis"}
	}
	return l, nil
}

// wordBoundaryBlocked reports whether a byte before an identifier makes it part
// of something else: a longer identifier, a qualified name or a placeholder.
func wordBoundaryBlocked(c byte) bool {
	return sqllex.IsIdentByte(c) || c == '.' || c == ':' || c == '@' || c == '$' || c == '%'
}

// trimStatement strips a trailing semicolon and anything after it that is
// not SQL. A semicolon followed by more SQL is an error. Leading text is kept
// so offsets stay valid.
func trimStatement(q string, d dialect.Dialect, l *layout) (string, error) {
	if len(l.semis) == 0 {
		return strings.TrimRight(q, " \t\r\n"), nil
	}
	first := l.semis[0]
	for _, seg := range l.segs {
		if seg.End <= first+1 {
			continue
		}
		switch seg.Kind {
		case sqllex.LineComment, sqllex.BlockComment:
			continue
		case sqllex.Text:
			start := max(seg.Start, first+1)
			if strings.Trim(q[start:seg.End], " \t\r\n;") != "" {
				return "", &ParseError{SQL: q, Dialect: d, Pos: first, Msg: "multiple statements"}
			}
		default:
			return "", &ParseError{SQL: q, Dialect: d, Pos: first, Msg: "multiple statements"}
		}
	}
	return strings.TrimRight(q[:first], " \t\r\n"), nil
}

// parse builds the clause-level query for q.
func parse(q string, d dialect.Dialect) (*Query, error) {
	l, err := scanLayout(q, d)
	if err != nil {
		return nil, err
	}
	if !l.hasSQL || len(l.words) == 0 {
		return nil, &ParseError{SQL: q, Dialect: d, Pos: -1, Msg: "empty statement"}
	}
	text, err := trimStatement(q, d, l)
	if err != nil {
		return nil, err
	}

	words := l.words
	// Words after the statement end belong to trailing comments only.
	cut := len(words)
	for i, w := range words {
		if w.start >= len(text) {
			cut = i
			break
		}
	}
	words = words[:cut]
	if len(words) == 0 {
		return nil, &ParseError{SQL: q, Dialect: d, Pos: -1, Msg: "empty statement"}
	}

	main := 0
	if words[0].upper == "WITH" {
		main = -1
		for i, w := range words[1:] {
			if isMainKeyword(w.upper) {
				main = i + 1
				break
			}
		}
		if main < 0 {
			return nil, &ParseError{SQL: q, Dialect: d, Pos: words[0].start, Msg: "WITH without a statement"}
		}
	}

	query := &Query{dialect: d, source: strings.TrimSpace(text)}
	switch words[main].upper {
	case "SELECT":
		query.kind = KindSelect
	case "INSERT", "REPLACE":
		query.kind = KindInsert
	case "UPDATE":
		query.kind = KindUpdate
	case "DELETE":
		query.kind = KindDelete
	default:
		query.kind = KindOther
	}

	rest := words[main+1:]
	if query.kind == KindSelect {
		for _, w := range rest {
			if isSetOperator(w.upper) {
				query.kind = KindCompound
				break
			}
		}
	}
	switch words[main].upper {
	case "SELECT", "VALUES", "TABLE":
		query.wrappable = true
	}

	switch query.kind {
	case KindSelect, KindUpdate, KindDelete:
		split(query, text, rest)
	default:
		query.head = query.source
	}
	return query, nil
}

func isMainKeyword(w string) bool {
	switch w {
	case "SELECT", "INSERT", "REPLACE", "UPDATE", "DELETE", "MERGE", "VALUES", "TABLE":
		return true
	}
	return false
}

func isSetOperator(w string) bool {
	switch w {
	case "UNION", "INTERSECT", "EXCEPT", "MINUS":
		return true
	}
	return false
}

type clause int

const (
	clauseWhere clause = iota
	clauseMiddle
	clauseOrder
	clausePaging
	clauseSuffix
)

// split cuts the statement at its first top-level WHERE, GROUP BY/HAVING/
// WINDOW/QUALIFY, ORDER BY, LIMIT/OFFSET/FETCH and FOR/RETURNING keywords.
func split(query *Query, text string, words []word) {
	starts := map[clause]int{}
	bodies := map[clause]int{}
	mark := func(c clause, start, body int) {
		if _, ok := starts[c]; !ok {
			starts[c] = start
			bodies[c] = body
		}
	}

	for i, w := range words {
		nextBy := i+1 < len(words) && words[i+1].upper == "BY"
		switch w.upper {
		case "WHERE":
			mark(clauseWhere, w.start, w.end)
		case "GROUP":
			if nextBy {
				mark(clauseMiddle, w.start, w.start)
			}
		case "HAVING", "WINDOW", "QUALIFY":
			mark(clauseMiddle, w.start, w.start)
		case "ORDER":
			if nextBy {
				mark(clauseOrder, w.start, words[i+1].end)
			}
		case "LIMIT", "OFFSET", "FETCH":
			mark(clausePaging, w.start, w.start)
		case "FOR", "RETURNING":
			mark(clauseSuffix, w.start, w.start)
		}
	}

	// A clause is only honoured when it follows every earlier-kind clause;
	// anything else stays part of whatever section it falls in.
	last := -1
	var order []clause
	for c := clauseWhere; c <= clauseSuffix; c++ {
		if s, ok := starts[c]; ok {
			if s <= last {
				delete(starts, c)
				continue
			}
			last = s
			order = append(order, c)
		}
	}

	end := func(k int) int {
		if k+1 < len(order) {
			return starts[order[k+1]]
		}
		return len(text)
	}

	query.head = strings.TrimSpace(text)
	if len(order) > 0 {
		query.head = strings.TrimSpace(text[:starts[order[0]]])
	}
	for k, c := range order {
		section := strings.TrimSpace(text[bodies[c]:end(k)])
		switch c {
		case clauseWhere:
			query.where = []string{section}
		case clauseMiddle:
			query.middle = section
		case clauseOrder:
			query.orderBy = []string{section}
		case clausePaging:
			query.paging = section
		case clauseSuffix:
			query.suffix = section
		}
	}
}
