package expr

import (
	"fmt"
	"slices"
	"strings"

	"github.com/satishbabariya/sqlkit/internal/sqllex"
	"github.com/satishbabariya/sqlkit/query/dialect"
)

// wrapAlias names the derived table a statement is wrapped in.
const wrapAlias = "wrapped_query"

// Query is the built-in Expression. Clauses it does not understand are kept
// verbatim.
type Query struct {
	dialect   dialect.Dialect
	kind      Kind
	source    string
	wrappable bool

	head    string
	where   []string
	middle  string
	orderBy []string
	paging  string
	suffix  string

	limit    string
	offset   string
	modified bool
}

// Kind implements Expression.
func (q *Query) Kind() Kind {
	return q.kind
}

// Dialect implements Expression.
func (q *Query) Dialect() dialect.Dialect {
	return q.dialect
}

// Modified implements Expression.
func (q *Query) Modified() bool {
	return q.modified
}

// Source returns the statement text as parsed.
func (q *Query) Source() string {
	return q.source
}

// HasPagination reports whether the statement limits its rows.
func (q *Query) HasPagination() bool {
	return q.paging != "" || q.limit != "" || q.offset != ""
}

func (q *Query) clone() *Query {
	c := *q
	c.where = slices.Clone(q.where)
	c.orderBy = slices.Clone(q.orderBy)
	c.modified = true
	return &c
}

// wrap returns SELECT * FROM (q) AS wrapped_query.
func (q *Query) wrap() *Query {
	inner := q.render(q.dialect, false)
	if endsInLineComment(inner, q.dialect) {
		inner += "\n"
	}
	alias := " AS " + wrapAlias
	if q.dialect == dialect.Oracle {
		alias = " " + wrapAlias
	}
	head := "SELECT * FROM (" + inner + ")" + alias
	return &Query{
		dialect:   q.dialect,
		kind:      KindSelect,
		source:    head,
		wrappable: true,
		head:      head,
		modified:  true,
	}
}

// Where implements Expression.
func (q *Query) Where(predicate string) (Expression, error) {
	predicate = strings.TrimSpace(predicate)
	if predicate == "" {
		return nil, fmt.Errorf("where: empty predicate")
	}
	if _, err := scanLayout(predicate, q.dialect); err != nil {
		return nil, err
	}

	var c *Query
	switch {
	case q.kind == KindSelect || q.kind == KindUpdate || q.kind == KindDelete:
		c = q.clone()
	case q.wrappable:
		c = q.wrap()
	default:
		return nil, unsupported("where", q.kind)
	}
	c.where = append(c.where, predicate)
	return c, nil
}

// OrderBy implements Expression.
func (q *Query) OrderBy(terms ...string) (Expression, error) {
	if len(terms) == 0 {
		return q, nil
	}
	var c *Query
	switch {
	case q.kind == KindSelect:
		c = q.clone()
	case q.wrappable:
		c = q.wrap()
	default:
		return nil, unsupported("order by", q.kind)
	}
	for _, term := range terms {
		if term = strings.TrimSpace(term); term != "" {
			c.orderBy = append(c.orderBy, term)
		}
	}
	return c, nil
}

// Paginate implements Expression. A statement that already limits its rows,
// or is not a plain SELECT, is wrapped in a derived table first.
func (q *Query) Paginate(limit, offset string) (Expression, error) {
	if limit == "" && offset == "" {
		return q, nil
	}
	var c *Query
	switch {
	case q.kind == KindSelect && !q.HasPagination():
		c = q.clone()
	case q.wrappable:
		c = q.wrap()
	default:
		return nil, unsupported("limit/offset", q.kind)
	}
	c.limit = limit
	c.offset = offset
	return c, nil
}

func (q *Query) render(d dialect.Dialect, pretty bool) string {
	if !q.modified {
		return q.source
	}

	parts := []string{q.head}
	if len(q.where) > 0 {
		parts = append(parts, "WHERE "+q.joinPredicates())
	}
	if q.middle != "" {
		parts = append(parts, q.middle)
	}

	order := q.orderBy
	paging := q.paging
	if q.limit != "" || q.offset != "" {
		paging = pagination(d, q.limit, q.offset)
		if d == dialect.SQLServer && len(order) == 0 {
			order = []string{"(SELECT NULL)"}
		}
	}
	if len(order) > 0 {
		parts = append(parts, "ORDER BY "+strings.Join(order, ", "))
	}
	if paging != "" {
		parts = append(parts, paging)
	}
	if q.suffix != "" {
		parts = append(parts, q.suffix)
	}

	var b strings.Builder
	for i, part := range parts {
		if i > 0 {
			if pretty || endsInLineComment(parts[i-1], q.dialect) {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(part)
	}
	return b.String()
}

func (q *Query) joinPredicates() string {
	if len(q.where) == 1 {
		return q.where[0]
	}
	preds := make([]string, len(q.where))
	for i, p := range q.where {
		if hasTopLevelOr(p, q.dialect) {
			p = "(" + p + ")"
		}
		preds[i] = p
	}
	return strings.Join(preds, " AND ")
}

func pagination(d dialect.Dialect, limit, offset string) string {
	if d.OffsetFetch() {
		if offset == "" {
			offset = "0"
		}
		s := "OFFSET " + offset + " ROWS"
		if limit != "" {
			s += " FETCH NEXT " + limit + " ROWS ONLY"
		}
		return s
	}

	if limit == "" {
		switch {
		case d.MySQLFamily():
			limit = "18446744073709551615"
		case d == dialect.SQLite:
			limit = "-1"
		default:
			return "OFFSET " + offset
		}
	}
	s := "LIMIT " + limit
	if offset != "" {
		s += " OFFSET " + offset
	}
	return s
}

func hasTopLevelOr(p string, d dialect.Dialect) bool {
	l, err := scanLayout(p, d)
	if err != nil {
		return true
	}
	for _, w := range l.words {
		if w.upper == "OR" {
			return true
		}
	}
	return false
}

func endsInLineComment(s string, d dialect.Dialect) bool {
	segs, err := sqllex.Segments(s, d.LexOptions())
	if err != nil || len(segs) == 0 {
		return false
	}
	last := segs[len(segs)-1]
	return last.Kind == sqllex.LineComment && !strings.HasSuffix(s, "\n")
}
