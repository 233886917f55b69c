// Package filter provides composable clauses that extend a statement: pagination,
// ordering, date ranges, set membership, text search and raw predicates.
//
// A filter is an immutable value. Its parameter names are fixed when it is
// constructed and carry a process-wide sequence number, so two filters never
// bind the same name. Predicates reference parameters in the ":name" form.
package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/satishbabariya/sqlkit/internal/sqllex"
	"github.com/satishbabariya/sqlkit/query/dialect"
	"github.com/satishbabariya/sqlkit/query/expr"
)

// Kind identifies a filter variant.
type Kind int

const (
	KindLimitOffset Kind = iota + 1
	KindOrderBy
	KindBeforeAfter
	KindOnBeforeAfter
	KindIn
	KindNotIn
	KindAny
	KindNotAny
	KindSearch
	KindNotInSearch
	KindWhere
)

var kindNames = map[Kind]string{
	KindLimitOffset:   "limit_offset",
	KindOrderBy:       "order_by",
	KindBeforeAfter:   "before_after",
	KindOnBeforeAfter: "on_before_after",
	KindIn:            "in",
	KindNotIn:         "not_in",
	KindAny:           "any",
	KindNotAny:        "not_any",
	KindSearch:        "search",
	KindNotInSearch:   "not_in_search",
	KindWhere:         "where",
}

// String returns the kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

var (
	// ErrInvalidField is returned for a field that is not an identifier.
	ErrInvalidField = errors.New("invalid field name")

	// ErrInvalidValue is returned for a filter value that cannot be used.
	ErrInvalidValue = errors.New("invalid filter value")
)

// Binder receives the parameters a filter contributes.
type Binder interface {
	Bind(name string, value any) error
}

// Context is what a filter applies itself to.
type Context struct {
	Dialect dialect.Dialect
	Expr    expr.Expression
	Params  Binder
}

// where adds a predicate to the context expression.
func (c *Context) where(predicate string) error {
	e, err := c.Expr.Where(predicate)
	if err != nil {
		return err
	}
	c.Expr = e
	return nil
}

func (c *Context) bind(name string, value any) error {
	return c.Params.Bind(name, value)
}

// Filter is implemented only by the types of this package.
type Filter interface {
	// Kind returns the variant.
	Kind() Kind
	// Apply extends the context expression and binds the filter's parameters.
	Apply(ctx *Context) error
	// Parameters returns the values the filter binds, by name. The positional
	// part is always empty; it exists for drivers that bind filters by position.
	Parameters() ([]any, map[string]any)
	// CacheKey identifies the filter configuration. Filters with equal keys
	// have the same effect.
	CacheKey() string

	sealed()
}

// Collect turns a mixed argument list into filters and plain values.
func Collect(args []any) ([]Filter, []any) {
	var (
		filters []Filter
		values  []any
	)
	for _, a := range args {
		if f, ok := a.(Filter); ok {
			filters = append(filters, f)
			continue
		}
		values = append(values, a)
	}
	return filters, values
}

var sequence atomic.Uint64

// nextToken returns a process-wide unique number.
func nextToken() uint64 {
	return sequence.Add(1)
}

// paramName builds "<field>_<role>_<token>" from a field name.
func paramName(field, role string, token uint64) string {
	var b strings.Builder
	if base := sanitize(field); base != "" {
		b.WriteString(base)
		b.WriteByte('_')
	}
	b.WriteString(role)
	b.WriteByte('_')
	b.WriteString(strconv.FormatUint(token, 10))
	return b.String()
}

// sanitize reduces a field reference to identifier bytes: u."Created At" becomes u_created_at.
func sanitize(field string) string {
	var b strings.Builder
	underscore := false
	for i := 0; i < len(field); i++ {
		c := field[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + 'a' - 'A')
			underscore = false
		case (c >= 'a' && c <= 'z') || sqllex.IsDigit(c):
			b.WriteByte(c)
			underscore = false
		case c == '"' || c == '`' || c == '[' || c == ']':
		default:
			if b.Len() > 0 && !underscore {
				b.WriteByte('_')
				underscore = true
			}
		}
	}
	s := strings.TrimSuffix(b.String(), "_")
	if s != "" && sqllex.IsDigit(s[0]) {
		s = "f_" + s
	}
	return s
}

// placeholder renders a parameter reference.
func placeholder(name string) string {
	return ":" + name
}

// validateField accepts plain or quoted identifiers, optionally qualified.
func validateField(field string) error {
	if field == "" {
		return fmt.Errorf("%w: empty", ErrInvalidField)
	}
	rest := field
	for {
		n, ok := identPart(rest)
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidField, field)
		}
		rest = rest[n:]
		if rest == "" {
			return nil
		}
		if rest[0] != '.' {
			return fmt.Errorf("%w: %q", ErrInvalidField, field)
		}
		rest = rest[1:]
	}
}

// identPart returns the length of the identifier at the start of s.
func identPart(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	var closing byte
	switch s[0] {
	case '"':
		closing = '"'
	case '`':
		closing = '`'
	case '[':
		closing = ']'
	}
	if closing != 0 {
		end := strings.IndexByte(s[1:], closing)
		if end <= 0 {
			return 0, false
		}
		return end + 2, true
	}
	if !sqllex.IsIdentStart(s[0]) {
		return 0, false
	}
	i := 1
	for i < len(s) && sqllex.IsIdentByte(s[i]) {
		i++
	}
	return i, true
}
