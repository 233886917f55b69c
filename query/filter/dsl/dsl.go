// Package dsl parses a compact text form of filters, as accepted by the CLI:
//
//	limit 10 offset 20; order by created_at desc, id
//	id in (1, 2, 3); status not in ('deleted')
//	created_at on or after "2024-01-01" before "2024-02-01"
//	search name, email for "bob" icase; not search note for 'spam'
//	where "age > 18"
package dsl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/satishbabariya/sqlkit/query/filter"
)

// Lexer tokenizes filter expressions.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `(?i)\b(limit|offset|order|by|asc|desc|not|search|for|icase|before|after|on|or|in|any|where)\b`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'(?:''|[^'])*'`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
	{Name: "QuotedIdent", Pattern: "`[^`]+`"},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_]*(?:\.[\p{L}_][\p{L}\p{N}_]*)*`},
	{Name: "Punct", Pattern: `[(),;]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Program is a sequence of clauses, optionally separated by semicolons.
type Program struct {
	Clauses []*Clause `";"* ( @@ ";"* )*`
}

// Clause is one filter.
type Clause struct {
	Pos    lexer.Position
	Limit  *LimitClause  `  @@`
	Offset *OffsetClause `| @@`
	Order  *OrderClause  `| @@`
	Search *SearchClause `| @@`
	Where  *WhereClause  `| @@`
	Field  *FieldClause  `| @@`
}

// LimitClause is "limit n [offset m]".
type LimitClause struct {
	Limit  int64  `"limit" @Number`
	Offset *int64 `( "offset" @Number )?`
}

// OffsetClause is "offset m".
type OffsetClause struct {
	Offset int64 `"offset" @Number`
}

// OrderClause is "order by field [asc|desc], ...".
type OrderClause struct {
	Terms []*OrderTerm `"order" "by" @@ ( "," @@ )*`
}

// OrderTerm is one ordering entry.
type OrderTerm struct {
	Field     string `@(Ident | QuotedIdent)`
	Direction string `@("asc" | "desc")?`
}

// SearchClause is "[not] search f1, f2 for 'value' [icase]".
type SearchClause struct {
	Not    bool     `@"not"?`
	Fields []string `"search" @(Ident | QuotedIdent) ( "," @(Ident | QuotedIdent) )*`
	Value  string   `"for" @String`
	ICase  bool     `@"icase"?`
}

// WhereClause is a raw predicate.
type WhereClause struct {
	Predicate string `"where" @String`
}

// FieldClause is a range or membership test on a field.
type FieldClause struct {
	Field      string      `@(Ident | QuotedIdent)`
	Bounds     []*Bound    `( @@+`
	Membership *Membership `| @@ )`
}

// Bound is "[on or] before|after 'time'".
type Bound struct {
	Inclusive bool   `( @"on" "or" )?`
	Op        string `@("before" | "after")`
	Value     string `@String`
}

// Membership is "[not] in|any (v1, v2, ...)".
type Membership struct {
	Not    bool     `@"not"?`
	Op     string   `@("in" | "any")`
	Values []*Value `"(" ( @@ ( "," @@ )* )? ")"`
}

// Value is a literal.
type Value struct {
	Number *string `  @Number`
	String *string `| @String`
}

var parser = participle.MustBuild[Program](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Keyword"),
	participle.UseLookahead(4),
)

// timeLayouts are tried in order for range bounds.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// Parse turns input into filters, in clause order.
func Parse(input string) ([]filter.Filter, error) {
	program, err := parser.ParseString("filter", input)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}
	var filters []filter.Filter
	for _, c := range program.Clauses {
		fs, err := c.filters()
		if err != nil {
			return nil, fmt.Errorf("parse filter at %s: %w", c.Pos, err)
		}
		filters = append(filters, fs...)
	}
	return filters, nil
}

// ParseAll parses several inputs, e.g. repeated --filter flags.
func ParseAll(inputs []string) ([]filter.Filter, error) {
	var filters []filter.Filter
	for _, in := range inputs {
		fs, err := Parse(in)
		if err != nil {
			return nil, err
		}
		filters = append(filters, fs...)
	}
	return filters, nil
}

func (c *Clause) filters() ([]filter.Filter, error) {
	switch {
	case c.Limit != nil:
		var offset int64
		if c.Limit.Offset != nil {
			offset = *c.Limit.Offset
		}
		return []filter.Filter{filter.NewLimitOffset(c.Limit.Limit, offset)}, nil

	case c.Offset != nil:
		// Offset alone still binds a limit; 2^62 rows is never reached.
		return []filter.Filter{filter.NewLimitOffset(1<<62, c.Offset.Offset)}, nil

	case c.Order != nil:
		terms := make([]filter.Term, len(c.Order.Terms))
		for i, t := range c.Order.Terms {
			terms[i] = filter.Term{Field: t.Field, Direction: filter.ParseDirection(t.Direction)}
		}
		return []filter.Filter{filter.NewOrderByTerms(terms...)}, nil

	case c.Search != nil:
		value, err := unquote(c.Search.Value)
		if err != nil {
			return nil, err
		}
		if c.Search.Not {
			return []filter.Filter{filter.NewNotInSearch(c.Search.Fields, value, c.Search.ICase)}, nil
		}
		return []filter.Filter{filter.NewSearchFields(c.Search.Fields, value, c.Search.ICase)}, nil

	case c.Where != nil:
		predicate, err := unquote(c.Where.Predicate)
		if err != nil {
			return nil, err
		}
		return []filter.Filter{filter.NewWhere(predicate)}, nil

	case c.Field != nil:
		return c.Field.filters()
	}
	return nil, fmt.Errorf("empty clause")
}

func (c *FieldClause) filters() ([]filter.Filter, error) {
	field := c.Field
	if m := c.Membership; m != nil {
		values := make([]any, 0, len(m.Values))
		for _, v := range m.Values {
			value, err := v.value()
			if err != nil {
				return nil, err
			}
			values = append(values, value)
		}
		in := strings.EqualFold(m.Op, "in")
		switch {
		case in && m.Not:
			return []filter.Filter{filter.NewNotIn(field, values)}, nil
		case in:
			return []filter.Filter{filter.NewIn(field, values)}, nil
		case m.Not:
			return []filter.Filter{filter.NewNotAny(field, values)}, nil
		default:
			return []filter.Filter{filter.NewAny(field, values)}, nil
		}
	}

	var strict, inclusive [2]*time.Time
	for _, b := range c.Bounds {
		s, err := unquote(b.Value)
		if err != nil {
			return nil, err
		}
		t, err := parseTime(s)
		if err != nil {
			return nil, err
		}
		bounds := &strict
		if b.Inclusive {
			bounds = &inclusive
		}
		if strings.EqualFold(b.Op, "before") {
			bounds[0] = &t
		} else {
			bounds[1] = &t
		}
	}

	var filters []filter.Filter
	if strict[0] != nil || strict[1] != nil {
		filters = append(filters, filter.NewBeforeAfter(field, strict[0], strict[1]))
	}
	if inclusive[0] != nil || inclusive[1] != nil {
		filters = append(filters, filter.NewOnBeforeAfter(field, inclusive[0], inclusive[1]))
	}
	return filters, nil
}

func (v *Value) value() (any, error) {
	if v.String != nil {
		return unquote(*v.String)
	}
	if i, err := strconv.ParseInt(*v.Number, 10, 64); err == nil {
		return i, nil
	}
	return strconv.ParseFloat(*v.Number, 64)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

func unquote(s string) (string, error) {
	if strings.HasPrefix(s, "'") {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), nil
	}
	return strconv.Unquote(s)
}
