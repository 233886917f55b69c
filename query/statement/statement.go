// Package statement provides the immutable compiled unit: SQL text or a parsed
// expression, its parameters, pending filters and an execution mode.
//
// Every method that looks like a mutation returns a new Statement. Compile
// folds the filters in, translates placeholders for the target driver and
// caches the result on the instance.
package statement

import (
	"fmt"
	"slices"
	"sync"

	"github.com/satishbabariya/sqlkit/query/dialect"
	"github.com/satishbabariya/sqlkit/query/expr"
	"github.com/satishbabariya/sqlkit/query/filter"
	"github.com/satishbabariya/sqlkit/query/params"
)

// Mode is the execution mode of a statement.
type Mode int

const (
	// ModeSingle runs the statement once.
	ModeSingle Mode = iota
	// ModeMany runs the statement once per batch row.
	ModeMany
	// ModeScript runs the text as a multi-statement script.
	ModeScript
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeMany:
		return "many"
	case ModeScript:
		return "script"
	default:
		return "single"
	}
}

// Statement is one logical SQL operation.
type Statement struct {
	sql        string
	expression expr.Expression
	args       params.Args
	filters    []filter.Filter
	mode       Mode
	batch      []params.Args
	config     *Config

	compiled *compileCache
}

type compileCache struct {
	mu       sync.Mutex
	results  map[params.Style]Compiled
	rendered bool
	text     string
	textErr  error
}

// New returns a statement for sql with the default configuration.
//
// Arguments that are filters are attached in order. The remaining arguments
// are the parameters: a single params.Args, map[string]any or []any is used
// as is, anything else becomes a positional list.
func New(sql string, args ...any) *Statement {
	return NewWithConfig(DefaultConfig(), sql, args...)
}

// NewWithConfig is New with an explicit configuration.
func NewWithConfig(cfg *Config, sql string, args ...any) *Statement {
	s := &Statement{sql: sql, config: configOrDefault(cfg), mode: ModeSingle}
	return s.init(args)
}

// FromExpression returns a statement over a parsed expression. The
// configuration dialect follows the expression; WithConfig replaces it.
func FromExpression(e expr.Expression, args ...any) *Statement {
	s := &Statement{
		expression: e,
		config:     NewConfig(WithDialect(e.Dialect())),
		mode:       ModeSingle,
	}
	return s.init(args)
}

func configOrDefault(cfg *Config) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return cfg
}

func (s *Statement) init(args []any) *Statement {
	filters, values := filter.Collect(args)
	s.args = toArgs(values)
	s.filters = dedupe(nil, filters)
	s.compiled = &compileCache{}
	return s
}

func toArgs(values []any) params.Args {
	if len(values) == 1 {
		switch v := values[0].(type) {
		case params.Args:
			return v
		case map[string]any:
			return params.Named(v)
		case []any:
			return params.Positional(v...)
		}
	}
	if len(values) == 0 {
		return params.None()
	}
	return params.Positional(values...)
}

// dedupe appends the filters of add whose cache key is not present yet.
func dedupe(existing, add []filter.Filter) []filter.Filter {
	if len(add) == 0 {
		return existing
	}
	seen := make(map[string]bool, len(existing)+len(add))
	for _, f := range existing {
		seen[f.CacheKey()] = true
	}
	out := slices.Clip(existing)
	for _, f := range add {
		key := f.CacheKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

// derive returns a copy with a fresh compile cache.
func (s *Statement) derive() *Statement {
	c := *s
	c.compiled = &compileCache{}
	return &c
}

// SQL returns the raw statement text. Statements built from an expression
// return the rendered expression, or "" when it cannot be rendered.
func (s *Statement) SQL() string {
	if s.expression == nil {
		return s.sql
	}
	s.compiled.mu.Lock()
	defer s.compiled.mu.Unlock()
	text, _ := s.source()
	return text
}

// Expression returns the expression handle, nil for text statements.
func (s *Statement) Expression() expr.Expression { return s.expression }

// Args returns the parameters supplied at construction.
func (s *Statement) Args() params.Args { return s.args }

// Filters returns the pending filters in attachment order.
func (s *Statement) Filters() []filter.Filter { return slices.Clone(s.filters) }

// Mode returns the execution mode.
func (s *Statement) Mode() Mode { return s.mode }

// Batch returns the batch rows of a many-mode statement.
func (s *Statement) Batch() []params.Args { return slices.Clone(s.batch) }

// Config returns the configuration.
func (s *Statement) Config() *Config { return s.config }

// Dialect returns the configured dialect.
func (s *Statement) Dialect() dialect.Dialect { return s.config.Dialect }

// Filter returns a statement with filters appended. Filters whose cache key
// is already attached are skipped.
func (s *Statement) Filter(filters ...filter.Filter) *Statement {
	c := s.derive()
	c.filters = dedupe(s.filters, filters)
	return c
}

// Where returns a statement with an extra predicate. Positional args bind the
// predicate's positional placeholders; a single map binds named ones.
func (s *Statement) Where(predicate string, args ...any) *Statement {
	return s.Filter(filter.NewWhere(predicate, args...))
}

// WhereArgs is Where with named values.
func (s *Statement) WhereArgs(predicate string, named map[string]any) *Statement {
	return s.Filter(filter.NewWhere(predicate, named))
}

// Paginate returns a statement limited to limit rows after offset.
func (s *Statement) Paginate(limit, offset int64) *Statement {
	return s.Filter(filter.NewLimitOffset(limit, offset))
}

// OrderBy returns a statement ordered by field.
func (s *Statement) OrderBy(field, direction string) *Statement {
	return s.Filter(filter.NewOrderBy(field, direction))
}

// AsMany returns a statement that runs once per batch row. Filters that bind
// parameters, such as pagination, cannot be combined with it: Compile returns
// ErrManyModeFilterParams because the rows carry no values for them.
func (s *Statement) AsMany(batch []params.Args) *Statement {
	c := s.derive()
	c.mode = ModeMany
	c.batch = slices.Clone(batch)
	return c
}

// AsScript returns a statement that runs as a multi-statement script.
func (s *Statement) AsScript() *Statement {
	c := s.derive()
	c.mode = ModeScript
	c.batch = nil
	return c
}

// WithConfig returns a statement using cfg.
func (s *Statement) WithConfig(cfg *Config) *Statement {
	c := s.derive()
	c.config = configOrDefault(cfg)
	return c
}

// String returns a short description for logs.
func (s *Statement) String() string {
	return fmt.Sprintf("statement(mode=%s, filters=%d, params=%s)", s.mode, len(s.filters), s.args.Shape())
}
