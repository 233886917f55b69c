package statement

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/satishbabariya/sqlkit/query/cache"
	"github.com/satishbabariya/sqlkit/query/expr"
	"github.com/satishbabariya/sqlkit/query/filter"
	"github.com/satishbabariya/sqlkit/query/params"
)

// Compiled is a statement ready for a driver.
type Compiled struct {
	// SQL is the final text in Style.
	SQL string
	// Args holds the parameters. Positional styles get a positional
	// collection, named styles a named one, so an explicit target style
	// decides the shape. StyleNone without a configured target style keeps
	// the shape the statement was built with. Empty in many and script mode.
	Args params.Args
	// Batch holds one collection per row in many mode.
	Batch []params.Args
	// Style is the placeholder style of SQL, StyleNone for scripts and
	// downgraded statements.
	Style params.Style
	// Names lists the parameter names in binding order.
	Names []string
	// Warnings holds downgraded errors.
	Warnings []string
}

func (c Compiled) clone() Compiled {
	c.Batch = slices.Clone(c.Batch)
	c.Names = slices.Clone(c.Names)
	c.Warnings = slices.Clone(c.Warnings)
	return c
}

// Compile returns the final SQL and parameters for target. StyleNone selects
// the configured target style, then the statement's own style, then the
// dialect default.
//
// The first call for a style does the work; later calls return the cached
// result. Compile is safe for concurrent use.
func (s *Statement) Compile(target params.Style) (Compiled, error) {
	cc := s.compiled
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if c, ok := cc.results[target]; ok {
		return c.clone(), nil
	}
	c, err := s.compile(target)
	if err != nil {
		return Compiled{}, err
	}
	if cc.results == nil {
		cc.results = make(map[params.Style]Compiled)
	}
	cc.results[target] = c
	return c.clone(), nil
}

// source returns the statement text, rendering an expression once.
// The caller holds the compile cache lock.
func (s *Statement) source() (string, error) {
	if s.expression == nil {
		return s.sql, nil
	}
	cc := s.compiled
	if !cc.rendered {
		cc.text, cc.textErr = s.config.service().Render(s.expression, s.config.Dialect, false)
		cc.rendered = true
	}
	return cc.text, cc.textErr
}

func (s *Statement) compile(target params.Style) (Compiled, error) {
	cfg := s.config
	log := cfg.logger()

	text, err := s.source()
	if err != nil {
		return Compiled{}, err
	}

	if s.mode == ModeScript {
		if len(s.filters) > 0 {
			return Compiled{}, ErrScriptFilters
		}
		return Compiled{SQL: text, Args: params.None()}, nil
	}

	canon, err := params.Convert(text, params.StyleNamedColon, cfg.scanOptions()...)
	if err != nil {
		return s.downgrade(text, err)
	}

	st := &store{base: s.args}
	out := text
	if len(s.filters) > 0 || cfg.EnableValidation {
		e, err := s.resolve(text, canon.SQL)
		if err != nil {
			return s.downgrade(text, err)
		}
		if len(s.filters) > 0 {
			if out, err = s.fold(e, text, st); err != nil {
				return Compiled{}, err
			}
		}
	}

	style := target
	if style == params.StyleNone {
		style = cfg.TargetStyle
	}
	if style == params.StyleNone {
		style = canon.Source
	}
	if style == params.StyleNone {
		style = cfg.Dialect.PlaceholderStyle()
	}

	tr, err := params.Convert(out, style, cfg.scanOptions()...)
	if err != nil {
		return Compiled{}, fmt.Errorf("translate to %s: %w", style, err)
	}

	compiled := Compiled{SQL: tr.SQL, Style: style, Names: tr.Names()}
	if s.mode == ModeMany {
		if len(st.added) > 0 {
			return Compiled{}, ErrManyModeFilterParams
		}
		compiled.Args = params.None()
		if compiled.Batch, err = s.remap(tr); err != nil {
			return Compiled{}, err
		}
	} else {
		args, missing := tr.Bind(st.lookup)
		if len(missing) > 0 && cfg.EnableValidation {
			return Compiled{}, &MissingParameterError{Names: distinct(missing), Row: -1}
		}
		if len(compiled.Names) == 0 && s.args.Shape() == params.ShapeEmpty {
			args = params.None()
		}
		compiled.Args = args
	}

	log.Debug("compiled statement",
		slog.String("mode", s.mode.String()),
		slog.String("style", style.String()),
		slog.Int("filters", len(s.filters)),
		slog.Int("params", len(compiled.Names)))
	return compiled, nil
}

// resolve parses the canonical text. An expression handle is reused when its
// text is already canonical.
func (s *Statement) resolve(text, canonical string) (expr.Expression, error) {
	if s.expression != nil && text == canonical {
		return s.expression, nil
	}
	return cache.Resolve(s.config.Cache, s.config.service(), canonical, s.config.Dialect)
}

// fold applies the filters in order and renders the result. Unmodified
// expressions keep the original text.
func (s *Statement) fold(e expr.Expression, text string, st *store) (string, error) {
	cfg := s.config
	ctx := &filter.Context{Dialect: cfg.Dialect, Expr: e, Params: st}
	for _, f := range s.filters {
		st.current = f.Kind()
		if err := f.Apply(ctx); err != nil {
			return "", fmt.Errorf("apply %s filter: %w", f.Kind(), err)
		}
	}
	if !ctx.Expr.Modified() {
		return text, nil
	}
	return cfg.service().Render(ctx.Expr, cfg.Dialect, false)
}

// remap returns the batch rows in the shape and order of tr.
func (s *Statement) remap(tr *params.Translation) ([]params.Args, error) {
	if s.batch == nil {
		return nil, nil
	}
	want := params.ShapeNamed
	if tr.Target.Positional() {
		want = params.ShapePositional
	}
	if tr.Identity() && !slices.ContainsFunc(s.batch, func(row params.Args) bool { return row.Shape() != want }) {
		return slices.Clone(s.batch), nil
	}

	out := make([]params.Args, len(s.batch))
	for i, row := range s.batch {
		args, missing := tr.Bind(row.Lookup)
		if len(missing) > 0 && s.config.EnableValidation {
			return nil, &MissingParameterError{Names: distinct(missing), Row: i}
		}
		out[i] = args
	}
	return out, nil
}

// downgrade turns parse failures of unfiltered statements into warnings when
// the configuration asks for it.
func (s *Statement) downgrade(text string, err error) (Compiled, error) {
	cfg := s.config
	parseFailure := errors.Is(err, expr.ErrParse) || errors.Is(err, params.ErrMalformedPlaceholder)
	if !cfg.ParseErrorsAsWarnings || len(s.filters) > 0 || !parseFailure {
		return Compiled{}, err
	}
	cfg.logger().Warn("statement not parsed, using original text", slog.Any("error", err))

	c := Compiled{SQL: text, Args: s.args, Warnings: []string{err.Error()}}
	if s.mode == ModeMany {
		c.Args = params.None()
		c.Batch = slices.Clone(s.batch)
	}
	return c, nil
}

// store merges filter parameters into the statement's own.
type store struct {
	base    params.Args
	added   map[string]any
	current filter.Kind
}

// Bind implements filter.Binder.
func (st *store) Bind(name string, value any) error {
	_, inBase := st.base.Lookup(name)
	_, inAdded := st.added[name]
	if inBase || inAdded {
		return &ParameterCollisionError{Name: name, Filter: st.current}
	}
	if st.added == nil {
		st.added = make(map[string]any)
	}
	st.added[name] = value
	return nil
}

func (st *store) lookup(name string) (any, bool) {
	if v, ok := st.added[name]; ok {
		return v, true
	}
	return st.base.Lookup(name)
}

func distinct(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0:0]
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
