package statement

import (
	"log/slog"

	"github.com/satishbabariya/sqlkit/internal/debug"
	"github.com/satishbabariya/sqlkit/query/cache"
	"github.com/satishbabariya/sqlkit/query/dialect"
	"github.com/satishbabariya/sqlkit/query/expr"
	"github.com/satishbabariya/sqlkit/query/params"
)

// Config holds statement configuration. A Config is never modified once a
// statement uses it; With returns an adjusted copy.
type Config struct {
	// Dialect is the SQL dialect statements are written in.
	Dialect dialect.Dialect

	// Expressions parses and renders SQL when filters are applied.
	Expressions expr.Service

	// Cache holds parsed expressions. Nil disables caching.
	Cache cache.Cache

	// EnableValidation parses every statement and reports unbound parameters.
	EnableValidation bool

	// AllowMixedStyles accepts statements that use several placeholder styles.
	AllowMixedStyles bool

	// ParseErrorsAsWarnings returns the original text instead of failing when
	// a statement without filters cannot be parsed.
	ParseErrorsAsWarnings bool

	// TargetStyle is the placeholder style used when Compile gets StyleNone.
	// StyleNone keeps the statement's own style.
	TargetStyle params.Style

	// Logger receives compile diagnostics. Nil uses the process logger.
	Logger *slog.Logger
}

// DefaultConfig returns the default statement configuration: Postgres, the
// default expression service and no cache.
func DefaultConfig() *Config {
	return &Config{
		Dialect:     dialect.Postgres,
		Expressions: expr.Default(),
	}
}

// NewConfig returns DefaultConfig with opts applied.
func NewConfig(opts ...Option) *Config {
	return DefaultConfig().With(opts...)
}

// With returns a copy of c with opts applied.
func (c *Config) With(opts ...Option) *Config {
	cfg := *c
	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return debug.Logger()
}

func (c *Config) service() expr.Service {
	if c.Expressions != nil {
		return c.Expressions
	}
	return expr.Default()
}

func (c *Config) scanOptions() []params.Option {
	opts := []params.Option{params.WithLexOptions(c.Dialect.LexOptions())}
	if c.AllowMixedStyles {
		opts = append(opts, params.WithAllowMixed())
	}
	return opts
}

// Option is a function that configures statements.
type Option func(*Config)

// WithDialect sets the dialect.
func WithDialect(d dialect.Dialect) Option {
	return func(c *Config) {
		c.Dialect = d
	}
}

// WithExpressionService sets the expression service.
func WithExpressionService(svc expr.Service) Option {
	return func(c *Config) {
		c.Expressions = svc
	}
}

// WithCache enables expression caching.
func WithCache(ec cache.Cache) Option {
	return func(c *Config) {
		c.Cache = ec
	}
}

// WithValidation enables parse and parameter validation.
func WithValidation(enable bool) Option {
	return func(c *Config) {
		c.EnableValidation = enable
	}
}

// WithAllowMixedStyles accepts mixed placeholder styles.
func WithAllowMixedStyles(allow bool) Option {
	return func(c *Config) {
		c.AllowMixedStyles = allow
	}
}

// WithParseErrorsAsWarnings downgrades parse errors of unfiltered statements.
func WithParseErrorsAsWarnings(enable bool) Option {
	return func(c *Config) {
		c.ParseErrorsAsWarnings = enable
	}
}

// WithTargetStyle sets the default output placeholder style.
func WithTargetStyle(s params.Style) Option {
	return func(c *Config) {
		c.TargetStyle = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}
