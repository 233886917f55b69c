package commands

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlkit/cli/internal/config"
	"github.com/satishbabariya/sqlkit/internal/debug"
	"github.com/satishbabariya/sqlkit/query/dialect"
	"github.com/satishbabariya/sqlkit/query/executor"
	"github.com/satishbabariya/sqlkit/query/params"
	"github.com/satishbabariya/sqlkit/query/statement"
)

// stdin is read when neither a file nor inline SQL is given.
var stdin io.Reader = os.Stdin

// readInput returns the SQL to work on: the file if set, else the
// arguments joined, else standard input.
func readInput(file string, args []string) (string, error) {
	switch {
	case file != "":
		data, err := afero.ReadFile(config.AppFs, file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", fmt.Errorf("no SQL given")
		}
		return string(data), nil
	}
}

// statementFlags are the flags shared by commands that build statements.
type statementFlags struct {
	file     string
	dialect  string
	style    string
	filters  []string
	args     []string
	params   []string
	script   bool
	validate bool
	mixed    bool
	warnings bool
}

func (f *statementFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Read SQL from a file")
	cmd.Flags().StringVar(&f.dialect, "dialect", "", "SQL dialect (default from config)")
	cmd.Flags().StringVar(&f.style, "style", "", "Target placeholder style (default: the dialect's)")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, `Filter expression, e.g. "limit 10 offset 20 order by id desc"`)
	cmd.Flags().StringArrayVar(&f.args, "arg", nil, "Positional parameter value")
	cmd.Flags().StringArrayVar(&f.params, "param", nil, "Named parameter as name=value")
	cmd.Flags().BoolVar(&f.script, "script", false, "Treat the input as a multi-statement script")
	cmd.Flags().BoolVar(&f.validate, "validate", false, "Fail on missing parameters")
	cmd.Flags().BoolVar(&f.mixed, "allow-mixed", false, "Accept mixed placeholder styles")
	cmd.Flags().BoolVar(&f.warnings, "parse-warnings", false, "Downgrade parse errors to warnings")
}

// statementConfig builds the statement configuration from the flags and cfg.
func (f *statementFlags) statementConfig(cfg *config.Config) (*statement.Config, error) {
	name := f.dialect
	if name == "" {
		name = cfg.Dialect
	}
	d, err := dialect.Parse(name)
	if err != nil {
		return nil, err
	}

	styleName := f.style
	if styleName == "" {
		styleName = cfg.Style
	}
	style, err := params.ParseStyle(styleName)
	if err != nil {
		return nil, err
	}

	return statement.NewConfig(
		statement.WithDialect(d),
		statement.WithTargetStyle(style),
		statement.WithValidation(f.validate),
		statement.WithAllowMixedStyles(f.mixed),
		statement.WithParseErrorsAsWarnings(f.warnings),
		statement.WithLogger(debug.Logger()),
	), nil
}

// values returns the parameters given with --arg or --param. Mixing both
// is an error.
func (f *statementFlags) values() ([]any, error) {
	if len(f.args) > 0 && len(f.params) > 0 {
		return nil, fmt.Errorf("--arg and --param cannot be combined")
	}
	if len(f.params) > 0 {
		named := make(map[string]any, len(f.params))
		for _, p := range f.params {
			name, value, ok := strings.Cut(p, "=")
			if !ok || name == "" {
				return nil, fmt.Errorf("invalid --param %q, expected name=value", p)
			}
			named[name] = parseValue(value)
		}
		return []any{params.Named(named)}, nil
	}
	values := make([]any, len(f.args))
	for i, a := range f.args {
		values[i] = parseValue(a)
	}
	return values, nil
}

// parseValue reads integers, floats, booleans and null; everything else
// stays a string. Quote a value to keep it a string.
func parseValue(s string) any {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	if strings.EqualFold(s, "null") {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

// driverFor maps a database URL to a database/sql driver name and DSN.
func driverFor(databaseURL string) (string, string, error) {
	scheme, rest, ok := strings.Cut(databaseURL, "://")
	if !ok {
		if strings.HasPrefix(databaseURL, "file:") {
			return "sqlite3", databaseURL, nil
		}
		return "", "", fmt.Errorf("invalid database url %q", redact(databaseURL))
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return "postgres", databaseURL, nil
	case "mysql", "mariadb":
		return "mysql", rest, nil
	case "sqlite", "sqlite3":
		return "sqlite3", rest, nil
	default:
		return "", "", fmt.Errorf("unsupported database url scheme %q", scheme)
	}
}

// openDriver connects to databaseURL. Postgres uses the pgx pool when
// native batching is on.
func openDriver(ctx context.Context, databaseURL string, native bool) (executor.Driver, func(), error) {
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("no database url: set database_url in .sqlkit.yaml, SQLKIT_DATABASE_URL or DATABASE_URL")
	}
	name, dsn, err := driverFor(databaseURL)
	if err != nil {
		return nil, nil, err
	}
	if name == "postgres" && native {
		d, err := executor.OpenPgx(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	}
	d, err := executor.Open(ctx, name, dsn)
	if err != nil {
		return nil, nil, err
	}
	return d, func() { d.Close() }, nil
}

// redact hides the password of a database URL.
func redact(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || u.User == nil {
		return databaseURL
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// formatValue renders a parameter value for tables.
func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return strconv.Quote(v)
	case []byte:
		return fmt.Sprintf("%x", v)
	default:
		return fmt.Sprint(v)
	}
}

func errFileRequired(flag string) error {
	return fmt.Errorf("%s needs --file", flag)
}
