package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlkit/cli/internal/ui"
	"github.com/satishbabariya/sqlkit/internal/debug"
	"github.com/satishbabariya/sqlkit/query/executor"
	"github.com/satishbabariya/sqlkit/query/expr"
	"github.com/satishbabariya/sqlkit/query/filter/dsl"
	"github.com/satishbabariya/sqlkit/query/statement"
)

// confirm asks before statements are sent to the database.
var confirm = func(message string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok)
	return ok, err
}

type runOptions struct {
	file            string
	databaseURL     string
	continueOnError bool
	maxOperations   int
	native          bool
	filters         []string
	showRows        bool
	yes             bool
}

func newRunCommand(a *app) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the statements of a file as one pipeline",
		Long: `Run splits a SQL file into statements and executes them in order inside
one transaction. By default the first failure rolls everything back; with
--continue-on-error each statement runs in its own savepoint and failures
are reported per statement.`,
		Example: `  sqlkit run -f seed.sql
  sqlkit run -f batch.sql --continue-on-error --yes
  sqlkit run -f report.sql --filter "limit 20" --rows`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.file == "" {
				return errFileRequired("run")
			}
			if !cmd.Flags().Changed("continue-on-error") {
				opts.continueOnError = a.cfg.ContinueOnError
			}
			if !cmd.Flags().Changed("max-operations") {
				opts.maxOperations = a.cfg.MaxOperations
			}
			if !cmd.Flags().Changed("native") {
				opts.native = a.cfg.NativeBatching
			}
			if opts.databaseURL == "" {
				opts.databaseURL = a.cfg.DatabaseURL
			}
			return runPipeline(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "SQL file to run")
	cmd.Flags().StringVar(&opts.databaseURL, "database-url", "", "Database URL (default from config)")
	cmd.Flags().BoolVar(&opts.continueOnError, "continue-on-error", false, "Keep going after a failed statement")
	cmd.Flags().IntVar(&opts.maxOperations, "max-operations", 0, "Flush the pipeline every n statements (0 = once at the end)")
	cmd.Flags().BoolVar(&opts.native, "native", true, "Use the driver's native batching when available")
	cmd.Flags().StringArrayVar(&opts.filters, "filter", nil, "Filter applied to every select")
	cmd.Flags().BoolVar(&opts.showRows, "rows", false, "Print the rows of selects")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func runPipeline(ctx context.Context, opts *runOptions) error {
	script, err := readInput(opts.file, nil)
	if err != nil {
		return err
	}
	global, err := dsl.ParseAll(opts.filters)
	if err != nil {
		return err
	}

	driver, closeDriver, err := openDriver(ctx, opts.databaseURL, opts.native)
	if err != nil {
		return err
	}
	defer closeDriver()

	stmts, err := expr.SplitScript(script, driver.Dialect())
	if err != nil {
		return err
	}
	if len(stmts) == 0 {
		ui.PrintWarning("%s has no statements", opts.file)
		return nil
	}

	if !opts.yes {
		ok, err := confirm(fmt.Sprintf("Run %d statements against %s?", len(stmts), redact(opts.databaseURL)))
		if err != nil {
			return err
		}
		if !ok {
			ui.PrintWarning("Aborted")
			return nil
		}
	}

	cfg := statement.NewConfig(
		statement.WithDialect(driver.Dialect()),
		statement.WithLogger(debug.Logger()),
	)
	pipeline := executor.NewPipeline(driver,
		executor.WithContinueOnError(opts.continueOnError),
		executor.WithMaxOperations(opts.maxOperations),
		executor.WithNativeBatching(opts.native),
		executor.WithStatementConfig(cfg),
		executor.WithFlushContext(ctx),
	)
	svc := expr.Default()
	for _, s := range stmts {
		pipeline.AddStatement(operationKind(svc, s, cfg), statement.NewWithConfig(cfg, s))
	}

	spinner, _ := ui.PrintSpinner(fmt.Sprintf("Running %d statements...", len(stmts)))
	results, err := pipeline.Process(ctx, global...)
	if spinner != nil {
		_ = spinner.Stop()
	}

	var batchErr *executor.BatchError
	if errors.As(err, &batchErr) {
		if perr := printResults(batchErr.Partial, opts.showRows); perr != nil {
			return perr
		}
		return batchFailure(batchErr)
	}
	if err != nil {
		return err
	}

	if err := printResults(results, opts.showRows); err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	if failed > 0 {
		ui.PrintWarning("%d of %d statements failed", failed, len(results))
		return nil
	}
	ui.PrintSuccess("%d statements succeeded", len(results))
	return nil
}

// batchFailure describes what a stop-on-error failure left behind. Statements
// of earlier auto-flushes stay committed.
func batchFailure(be *executor.BatchError) error {
	if be.Flushed == 0 {
		return fmt.Errorf("statement %d failed, all changes rolled back: %w", be.Index+1, be.Err)
	}
	return fmt.Errorf("statement %d failed, statements %d-%d rolled back, statements 1-%d were already committed: %w",
		be.Index+1, be.Flushed+1, be.Index+1, be.Flushed, be.Err)
}

// operationKind runs statements that parse as queries as selects.
func operationKind(svc expr.Service, sql string, cfg *statement.Config) executor.Kind {
	e, err := svc.Parse(sql, cfg.Dialect)
	if err != nil {
		return executor.KindExecute
	}
	switch e.Kind() {
	case expr.KindSelect, expr.KindCompound:
		return executor.KindSelect
	default:
		return executor.KindExecute
	}
}

func printResults(results []*executor.Result, showRows bool) error {
	rows := make([][]string, len(results))
	for i, r := range results {
		status := "ok"
		if r.Failed() {
			status = "error: " + r.Err.Error()
		}
		count := strconv.FormatInt(r.RowsAffected, 10)
		if r.Kind == executor.KindSelect {
			count = strconv.Itoa(r.Len()) + " rows"
		}
		rows[i] = []string{strconv.Itoa(i + 1), r.Kind.String(), firstLine(r.SQL), count, status}
	}
	if err := ui.PrintTable([]string{"#", "Kind", "SQL", "Rows", "Status"}, rows); err != nil {
		return err
	}

	if !showRows {
		return nil
	}
	for i, r := range results {
		if r.Kind != executor.KindSelect || r.Failed() {
			continue
		}
		ui.PrintSection(fmt.Sprintf("Statement %d", i+1))
		data := make([][]string, len(r.Rows))
		for j, row := range r.Rows {
			data[j] = make([]string, len(r.Columns))
			for k, col := range r.Columns {
				data[j][k] = formatValue(row[col])
			}
		}
		if err := ui.PrintTable(r.Columns, data); err != nil {
			return err
		}
	}
	return nil
}

func firstLine(s string) string {
	line, _, cut := strings.Cut(strings.TrimSpace(s), "\n")
	if cut || len(line) > 60 {
		if len(line) > 60 {
			line = line[:57]
		}
		return line + "..."
	}
	return line
}
