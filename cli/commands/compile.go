package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlkit/cli/internal/ui"
	"github.com/satishbabariya/sqlkit/cli/internal/watch"
	"github.com/satishbabariya/sqlkit/query/filter/dsl"
	"github.com/satishbabariya/sqlkit/query/params"
	"github.com/satishbabariya/sqlkit/query/statement"
)

func newCompileCommand(a *app) *cobra.Command {
	var (
		flags   statementFlags
		watchIt bool
	)

	cmd := &cobra.Command{
		Use:   "compile [sql]",
		Short: "Apply filters to a statement and print the final SQL and parameters",
		Example: `  sqlkit compile "SELECT * FROM users" --filter "limit 10 offset 5"
  sqlkit compile -f users.sql --dialect mysql --filter "order by id desc; limit 20"
  sqlkit compile -f users.sql --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !watchIt {
				return compileAndPrint(a, &flags, args)
			}
			if flags.file == "" {
				return errFileRequired("--watch")
			}

			w, err := watch.New(flags.file, watch.DefaultDebounce)
			if err != nil {
				return err
			}
			ui.PrintInfo("Watching %s, press Ctrl+C to stop", flags.file)
			return w.Run(cmd.Context(),
				func() error { return compileAndPrint(a, &flags, args) },
				func(err error) { ui.PrintError("%v", err) })
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&watchIt, "watch", "w", false, "Recompile when the file changes")

	return cmd
}

// buildStatement reads the input and applies the flags to it.
func buildStatement(a *app, f *statementFlags, args []string) (*statement.Statement, error) {
	q, err := readInput(f.file, args)
	if err != nil {
		return nil, err
	}
	cfg, err := f.statementConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	values, err := f.values()
	if err != nil {
		return nil, err
	}
	filters, err := dsl.ParseAll(f.filters)
	if err != nil {
		return nil, err
	}

	stmt := statement.NewWithConfig(cfg, q, values...)
	if f.script {
		stmt = stmt.AsScript()
	}
	return stmt.Filter(filters...), nil
}

func compileAndPrint(a *app, f *statementFlags, args []string) error {
	stmt, err := buildStatement(a, f, args)
	if err != nil {
		return err
	}
	compiled, err := stmt.Compile(params.StyleNone)
	if err != nil {
		return err
	}

	for _, w := range compiled.Warnings {
		ui.PrintWarning("%s", w)
	}
	ui.PrintSQL(compiled.SQL)

	rows := parameterRows(compiled)
	if len(rows) == 0 {
		return nil
	}
	return ui.PrintTable([]string{"#", "Name", "Value"}, rows)
}

// parameterRows lists the bound parameters in binding order.
func parameterRows(c statement.Compiled) [][]string {
	if c.Args.Shape() == params.ShapePositional {
		values := c.Args.Values()
		rows := make([][]string, len(values))
		for i, v := range values {
			name := ""
			if i < len(c.Names) {
				name = c.Names[i]
			}
			rows[i] = []string{strconv.Itoa(i + 1), name, formatValue(v)}
		}
		return rows
	}

	rows := make([][]string, 0, len(c.Names))
	for i, name := range c.Names {
		v, _ := c.Args.Lookup(name)
		rows = append(rows, []string{strconv.Itoa(i + 1), name, formatValue(v)})
	}
	return rows
}
