package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlkit/cli/internal/ui"
	"github.com/satishbabariya/sqlkit/query/params"
	"github.com/satishbabariya/sqlkit/query/statement"
)

func newExplainCommand(a *app) *cobra.Command {
	var (
		flags statementFlags
		raw   bool
	)

	cmd := &cobra.Command{
		Use:   "explain [sql]",
		Short: "Describe how a statement is compiled",
		Long: `Explain prints a report of a statement: its detected placeholder style,
the filters applied to it and the final SQL and parameters.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stmt, err := buildStatement(a, &flags, args)
			if err != nil {
				return err
			}
			report, err := explain(stmt)
			if err != nil {
				return err
			}
			if raw {
				_, err = fmt.Fprint(ui.Out, report)
				return err
			}
			return ui.PrintMarkdown(report)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the markdown source")

	return cmd
}

// explain renders a markdown report of stmt.
func explain(stmt *statement.Statement) (string, error) {
	cfg := stmt.Config()
	source, _, err := params.Detect(stmt.SQL(), params.WithLexOptions(cfg.Dialect.LexOptions()), params.WithAllowMixed())
	if err != nil {
		return "", err
	}
	compiled, err := stmt.Compile(params.StyleNone)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# Statement\n\n")
	fmt.Fprintf(&b, "- **Dialect:** %s\n", cfg.Dialect)
	fmt.Fprintf(&b, "- **Mode:** %s\n", stmt.Mode())
	fmt.Fprintf(&b, "- **Source style:** %s\n", source)
	fmt.Fprintf(&b, "- **Target style:** %s\n", compiled.Style)
	if e := stmt.Expression(); e != nil {
		fmt.Fprintf(&b, "- **Kind:** %s\n", e.Kind())
	}

	b.WriteString("\n## Input\n\n```sql\n")
	b.WriteString(strings.TrimSpace(stmt.SQL()))
	b.WriteString("\n```\n")

	if filters := stmt.Filters(); len(filters) > 0 {
		b.WriteString("\n## Filters\n\n")
		for i, f := range filters {
			fmt.Fprintf(&b, "%d. `%s` %s\n", i+1, f.Kind(), f.CacheKey())
		}
	}

	b.WriteString("\n## Compiled\n\n```sql\n")
	b.WriteString(strings.TrimSpace(compiled.SQL))
	b.WriteString("\n```\n")

	if rows := parameterRows(compiled); len(rows) > 0 {
		b.WriteString("\n## Parameters\n\n| # | Name | Value |\n|---|---|---|\n")
		for _, row := range rows {
			fmt.Fprintf(&b, "| %s | `%s` | %s |\n", row[0], row[1], strings.ReplaceAll(row[2], "|", `\|`))
		}
	}

	if len(compiled.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range compiled.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String(), nil
}
