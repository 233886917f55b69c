package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlkit/cli/internal/ui"
	"github.com/satishbabariya/sqlkit/query/params"
)

func newConvertCommand(a *app) *cobra.Command {
	var (
		file    string
		dialect string
		to      string
		mixed   bool
		diff    bool
		revert  bool
	)

	cmd := &cobra.Command{
		Use:   "convert [sql]",
		Short: "Rewrite the placeholders of a statement into another style",
		Example: `  sqlkit convert --to numeric "SELECT * FROM users WHERE id = :id"
  sqlkit convert --to qmark --diff -f query.sql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := readInput(file, args)
			if err != nil {
				return err
			}
			target, err := params.ParseStyle(to)
			if err != nil {
				return err
			}

			opts, err := scanOptions(a, dialect, mixed)
			if err != nil {
				return err
			}
			t, err := params.Convert(q, target, opts...)
			if err != nil {
				return err
			}

			switch {
			case revert:
				back := t.Revert()
				if back != q {
					return fmt.Errorf("round trip changed the statement:\n%s", back)
				}
				ui.PrintSuccess("%s -> %s -> %s round trip is exact", t.Source, t.Target, t.Source)
			case diff:
				ui.PrintDiff(q, t.SQL)
			default:
				ui.PrintSQL(t.SQL)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read SQL from a file")
	cmd.Flags().StringVar(&dialect, "dialect", "", "SQL dialect (default from config)")
	cmd.Flags().StringVar(&to, "to", "", "Target placeholder style (qmark, numeric, named_colon, ...)")
	cmd.Flags().BoolVar(&mixed, "allow-mixed", false, "Accept mixed placeholder styles")
	cmd.Flags().BoolVar(&diff, "diff", false, "Show the changed lines")
	cmd.Flags().BoolVar(&revert, "revert", false, "Check that converting back restores the input")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
