package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlkit/cli/internal/ui"
	"github.com/satishbabariya/sqlkit/query/dialect"
	"github.com/satishbabariya/sqlkit/query/params"
)

func newDetectCommand(a *app) *cobra.Command {
	var (
		file        string
		dialectName string
		mixed       bool
	)

	cmd := &cobra.Command{
		Use:   "detect [sql]",
		Short: "Detect the placeholder style of a statement",
		Example: `  sqlkit detect "SELECT * FROM users WHERE id = \$1"
  sqlkit detect -f query.sql --dialect mysql`,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := readInput(file, args)
			if err != nil {
				return err
			}
			return runDetect(a, q, dialectName, mixed)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read SQL from a file")
	cmd.Flags().StringVar(&dialectName, "dialect", "", "SQL dialect (default from config)")
	cmd.Flags().BoolVar(&mixed, "allow-mixed", false, "Accept mixed placeholder styles")

	return cmd
}

func scanOptions(a *app, name string, mixed bool) ([]params.Option, error) {
	if name == "" {
		name = a.cfg.Dialect
	}
	d, err := dialect.Parse(name)
	if err != nil {
		return nil, err
	}
	opts := []params.Option{params.WithLexOptions(d.LexOptions())}
	if mixed {
		opts = append(opts, params.WithAllowMixed())
	}
	return opts, nil
}

func runDetect(a *app, q, dialectName string, mixed bool) error {
	opts, err := scanOptions(a, dialectName, mixed)
	if err != nil {
		return err
	}
	style, phs, err := params.Detect(q, opts...)
	if err != nil {
		return err
	}

	if len(phs) == 0 {
		ui.PrintInfo("No placeholders")
		return nil
	}
	ui.PrintInfo("Style: %s (%d placeholders)", style, len(phs))

	rows := make([][]string, len(phs))
	for i, ph := range phs {
		ref := ph.Name
		if ph.Number > 0 {
			ref = strconv.Itoa(ph.Number)
		}
		rows[i] = []string{strconv.Itoa(ph.Ordinal), ph.Text, ph.Style.String(), ref, strconv.Itoa(ph.Start)}
	}
	return ui.PrintTable([]string{"#", "Placeholder", "Style", "Name", "Offset"}, rows)
}
