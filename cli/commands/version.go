package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlkit/cli/internal/ui"
	"github.com/satishbabariya/sqlkit/cli/internal/version"
)

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			rows := info.Rows()
			if a.cfg.RequiredVersion != "" {
				rows = append(rows, []string{"Required", a.cfg.RequiredVersion})
			}
			if a.cfg.File != "" {
				rows = append(rows, []string{"Config", a.cfg.File})
			}
			return ui.PrintTable([]string{"Component", "Value"}, rows)
		},
	}
}
