// Package commands implements the sqlkit CLI commands.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlkit/cli/internal/config"
	"github.com/satishbabariya/sqlkit/cli/internal/ui"
	"github.com/satishbabariya/sqlkit/cli/internal/version"
	"github.com/satishbabariya/sqlkit/internal/debug"
)

// app is the state shared by all commands.
type app struct {
	configPath string
	debug      bool
	noColor    bool

	cfg *config.Config
}

// NewRootCommand creates the sqlkit command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "sqlkit",
		Short: "Cross-database SQL toolkit",
		Long: `sqlkit translates placeholder styles, composes filters onto SQL
statements and runs batches of statements against a database.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default .sqlkit.yaml)")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Write debug logs to stderr")
	cmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newDetectCommand(a))
	cmd.AddCommand(newConvertCommand(a))
	cmd.AddCommand(newCompileCommand(a))
	cmd.AddCommand(newExplainCommand(a))
	cmd.AddCommand(newRunCommand(a))
	cmd.AddCommand(newVersionCommand(a))

	return cmd
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	debug.Init(a.debug || cfg.Debug)
	ui.SetNoColor(a.noColor)

	if cfg.File != "" {
		debug.Debug("loaded config", "file", cfg.File)
	}
	return cfg.CheckVersion(version.Version)
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		ui.PrintError("%v", err)
		return fmt.Errorf("sqlkit: %w", err)
	}
	return nil
}
