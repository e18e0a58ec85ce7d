package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/maestro/cmd/maestro/cmd/importer"
	"github.com/agentstation/maestro/cmd/maestro/cmd/preview"
	"github.com/agentstation/maestro/cmd/maestro/cmd/runs"
	"github.com/agentstation/maestro/cmd/maestro/cmd/version"
)

// registerCommands wires all subcommands to the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(importer.NewCommand(a))
	rootCmd.AddCommand(preview.NewCommand(a))

	// Management commands
	rootCmd.AddCommand(runs.NewCommand(a))

	rootCmd.AddCommand(version.NewCommand(a))
}
