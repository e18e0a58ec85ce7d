package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/maestro/internal/config"
	"github.com/agentstation/maestro/pkg/report"
)

// Execute runs the maestro CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "maestro",
		Short:   "Spreadsheet reconciliation into a master workbook",
		Version: a.version,
		Long: `Maestro folds heterogeneous spreadsheet extracts into one canonical,
de-duplicated master workbook.

Each source workbook's headers are matched against the canonical fields,
rows are enriched from the reference sheet and only rows whose identifier
and reference date are not yet in the master are appended.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands:",
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.config.ConfigFile, "config", "", "config file (default is $HOME/.maestro.yaml)")
	flags.BoolVarP(&a.config.Verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolVarP(&a.config.Quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.BoolVar(&a.config.NoColor, "no-color", false, "disable colored output")
	flags.StringVarP(&a.config.Format, "format", "o", "", "output format: table, json, yaml")
	flags.StringVar(&a.config.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	flags.StringVarP(&a.config.MasterPath, "master", "m", "", "master workbook (overrides "+config.KeyMasterPath+")")
	flags.StringVar(&a.config.JournalPath, "journal", "", "run journal database (overrides "+config.KeyJournalPath+")")
	flags.StringVar(&a.config.RulesFile, "rules", "", "matching rules file (overrides "+config.KeyRulesFile+")")

	rootCmd.SetVersionTemplate("maestro {{.Version}}\n")

	a.registerCommands(rootCmd)
	return rootCmd
}

// setupCommand is called before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	verbose := mustGetBool(cmd, "verbose")
	quiet := mustGetBool(cmd, "quiet")
	noColor := mustGetBool(cmd, "no-color")
	format := mustGetString(cmd, "format")
	logLevel := mustGetString(cmd, "log-level")

	if _, err := report.ParseFormat(format); err != nil {
		return err
	}

	if a.config.ConfigFile != "" {
		settings, err := config.Load(config.WithConfigFile(a.config.ConfigFile))
		if err != nil {
			return err
		}
		a.config.Settings = settings
	}
	a.config.UpdateFromFlags(verbose, quiet, noColor, format, logLevel)
	if err := a.config.applyOverrides(); err != nil {
		return err
	}

	logger := NewLogger(a.config)
	a.logger = &logger
	a.reset()

	if a.config.Settings.ConfigFile != "" {
		a.logger.Debug().Str("file", a.config.Settings.ConfigFile).Msg("Using config file")
	}
	return nil
}

// ExitOnError prints an error and exits with status 1. It is meant for
// top-level error handling in main.go.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
