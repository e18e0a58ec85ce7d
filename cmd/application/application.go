// Package application provides the application interface for maestro commands.
//
// Commands accept this interface rather than the concrete App type, so they
// can be tested against a Mock wired to in-memory workbooks.
//
// Usage in Commands:
//
//	func NewCommand(app application.Application) *cobra.Command {
//	    return &cobra.Command{
//	        RunE: func(cmd *cobra.Command, args []string) error {
//	            client, err := app.Maestro()
//	            if err != nil {
//	                return err
//	            }
//	            res, err := client.Import(cmd.Context(), maestro.Request{Source: args[0]})
//	            // ... render res.Report
//	        },
//	    }
//	}
package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/maestro"
	"github.com/agentstation/maestro/internal/config"
	"github.com/agentstation/maestro/internal/journal"
)

// RunLog lists recorded runs.
type RunLog interface {
	Recent(ctx context.Context, master string, limit int) ([]journal.Entry, error)
}

// Application provides what commands need from the running app.
type Application interface {
	// Maestro returns the client. Without options it returns the default
	// cached instance; with options it creates a new one.
	Maestro(opts ...maestro.Option) (maestro.Client, error)

	// Runs returns the run journal. It fails with a NotFoundError when no
	// journal is configured.
	Runs() (RunLog, error)

	// Settings returns the resolved configuration.
	Settings() *config.Settings

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the requested output format (table, json, yaml)
	// or "" to detect it from the terminal.
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}
