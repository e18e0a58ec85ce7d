// Package app provides the application context and dependency management
// for the maestro CLI. It centralizes configuration, logging and the lifecycle
// of the maestro client and run journal.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/maestro"
	"github.com/agentstation/maestro/cmd/application"
	"github.com/agentstation/maestro/internal/config"
	"github.com/agentstation/maestro/internal/journal"
	"github.com/agentstation/maestro/pkg/errors"
)

// Compile-time interface check to ensure proper implementation.
var _ application.Application = (*App)(nil)

// App represents the maestro application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// lazily created, shared by commands
	mu      sync.RWMutex
	client  maestro.Client
	journal *journal.Journal
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	app.config = cfg

	logger := NewLogger(cfg)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Settings returns the resolved run settings.
func (a *App) Settings() *config.Settings {
	return a.config.Settings
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the requested output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Maestro returns the default client, creating it lazily. With options it
// returns a new client built from the settings plus opts; the caller closes it.
func (a *App) Maestro(opts ...maestro.Option) (maestro.Client, error) {
	if len(opts) > 0 {
		return maestro.New(append(a.clientOptions(), opts...)...)
	}

	a.mu.RLock()
	if a.client != nil {
		c := a.client
		a.mu.RUnlock()
		return c, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}
	c, err := maestro.New(a.clientOptions()...)
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

// Runs opens the run journal named by the settings.
func (a *App) Runs() (application.RunLog, error) {
	path := a.config.Settings.JournalPath
	if path == "" {
		return nil, &errors.NotFoundError{Resource: "journal", ID: config.KeyJournalPath}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.journal != nil {
		return a.journal, nil
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, errors.NewConfigError("journal", "failed to open "+path, err)
	}
	a.journal = j
	return j, nil
}

// Shutdown releases the client and the journal.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
		a.client = nil
	}
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
		a.journal = nil
	}
	return errors.Join(errs...)
}

// reset drops the cached client so the next call picks up new settings.
func (a *App) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close client")
		}
		a.client = nil
	}
}

// clientOptions constructs maestro options from the settings.
func (a *App) clientOptions() []maestro.Option {
	s := a.config.Settings
	opts := []maestro.Option{
		maestro.WithMasterPath(s.MasterPath),
		maestro.WithSheets(s.SourceSheet, s.ReferenceSheet),
		maestro.WithMasterSheet(s.MasterSheet),
		maestro.WithMasterHeaderRow(s.MasterHeaderRow),
		maestro.WithLogger(a.logger),
	}
	if s.RulesFile != "" {
		opts = append(opts, maestro.WithRulesFile(s.RulesFile))
	}
	if s.JournalPath != "" {
		opts = append(opts, maestro.WithJournal(s.JournalPath))
	}
	return opts
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(cfg *Config) Option {
	return func(a *App) error {
		if cfg == nil || cfg.Settings == nil {
			return &errors.ValidationError{Field: "config", Message: "settings are required"}
		}
		a.config = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets a custom client instance (useful for testing).
func WithClient(c maestro.Client) Option {
	return func(a *App) error {
		a.client = c
		return nil
	}
}
