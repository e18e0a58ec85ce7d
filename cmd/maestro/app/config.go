package app

import (
	"github.com/agentstation/maestro/internal/config"
)

// Config holds the resolved settings plus the global command-line flags.
type Config struct {
	// Settings from the config file, .env files and the environment.
	Settings *config.Settings

	// Global flags
	Verbose    bool
	Quiet      bool
	NoColor    bool
	Format     string
	LogLevel   string
	ConfigFile string

	// Setting overrides
	MasterPath  string
	JournalPath string
	RulesFile   string
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (applied later by UpdateFromFlags)
//  2. Environment variables
//  3. .env files
//  4. Config file (~/.maestro.yaml or ./.maestro.yaml)
//  5. Defaults
func LoadConfig(opts ...config.Option) (*Config, error) {
	settings, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	return &Config{Settings: settings}, nil
}

// UpdateFromFlags updates config values from parsed command flags so that
// flags take precedence over the config file and the environment.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// applyOverrides copies setting flags onto the settings.
func (c *Config) applyOverrides() error {
	if c.MasterPath != "" {
		c.Settings.MasterPath = c.MasterPath
	}
	if c.JournalPath != "" {
		c.Settings.JournalPath = c.JournalPath
	}
	if c.RulesFile != "" {
		c.Settings.RulesFile = c.RulesFile
	}
	return c.Settings.Validate()
}
