// Package config loads maestro settings from a config file, .env files and
// the environment.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/maestro/pkg/constants"
	"github.com/agentstation/maestro/pkg/errors"
)

// EnvPrefix prefixes maestro environment variables: MAESTRO_MASTER_PATH.
const EnvPrefix = "MAESTRO"

// Config keys.
const (
	KeyMasterPath      = "master_path"
	KeySourceSheet     = "source_sheet"
	KeyReferenceSheet  = "reference_sheet"
	KeyMasterSheet     = "master_sheet"
	KeyMasterHeaderRow = "master_header_row"
	KeyRulesFile       = "rules_file"
	KeyJournalPath     = "journal_path"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyLogOutput       = "log_output"
)

// Settings are the resolved run settings.
type Settings struct {
	MasterPath      string `mapstructure:"master_path"`
	SourceSheet     string `mapstructure:"source_sheet"`
	ReferenceSheet  string `mapstructure:"reference_sheet"`
	MasterSheet     string `mapstructure:"master_sheet"`
	MasterHeaderRow int    `mapstructure:"master_header_row"`
	// RulesFile overlays the built-in matching rules when set.
	RulesFile string `mapstructure:"rules_file"`
	// JournalPath enables the run journal when set.
	JournalPath string `mapstructure:"journal_path"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogOutput string `mapstructure:"log_output"`

	// ConfigFile is the config file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

type options struct {
	configFile  string
	searchPaths []string
	envDir      string
}

// Option configures Load.
type Option func(*options) error

// WithConfigFile reads exactly this file; a missing file is an error.
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configFile = path
		return nil
	}
}

// WithSearchPaths replaces the directories searched for .maestro.yaml.
func WithSearchPaths(dirs ...string) Option {
	return func(o *options) error {
		o.searchPaths = dirs
		return nil
	}
}

// WithEnvDir sets the directory holding .env files.
func WithEnvDir(dir string) Option {
	return func(o *options) error {
		o.envDir = dir
		return nil
	}
}

// Load resolves settings in order of precedence:
//  1. Environment variables (MAESTRO_*, LOG_*)
//  2. .env.local, then .env
//  3. Config file (.maestro.yaml in $HOME or the working directory)
//  4. Defaults
//
// Command-line flags are applied on top by the caller.
func Load(opts ...Option) (*Settings, error) {
	o := &options{envDir: "."}
	if home, err := os.UserHomeDir(); err == nil {
		o.searchPaths = append(o.searchPaths, home)
	}
	o.searchPaths = append(o.searchPaths, ".")
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	loadEnvFiles(o.envDir)

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, key := range []string{KeyLogLevel, KeyLogFormat, KeyLogOutput} {
		// LOG_* is shared with the logging package
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), strings.ToUpper(key)); err != nil {
			return nil, errors.NewConfigError("env", "failed to bind "+key, err)
		}
	}

	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("file", "failed to read "+o.configFile, err)
		}
	} else {
		for _, dir := range o.searchPaths {
			v.AddConfigPath(dir)
		}
		v.SetConfigType("yaml")
		v.SetConfigName(".maestro")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.NewConfigError("file", "failed to read config", err)
			}
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.NewConfigError("decode", "invalid settings", err)
	}
	s.ConfigFile = v.ConfigFileUsed()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings a run depends on.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.MasterPath) == "" {
		return &errors.ValidationError{Field: KeyMasterPath, Message: "master path is required"}
	}
	if s.MasterHeaderRow < 1 {
		return &errors.ValidationError{Field: KeyMasterHeaderRow, Value: s.MasterHeaderRow, Message: "header row is 1-based"}
	}
	if strings.TrimSpace(s.MasterSheet) == "" {
		return &errors.ValidationError{Field: KeyMasterSheet, Message: "master sheet is required"}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyMasterPath, constants.DefaultMasterPath)
	v.SetDefault(KeySourceSheet, constants.DefaultSourceSheet)
	v.SetDefault(KeyReferenceSheet, constants.DefaultReferenceSheet)
	v.SetDefault(KeyMasterSheet, constants.DefaultMasterSheet)
	v.SetDefault(KeyMasterHeaderRow, constants.DefaultMasterHeaderRow)
	v.SetDefault(KeyRulesFile, "")
	v.SetDefault(KeyJournalPath, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "auto")
	v.SetDefault(KeyLogOutput, "stderr")
}

// loadEnvFiles loads .env.local then .env. Neither overrides a variable that
// is already set, so .env.local wins over .env and the environment wins over
// both.
func loadEnvFiles(dir string) {
	for _, name := range []string{".env.local", ".env"} {
		_ = godotenv.Load(filepath.Join(dir, name))
	}
}
