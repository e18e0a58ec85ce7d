package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/maestro/pkg/constants"
	"github.com/agentstation/maestro/pkg/errors"
)

// isolated loads settings without touching $HOME or the working directory.
func isolated(t *testing.T, opts ...Option) (*Settings, error) {
	t.Helper()
	dir := t.TempDir()
	return Load(append([]Option{WithSearchPaths(dir), WithEnvDir(dir)}, opts...)...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	s, err := isolated(t)
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultMasterPath, s.MasterPath)
	assert.Equal(t, constants.DefaultSourceSheet, s.SourceSheet)
	assert.Equal(t, constants.DefaultReferenceSheet, s.ReferenceSheet)
	assert.Equal(t, constants.DefaultMasterSheet, s.MasterSheet)
	assert.Equal(t, constants.DefaultMasterHeaderRow, s.MasterHeaderRow)
	assert.Empty(t, s.RulesFile)
	assert.Empty(t, s.JournalPath)
	assert.Empty(t, s.ConfigFile)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".maestro.yaml"), `
master_path: /data/master.xlsx
source_sheet: Hoja1
master_header_row: 1
journal_path: /data/journal.db
`)

	s, err := Load(WithSearchPaths(dir), WithEnvDir(dir))
	require.NoError(t, err)
	assert.Equal(t, "/data/master.xlsx", s.MasterPath)
	assert.Equal(t, "Hoja1", s.SourceSheet)
	assert.Equal(t, 1, s.MasterHeaderRow)
	assert.Equal(t, "/data/journal.db", s.JournalPath)
	assert.Equal(t, constants.DefaultReferenceSheet, s.ReferenceSheet)
	assert.Equal(t, filepath.Join(dir, ".maestro.yaml"), s.ConfigFile)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, "master_path: from-file.xlsx\nlog_level: warn\n")
	t.Setenv("MAESTRO_MASTER_PATH", "from-env.xlsx")
	t.Setenv("LOG_LEVEL", "debug")

	s, err := isolated(t, WithConfigFile(path))
	require.NoError(t, err)
	assert.Equal(t, "from-env.xlsx", s.MasterPath)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestEnvFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "MAESTRO_SOURCE_SHEET=FromDotEnv\nMAESTRO_REFERENCE_SHEET=RefDotEnv\n")
	writeFile(t, filepath.Join(dir, ".env.local"), "MAESTRO_SOURCE_SHEET=FromLocal\n")
	t.Cleanup(func() {
		_ = os.Unsetenv("MAESTRO_SOURCE_SHEET")
		_ = os.Unsetenv("MAESTRO_REFERENCE_SHEET")
	})

	s, err := Load(WithSearchPaths(dir), WithEnvDir(dir))
	require.NoError(t, err)
	assert.Equal(t, "FromLocal", s.SourceSheet, ".env.local wins over .env")
	assert.Equal(t, "RefDotEnv", s.ReferenceSheet)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := isolated(t, WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")))
		var cfgErr *errors.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("invalid header row", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		writeFile(t, path, "master_header_row: 0\n")
		_, err := isolated(t, WithConfigFile(path))
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, ".maestro.yaml"), "master_path: [unclosed\n")
		_, err := Load(WithSearchPaths(dir), WithEnvDir(dir))
		var cfgErr *errors.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})
}

func TestValidate(t *testing.T) {
	s := &Settings{MasterPath: "m.xlsx", MasterSheet: "Sheet1", MasterHeaderRow: 2}
	assert.NoError(t, s.Validate())

	s.MasterPath = " "
	assert.True(t, errors.IsValidationError(s.Validate()))
}
