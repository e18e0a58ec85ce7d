package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/agentstation/maestro"
	"github.com/agentstation/maestro/internal/config"
	"github.com/agentstation/maestro/pkg/errors"
)

// isolate keeps config files and .env files on the host out of the test.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func newApp(t *testing.T) *App {
	t.Helper()
	isolate(t)
	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	return app
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app := newApp(t)

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2024-01-01" {
		t.Errorf("Date() = %s, want 2024-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Settings() == nil || app.Settings().MasterPath == "" {
		t.Error("Settings() missing default master path")
	}
}

// TestApp_Maestro_Singleton verifies that Maestro() returns the same instance.
func TestApp_Maestro_Singleton(t *testing.T) {
	app := newApp(t)

	c1, err := app.Maestro()
	if err != nil {
		t.Fatalf("Maestro() failed: %v", err)
	}
	c2, err := app.Maestro()
	if err != nil {
		t.Fatalf("Maestro() failed on second call: %v", err)
	}
	if c1 != c2 {
		t.Error("Maestro() returned different instances, expected singleton")
	}

	c3, err := app.Maestro(maestro.WithMasterSheet("Cartera"))
	if err != nil {
		t.Fatalf("Maestro(opts) failed: %v", err)
	}
	defer c3.Close()
	if c3 == c1 {
		t.Error("Maestro(opts) returned the default instance")
	}
}

// TestApp_Maestro_ThreadSafe verifies concurrent Maestro() calls are safe.
func TestApp_Maestro_ThreadSafe(t *testing.T) {
	app := newApp(t)

	const goroutines = 50
	var wg sync.WaitGroup
	results := make([]maestro.Client, goroutines)
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = app.Maestro()
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Goroutine %d: Maestro() failed: %v", i, err)
		}
	}
	for i, c := range results[1:] {
		if c != results[0] {
			t.Errorf("Goroutine %d got different client instance", i+1)
		}
	}
}

// TestApp_Runs verifies the journal is only available when configured.
func TestApp_Runs(t *testing.T) {
	app := newApp(t)

	if _, err := app.Runs(); !errors.IsNotFound(err) {
		t.Fatalf("Runs() without journal = %v, want not found", err)
	}

	app.Settings().JournalPath = filepath.Join(t.TempDir(), "journal.db")
	log, err := app.Runs()
	if err != nil {
		t.Fatalf("Runs() failed: %v", err)
	}
	entries, err := log.Recent(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Recent() = %d entries, want 0", len(entries))
	}
}

// TestApp_WithConfig verifies options are validated.
func TestApp_WithConfig(t *testing.T) {
	isolate(t)
	if _, err := New("1.0.0", "", "", "", WithConfig(&Config{})); err == nil {
		t.Error("New() accepted a config without settings")
	}

	settings := &config.Settings{MasterPath: "custom.xlsx", MasterSheet: "Sheet1", MasterHeaderRow: 2}
	app, err := New("1.0.0", "", "", "", WithConfig(&Config{Settings: settings}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if app.Settings().MasterPath != "custom.xlsx" {
		t.Errorf("Settings().MasterPath = %s, want custom.xlsx", app.Settings().MasterPath)
	}
}

// TestExecute_FlagOverrides verifies global flags reach the settings.
func TestExecute_FlagOverrides(t *testing.T) {
	app := newApp(t)
	journalPath := filepath.Join(t.TempDir(), "journal.db")

	root := app.createRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--master", "data/master.xlsx", "--journal", journalPath, "-o", "yaml", "version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if got := app.Settings().MasterPath; got != "data/master.xlsx" {
		t.Errorf("MasterPath = %s, want data/master.xlsx", got)
	}
	if got := app.Settings().JournalPath; got != journalPath {
		t.Errorf("JournalPath = %s, want %s", got, journalPath)
	}
	if got := app.OutputFormat(); got != "yaml" {
		t.Errorf("OutputFormat() = %s, want yaml", got)
	}
	if out.String() != "maestro 1.0.0\n" {
		t.Errorf("version output = %q", out.String())
	}
}

// TestExecute_InvalidFormat verifies unknown output formats are rejected.
func TestExecute_InvalidFormat(t *testing.T) {
	app := newApp(t)
	root := app.createRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"-o", "xml", "version"})
	if err := root.Execute(); err == nil {
		t.Error("Execute() accepted format xml")
	}
}

// TestExecute_ConfigFlag verifies --config reloads settings from the file.
func TestExecute_ConfigFlag(t *testing.T) {
	app := newApp(t)
	path := filepath.Join(t.TempDir(), "maestro.yaml")
	writeFile(t, path, "master_path: from-file.xlsx\nmaster_header_row: 3\n")

	root := app.createRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if got := app.Settings().MasterPath; got != "from-file.xlsx" {
		t.Errorf("MasterPath = %s, want from-file.xlsx", got)
	}
	if got := app.Settings().MasterHeaderRow; got != 3 {
		t.Errorf("MasterHeaderRow = %d, want 3", got)
	}
}
