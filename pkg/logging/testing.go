package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// TestLogger captures import run log lines in memory so tests can assert on
// what a run reported and for which sheet.
type TestLogger struct {
	*zerolog.Logger
	Buffer *bytes.Buffer
}

// Entry is one decoded JSON log line.
type Entry map[string]any

// Str returns the string field key, or "" when absent.
func (e Entry) Str(key string) string {
	s, _ := e[key].(string)
	return s
}

// Message returns the line's message.
func (e Entry) Message() string {
	return e.Str(zerolog.MessageFieldName)
}

// NewTestLogger creates a trace-level JSON logger writing into a buffer.
func NewTestLogger(t testing.TB) *TestLogger {
	t.Helper()

	buf := &bytes.Buffer{}
	oldLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	logger := zerolog.New(buf).
		Level(zerolog.TraceLevel).
		With().
		Timestamp().
		Logger()

	t.Cleanup(func() {
		zerolog.SetGlobalLevel(oldLevel)
	})

	return &TestLogger{
		Logger: &logger,
		Buffer: buf,
	}
}

// Output returns the captured log output as a string.
func (tl *TestLogger) Output() string {
	return tl.Buffer.String()
}

// Lines returns the captured log output as individual lines.
func (tl *TestLogger) Lines() []string {
	output := strings.TrimSpace(tl.Output())
	if output == "" {
		return []string{}
	}
	return strings.Split(output, "\n")
}

// Contains reports whether the log output contains substr.
func (tl *TestLogger) Contains(substr string) bool {
	return strings.Contains(tl.Output(), substr)
}

// Entries decodes every captured line. Lines that are not JSON are skipped.
func (tl *TestLogger) Entries() []Entry {
	var entries []Entry
	for _, line := range tl.Lines() {
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// ForRun returns the entries tagged with runID.
func (tl *TestLogger) ForRun(runID string) []Entry {
	return tl.where(RunKey, runID)
}

// ForSheet returns the entries tagged with sheet.
func (tl *TestLogger) ForSheet(sheet string) []Entry {
	return tl.where(SheetKey, sheet)
}

// Messages returns the message of every entry logged during stage.
func (tl *TestLogger) Messages(stage string) []string {
	var out []string
	for _, e := range tl.where(StageKey, stage) {
		out = append(out, e.Message())
	}
	return out
}

func (tl *TestLogger) where(key, value string) []Entry {
	var out []Entry
	for _, e := range tl.Entries() {
		if e.Str(key) == value {
			out = append(out, e)
		}
	}
	return out
}

// AssertCount asserts that the log has the expected number of entries.
func (tl *TestLogger) AssertCount(t testing.TB, expected int) {
	t.Helper()
	if actual := len(tl.Lines()); actual != expected {
		t.Errorf("Expected %d log entries, got %d\nOutput:\n%s", expected, actual, tl.Output())
	}
}

// CaptureLoggingForTest swaps the default logger for a TestLogger until the
// test finishes.
func CaptureLoggingForTest(t testing.TB) *TestLogger {
	t.Helper()

	original := *Default()
	testLogger := NewTestLogger(t)
	SetDefault(*testLogger.Logger)

	t.Cleanup(func() {
		SetDefault(original)
	})

	return testLogger
}
