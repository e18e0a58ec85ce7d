// Package logging provides structured logging for maestro using zerolog.
// Import runs log to stderr: a console writer when stderr is a terminal,
// JSON lines otherwise, so batch invocations can be collected by a log shipper.
//
// Every stage of an import run logs through the context so that each line
// carries the run identifier and the sheet being processed:
//
//	ctx = logging.WithRun(ctx, run.ID)
//	ctx = logging.WithSource(ctx, "valo.xlsx")
//	ctx = logging.WithSheet(ctx, "Valo")
//	ctx = logging.WithStage(ctx, "map")
//	logging.FromContext(ctx).Info().Int("mapped", 14).Msg("Headers mapped")
//
// Code without a run context uses Default.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Field keys shared by every import run line.
const (
	RunKey    = "run_id"
	SourceKey = "source"
	SheetKey  = "sheet"
	StageKey  = "stage"
)

var defaultLogger zerolog.Logger

func init() {
	defaultLogger = createDefaultLogger()
}

func createDefaultLogger() zerolog.Logger {
	var writer io.Writer = os.Stderr

	if stderrIsTerminal() && os.Getenv("LOG_FORMAT") != "json" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	level := envLevel()
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Str("app", "maestro").
		Logger()

	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}

	return logger
}

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault sets the default global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// New creates a JSON logger writing to w at the global level.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(zerolog.GlobalLevel()).
		With().
		Timestamp().
		Logger()
}

// Warn starts a warning on the default logger.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// envLevel reads MAESTRO_LOG_LEVEL, then LOG_LEVEL. DEBUG=1 selects debug
// when neither is set.
func envLevel() zerolog.Level {
	levelStr := os.Getenv("MAESTRO_LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}
	if levelStr == "" {
		if os.Getenv("DEBUG") != "" {
			return zerolog.DebugLevel
		}
		return zerolog.InfoLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
