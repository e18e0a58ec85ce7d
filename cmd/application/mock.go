package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/maestro"
	"github.com/agentstation/maestro/internal/config"
	"github.com/agentstation/maestro/pkg/constants"
	"github.com/agentstation/maestro/pkg/errors"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
//
// Example Usage:
//
//	wb := tabletest.New()
//	mock := &application.Mock{
//	    MaestroFunc: func(opts ...maestro.Option) (maestro.Client, error) {
//	        return maestro.New(append([]maestro.Option{maestro.WithReader(wb), maestro.WithWriter(wb)}, opts...)...)
//	    },
//	}
//	cmd := importer.NewCommand(mock)
type Mock struct {
	MaestroFunc      func(opts ...maestro.Option) (maestro.Client, error)
	RunsFunc         func() (RunLog, error)
	SettingsFunc     func() *config.Settings
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionFunc      func() string
	CommitFunc       func() string
	DateFunc         func() string
	BuiltByFunc      func() string
}

var _ Application = (*Mock)(nil)

// Maestro returns a client using the mock function or a default client.
func (m *Mock) Maestro(opts ...maestro.Option) (maestro.Client, error) {
	if m.MaestroFunc != nil {
		return m.MaestroFunc(opts...)
	}
	return maestro.New(opts...)
}

// Runs returns the journal using the mock function or a NotFoundError.
func (m *Mock) Runs() (RunLog, error) {
	if m.RunsFunc != nil {
		return m.RunsFunc()
	}
	return nil, &errors.NotFoundError{Resource: "journal", ID: "journal_path"}
}

// Settings returns settings using the mock function or the defaults.
func (m *Mock) Settings() *config.Settings {
	if m.SettingsFunc != nil {
		return m.SettingsFunc()
	}
	return &config.Settings{
		MasterPath:      constants.DefaultMasterPath,
		SourceSheet:     constants.DefaultSourceSheet,
		ReferenceSheet:  constants.DefaultReferenceSheet,
		MasterSheet:     constants.DefaultMasterSheet,
		MasterHeaderRow: constants.DefaultMasterHeaderRow,
	}
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns output format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns commit using the mock function or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns builtBy using the mock function or "unknown".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "unknown"
}
