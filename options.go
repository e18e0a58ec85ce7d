package maestro

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/maestro/pkg/constants"
	"github.com/agentstation/maestro/pkg/errors"
	"github.com/agentstation/maestro/pkg/schema"
	"github.com/agentstation/maestro/pkg/table"
)

// options holds the client configuration.
type options struct {
	reader table.Reader
	writer table.Writer
	schema *schema.Schema
	// rulesFile is loaded on New when schema is not set.
	rulesFile string

	masterPath      string
	sourceSheet     string
	referenceSheet  string
	masterSheet     string
	sourceHeader    table.HeaderStrategy
	masterHeaderRow int

	journalPath string
	logger      *zerolog.Logger
}

// Option is a function that configures a Client.
type Option func(*options) error

func defaults() *options {
	return &options{
		masterPath:      constants.DefaultMasterPath,
		sourceSheet:     constants.DefaultSourceSheet,
		referenceSheet:  constants.DefaultReferenceSheet,
		masterSheet:     constants.DefaultMasterSheet,
		sourceHeader:    table.HeaderAt(constants.DefaultSourceHeaderRow),
		masterHeaderRow: constants.DefaultMasterHeaderRow,
	}
}

// apply applies the given options.
func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithReader sets the workbook reader.
func WithReader(r table.Reader) Option {
	return func(o *options) error {
		if r == nil {
			return &errors.ValidationError{Field: "reader", Message: "cannot be nil"}
		}
		o.reader = r
		return nil
	}
}

// WithWriter sets the workbook writer.
func WithWriter(w table.Writer) Option {
	return func(o *options) error {
		if w == nil {
			return &errors.ValidationError{Field: "writer", Message: "cannot be nil"}
		}
		o.writer = w
		return nil
	}
}

// WithSchema sets the canonical schema and matching rules.
func WithSchema(s *schema.Schema) Option {
	return func(o *options) error {
		o.schema = s
		return nil
	}
}

// WithRulesFile overlays the built-in matching rules with a YAML file.
func WithRulesFile(path string) Option {
	return func(o *options) error {
		o.rulesFile = path
		return nil
	}
}

// WithMasterPath sets the master workbook used when a request names none.
func WithMasterPath(path string) Option {
	return func(o *options) error {
		if path != "" {
			o.masterPath = path
		}
		return nil
	}
}

// WithSheets sets the source and reference sheet names. Empty names keep
// the defaults.
func WithSheets(source, reference string) Option {
	return func(o *options) error {
		if source != "" {
			o.sourceSheet = source
		}
		if reference != "" {
			o.referenceSheet = reference
		}
		return nil
	}
}

// WithMasterSheet sets the sheet created in a new master workbook.
func WithMasterSheet(name string) Option {
	return func(o *options) error {
		if name != "" {
			o.masterSheet = name
		}
		return nil
	}
}

// WithMasterHeaderRow sets the 1-based header row of the master sheet.
func WithMasterHeaderRow(row int) Option {
	return func(o *options) error {
		if row < 1 {
			return &errors.ValidationError{Field: "master_header_row", Value: row, Message: "header row is 1-based"}
		}
		o.masterHeaderRow = row
		return nil
	}
}

// WithSourceHeader sets how the source header is read, e.g. a header split
// over two rows.
func WithSourceHeader(h table.HeaderStrategy) Option {
	return func(o *options) error {
		if h.Row < 1 {
			return &errors.ValidationError{Field: "source_header", Value: h.Row, Message: "header row is 1-based"}
		}
		o.sourceHeader = h
		return nil
	}
}

// WithJournal records every run in a SQLite journal at path.
func WithJournal(path string) Option {
	return func(o *options) error {
		o.journalPath = path
		return nil
	}
}

// WithLogger sets the logger attached to every run context.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}
