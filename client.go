// Package maestro reconciles heterogeneous spreadsheet extracts into one
// canonical, de-duplicated master workbook.
//
// A run reads the primary sheet of a source workbook, maps its headers onto
// the canonical fields, assembles canonical rows (date columns, reference
// enrichment, computed fields, defaults) and folds them into the master
// table. Existing master rows are never modified; rows whose identifier and
// reference date are already present are skipped.
//
// Example usage:
//
//	client, err := maestro.New(
//	    maestro.WithMasterPath("data/master.xlsx"),
//	    maestro.WithJournal("data/journal.db"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	res, err := client.Import(ctx, maestro.Request{
//	    Source:    "extracts/2024-03.xlsx",
//	    BatchDate: "01/03/2024",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d admitted, %d duplicates\n", res.Stats.Admitted, res.Stats.Duplicates)
package maestro

import (
	"context"

	"github.com/agentstation/maestro/internal/journal"
	"github.com/agentstation/maestro/internal/xlsx"
	"github.com/agentstation/maestro/pkg/assemble"
	"github.com/agentstation/maestro/pkg/errors"
	"github.com/agentstation/maestro/pkg/logging"
	"github.com/agentstation/maestro/pkg/mapper"
	"github.com/agentstation/maestro/pkg/schema"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Client runs imports against a master workbook.
type Client interface {
	// Importer folds source workbooks into the master table
	Importer

	// Previewer reports mapping decisions without writing
	Previewer

	// Hooks provides access to event callback registration
	Hooks

	// Schema returns the canonical schema in use
	Schema() *schema.Schema

	// Close releases the run journal, if any
	Close() error
}

// client is the internal implementation of the Client interface.
type client struct {
	options *options

	schema    *schema.Schema
	mapper    *mapper.Mapper
	assembler *assemble.Assembler
	journal   *journal.Journal
	hooks     *hooks
}

// New creates a Client. Without WithReader and WithWriter it reads and
// writes .xlsx workbooks.
func New(opts ...Option) (Client, error) {
	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}
	if o.reader == nil {
		o.reader = xlsx.NewReader()
	}
	if o.writer == nil {
		o.writer = xlsx.NewWriter()
	}

	s := o.schema
	switch {
	case s != nil:
	case o.rulesFile != "":
		if s, err = schema.LoadFile(o.rulesFile); err != nil {
			return nil, err
		}
	default:
		s = schema.Default()
	}

	m, err := mapper.New(s)
	if err != nil {
		return nil, err
	}
	a, err := assemble.New(s)
	if err != nil {
		return nil, err
	}

	c := &client{
		options:   o,
		schema:    s,
		mapper:    m,
		assembler: a,
		hooks:     newHooks(),
	}

	if o.journalPath != "" {
		if c.journal, err = journal.Open(o.journalPath); err != nil {
			return nil, errors.NewConfigError("journal", "failed to open "+o.journalPath, err)
		}
	}
	return c, nil
}

// Schema returns the canonical schema in use.
func (c *client) Schema() *schema.Schema {
	return c.schema
}

// Close releases the run journal.
func (c *client) Close() error {
	if c.journal == nil {
		return nil
	}
	return c.journal.Close()
}

// OnRowAdmitted registers a callback for admitted rows.
func (c *client) OnRowAdmitted(fn RowAdmittedHook) { c.hooks.OnRowAdmitted(fn) }

// OnDuplicate registers a callback for rejected duplicates.
func (c *client) OnDuplicate(fn DuplicateHook) { c.hooks.OnDuplicate(fn) }

// OnRunCompleted registers a callback for completed runs.
func (c *client) OnRunCompleted(fn RunCompletedHook) { c.hooks.OnRunCompleted(fn) }

// runContext attaches the configured logger and run fields.
func (c *client) runContext(ctx context.Context, runID, source string) context.Context {
	if c.options.logger != nil {
		ctx = logging.WithLogger(ctx, c.options.logger)
	}
	if runID != "" {
		ctx = logging.WithRun(ctx, runID)
	}
	return logging.WithSource(ctx, source)
}
