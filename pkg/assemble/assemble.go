// Package assemble turns a raw source table into canonical rows.
//
// The pipeline is a fixed sequence of pure stages. Each stage returns a new
// row set and the row shape (one value per canonical field, in schema order)
// is checked at every stage boundary:
//
//	project -> date columns -> enrich -> derive -> defaults
package assemble

import (
	"context"
	"fmt"

	"github.com/agentstation/maestro/pkg/errors"
	"github.com/agentstation/maestro/pkg/logging"
	"github.com/agentstation/maestro/pkg/mapper"
	"github.com/agentstation/maestro/pkg/normalize"
	"github.com/agentstation/maestro/pkg/schema"
	"github.com/agentstation/maestro/pkg/table"
)

// Row is a canonical row: exactly one value per schema field, in schema order.
type Row []table.Value

func (r Row) clone() Row {
	return append(Row(nil), r...)
}

func cloneAll(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.clone()
	}
	return out
}

// Result is the outcome of assembling one source table.
type Result struct {
	Rows       []Row
	Dates      DateSelection
	Enrichment EnrichStats
	// Unused lists source headers claimed neither by mapping nor by the date columns.
	Unused []mapper.Header
}

// Assembler runs the pipeline for one schema.
type Assembler struct {
	schema   *schema.Schema
	enricher *Enricher
}

// New creates an Assembler.
func New(s *schema.Schema) (*Assembler, error) {
	if s == nil {
		return nil, &errors.ValidationError{Field: "schema", Message: "cannot be nil"}
	}
	return &Assembler{schema: s, enricher: NewEnricher(s)}, nil
}

// Assemble maps src through d, fills the date columns, joins ref (which may
// be nil), derives computed fields and applies defaults.
func (a *Assembler) Assemble(ctx context.Context, src *table.Table, d *mapper.Decisions, ref *table.Table) (*Result, error) {
	logger := logging.FromContext(ctx)

	rows := Project(a.schema, src, d)
	if err := a.boundary(ctx, "project", rows); err != nil {
		return nil, err
	}

	dates := DateColumns(d)
	rows = FillDates(a.schema, rows, src, dates)
	if err := a.boundary(ctx, "dates", rows); err != nil {
		return nil, err
	}
	if first, ok := dates.First(); ok {
		ev := logger.Debug().Str("first", first.Header.Name)
		if second, ok := dates.Second(); ok {
			ev = ev.Str("second", second.Header.Name)
		}
		ev.Msg("Date columns selected")
	}

	rows, stats := a.enricher.Enrich(rows, ref)
	if err := a.boundary(ctx, "enrich", rows); err != nil {
		return nil, err
	}
	if stats.Skipped != "" {
		logger.Debug().Str("reason", stats.Skipped).Msg("Reference enrichment skipped")
	} else {
		logger.Debug().
			Int("matched", stats.Matched).
			Int("unmatched", stats.Unmatched).
			Int("duplicate_keys", stats.DuplicateKeys).
			Msg("Reference enrichment applied")
	}

	rows = Derive(a.schema, rows)
	if err := a.boundary(ctx, "derive", rows); err != nil {
		return nil, err
	}

	rows = Defaults(a.schema, rows)
	if err := a.boundary(ctx, "defaults", rows); err != nil {
		return nil, err
	}

	return &Result{Rows: rows, Dates: dates, Enrichment: stats, Unused: dates.unused(d)}, nil
}

func (a *Assembler) boundary(ctx context.Context, stage string, rows []Row) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s stage: %w", errors.ErrCanceled, stage, err)
	}
	return Check(a.schema, stage, rows)
}

// Check verifies that every row carries exactly the canonical field set.
func Check(s *schema.Schema, stage string, rows []Row) error {
	for i, r := range rows {
		if len(r) != s.Len() {
			return &errors.ValidationError{
				Field:   stage,
				Value:   i,
				Message: fmt.Sprintf("row %d has %d values, want %d", i, len(r), s.Len()),
			}
		}
	}
	return nil
}

// Project builds one canonical row per source row, copying mapped columns
// and coercing each value to its field kind. Unmapped fields are NA.
func Project(s *schema.Schema, src *table.Table, d *mapper.Decisions) []Row {
	fields := s.Fields()
	columns := make([]int, len(fields))
	for i, f := range fields {
		columns[i] = d.Column(f.Name)
	}

	rows := make([]Row, src.Len())
	for r := range rows {
		row := make(Row, len(fields))
		for i, f := range fields {
			if columns[i] < 0 {
				continue
			}
			row[i] = Coerce(f.Kind, src.Cell(r, columns[i]))
		}
		rows[r] = row
	}
	return rows
}

// Coerce converts a raw cell to a field kind. Values that cannot be converted
// become NA, except for text fields which keep what they were given.
func Coerce(kind table.Kind, v table.Value) table.Value {
	if v.IsNA() {
		return v
	}
	switch kind {
	case table.KindNumber:
		if d, ok := normalize.Decimal(v); ok {
			return table.Number(d)
		}
		return table.NA()
	case table.KindDate:
		if t, ok := normalize.ParseDate(v); ok {
			return table.Date(t)
		}
		return table.NA()
	case table.KindText:
		if d, ok := v.Decimal(); ok && d.Equal(d.Truncate(0)) {
			return table.Text(d.Truncate(0).String())
		}
	}
	return v
}

// Get returns the value of a named field, NA when the field is unknown.
func (r Row) Get(s *schema.Schema, field string) table.Value {
	i := s.Index(field)
	if i < 0 || i >= len(r) {
		return table.NA()
	}
	return r[i]
}

func (r Row) set(s *schema.Schema, field string, v table.Value) {
	if i := s.Index(field); i >= 0 && i < len(r) {
		r[i] = v
	}
}
