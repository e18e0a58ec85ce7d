// Package merge folds assembled rows into the master table.
//
// In create mode every candidate gets a sequence number starting at 1. In
// append mode existing rows are read-only: their keys seed the duplicate set
// and only admitted candidates are written, after the last existing row.
// Candidates are also checked against each other; the first occurrence wins.
package merge

import (
	"strings"

	"github.com/agentstation/maestro/pkg/assemble"
	"github.com/agentstation/maestro/pkg/errors"
	"github.com/agentstation/maestro/pkg/normalize"
	"github.com/agentstation/maestro/pkg/schema"
	"github.com/agentstation/maestro/pkg/table"
)

// Mode is the merge mode chosen for a run.
type Mode uint8

const (
	// ModeCreate writes a new master table.
	ModeCreate Mode = iota
	// ModeAppend adds rows to an existing master table.
	ModeAppend
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeAppend {
		return "append"
	}
	return "create"
}

// Stats are the counts reported for a run.
type Stats struct {
	RowsBefore int `json:"rows_before" yaml:"rows_before"`
	RowsRead   int `json:"rows_read" yaml:"rows_read"`
	Duplicates int `json:"duplicates" yaml:"duplicates"`
	Admitted   int `json:"admitted" yaml:"admitted"`
	RowsAfter  int `json:"rows_after" yaml:"rows_after"`
}

type options struct {
	batch table.Value
}

// Option configures an Engine.
type Option func(*options) error

// WithBatchDate sets the value applied to the batch field of every admitted
// row. It is stored as a date when it parses as one, else as literal text.
// Blank values leave the batch field alone.
func WithBatchDate(value string) Option {
	return func(o *options) error {
		o.batch = BatchValue(value)
		return nil
	}
}

// BatchValue interprets a batch date argument.
func BatchValue(value string) table.Value {
	v := table.Text(strings.TrimSpace(value))
	if v.IsNA() {
		return v
	}
	if t, ok := normalize.ParseDate(v); ok {
		return table.Date(t)
	}
	return v
}

// Engine merges candidates into a master table for one schema.
type Engine struct {
	schema *schema.Schema
	batch  table.Value

	identifier int
	checkDigit int
	dedupDate  int
	sequence   int
	batchField int
}

// New creates an Engine.
func New(s *schema.Schema, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, &errors.ValidationError{Field: "schema", Message: "cannot be nil"}
	}
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	roles := s.Roles()
	index := func(name string) int {
		if name == "" {
			return -1
		}
		return s.Index(name)
	}
	return &Engine{
		schema:     s,
		batch:      o.batch,
		identifier: index(roles.Identifier),
		checkDigit: index(roles.CheckDigit),
		dedupDate:  index(roles.DedupDate),
		sequence:   index(roles.Sequence),
		batchField: index(roles.BatchDate),
	}, nil
}

// Plan is the outcome of a merge: what to write and the run counts.
type Plan struct {
	Mode   Mode
	Layout Layout
	// Admitted rows carry their sequence number and batch value.
	Admitted []assemble.Row
	// Rejected holds the candidate indices dropped as duplicates.
	Rejected      []int
	FirstSequence int
	Stats         Stats
}

// Merge plans the merge of candidates into existing, which is nil when no
// master table exists yet. Neither input is modified.
func (e *Engine) Merge(existing *table.Table, candidates []assemble.Row) (*Plan, error) {
	if err := assemble.Check(e.schema, "merge", candidates); err != nil {
		return nil, err
	}

	plan := &Plan{Mode: ModeCreate, Layout: IdentityLayout(e.schema)}
	seen := newKeySet()
	last := 0
	if existing != nil {
		plan.Mode = ModeAppend
		plan.Layout = ResolveLayout(e.schema, existing.Headers)
		for r := range existing.Rows {
			seen.add(e.existingKey(existing, plan.Layout, r))
		}
		last = LastSequence(existing, plan.Layout.Column(e.sequence))
	}

	next := last + 1
	plan.FirstSequence = next
	for i, c := range candidates {
		key := e.Key(c)
		if seen.has(key) {
			plan.Rejected = append(plan.Rejected, i)
			continue
		}
		seen.add(key)

		row := append(assemble.Row(nil), c...)
		if e.sequence >= 0 {
			row[e.sequence] = table.Int(int64(next))
		}
		if e.batchField >= 0 && !e.batch.IsNA() {
			row[e.batchField] = e.batch
		}
		next++
		plan.Admitted = append(plan.Admitted, row)
	}

	plan.Stats = Stats{
		RowsBefore: existing.Len(),
		RowsRead:   len(candidates),
		Duplicates: len(plan.Rejected),
		Admitted:   len(plan.Admitted),
		RowsAfter:  existing.Len() + len(plan.Admitted),
	}
	return plan, nil
}

// Key returns the dedup key of an assembled row.
func (e *Engine) Key(row assemble.Row) Key {
	return KeyOf(at(row, e.identifier), at(row, e.checkDigit), at(row, e.dedupDate))
}

func (e *Engine) existingKey(t *table.Table, l Layout, r int) Key {
	cell := func(field int) table.Value {
		if field < 0 {
			return table.NA()
		}
		return t.Cell(r, l.Column(field))
	}
	return KeyOf(cell(e.identifier), cell(e.checkDigit), cell(e.dedupDate))
}

func at(row assemble.Row, i int) table.Value {
	if i < 0 || i >= len(row) {
		return table.NA()
	}
	return row[i]
}

// LastSequence scans the column from the last row upward and returns the
// first value that parses as an integer, or 0.
func LastSequence(t *table.Table, column int) int {
	if column < 0 {
		return 0
	}
	for r := t.Len() - 1; r >= 0; r-- {
		d, ok := normalize.Decimal(t.Cell(r, column))
		if ok && d.Equal(d.Truncate(0)) {
			return int(d.IntPart())
		}
	}
	return 0
}

// CreateRequest builds the writer request for create mode.
func (p *Plan) CreateRequest(s *schema.Schema, path, sheet string, headerRow int) table.CreateRequest {
	rows := make([][]table.Value, len(p.Admitted))
	for i, r := range p.Admitted {
		rows[i] = []table.Value(r)
	}
	return table.CreateRequest{
		Path:      path,
		Sheet:     sheet,
		HeaderRow: headerRow,
		Headers:   s.Names(),
		Hints:     s.Hints(),
		Rows:      rows,
	}
}

// AppendRequest builds the writer request for append mode. NA cells are not
// written.
func (p *Plan) AppendRequest(s *schema.Schema, path, sheet string) table.AppendRequest {
	fields := s.Fields()
	rows := make([][]table.Placement, len(p.Admitted))
	for i, r := range p.Admitted {
		var cells []table.Placement
		for f, v := range r {
			if v.IsNA() {
				continue
			}
			cells = append(cells, table.Placement{Column: p.Layout.Column(f), Value: v, Hint: fields[f].Hint})
		}
		rows[i] = cells
	}
	return table.AppendRequest{Path: path, Sheet: sheet, Rows: rows}
}
