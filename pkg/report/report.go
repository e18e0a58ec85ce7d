// Package report turns mapping decisions and run counts into a structure
// meant for operators, and renders it as a table, JSON or YAML.
package report

import (
	"github.com/agentstation/maestro/pkg/assemble"
	"github.com/agentstation/maestro/pkg/mapper"
	"github.com/agentstation/maestro/pkg/merge"
	"github.com/agentstation/maestro/pkg/schema"
)

// Status of a canonical field in a run.
const (
	StatusMapped    = "mapped"
	StatusComputed  = "computed"
	StatusDate      = "date column"
	StatusReference = "reference"
	StatusSequence  = "sequence"
	StatusBatch     = "batch"
	StatusUnmapped  = "unmapped"
	StatusNoDate    = "no date header"
)

// Field reports where one canonical field gets its value.
type Field struct {
	Field  string `json:"field" yaml:"field"`
	Status string `json:"status" yaml:"status"`
	Rule   string `json:"rule,omitempty" yaml:"rule,omitempty"`
	Header string `json:"header,omitempty" yaml:"header,omitempty"`
	Column *int   `json:"column,omitempty" yaml:"column,omitempty"`
	Note   string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Header is a source header with its 0-based column.
type Header struct {
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
}

// Enrichment summarizes the reference join.
type Enrichment struct {
	Skipped       string   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	KeyColumn     string   `json:"key_column,omitempty" yaml:"key_column,omitempty"`
	Columns       []string `json:"columns,omitempty" yaml:"columns,omitempty"`
	Matched       int      `json:"matched" yaml:"matched"`
	Unmatched     int      `json:"unmatched" yaml:"unmatched"`
	DuplicateKeys int      `json:"duplicate_keys" yaml:"duplicate_keys"`
}

// Report is everything an operator needs to judge a run.
type Report struct {
	Source     string       `json:"source,omitempty" yaml:"source,omitempty"`
	Master     string       `json:"master,omitempty" yaml:"master,omitempty"`
	Mode       string       `json:"mode,omitempty" yaml:"mode,omitempty"`
	DryRun     bool         `json:"dry_run" yaml:"dry_run"`
	Fields     []Field      `json:"fields" yaml:"fields"`
	Unused     []Header     `json:"unused_headers" yaml:"unused_headers"`
	Enrichment *Enrichment  `json:"enrichment,omitempty" yaml:"enrichment,omitempty"`
	Counts     *merge.Stats `json:"counts,omitempty" yaml:"counts,omitempty"`
}

// Build describes the decisions for every canonical field. res may be nil
// when only mapping ran.
func Build(s *schema.Schema, d *mapper.Decisions, res *assemble.Result) *Report {
	r := &Report{Fields: make([]Field, 0, s.Len())}
	roles := s.Roles()
	joins := map[string]string{}
	for _, j := range s.Reference().Fields {
		joins[j.Target] = j.Column
	}

	var dates assemble.DateSelection
	if res != nil {
		dates = res.Dates
	} else {
		dates = assemble.DateColumns(d)
	}

	for _, dec := range d.All() {
		f := Field{Field: dec.Field}
		if dec.Mapped() {
			f.Status = StatusMapped
			f.Rule = dec.Rule.String()
			f.Header = dec.Header.Name
			f.Column = intPtr(dec.Header.Index)
		}

		switch dec.Provenance {
		case schema.Computed:
			f.Status = StatusComputed
			f.Note = computedNote(roles, dec.Field)
		case schema.DatePositional:
			fillDateField(&f, roles.DateColumns, dates)
		case schema.ReferenceJoined:
			if col, ok := joins[dec.Field]; ok {
				if f.Status == "" {
					f.Status = StatusReference
				}
				f.Note = "reference: " + col
			}
		case schema.Sequence:
			if f.Status == "" {
				f.Status = StatusSequence
			}
			f.Note = "assigned on merge"
		case schema.Batch:
			if f.Status == "" {
				f.Status = StatusBatch
			}
			f.Note = "batch date when given"
		}
		if f.Status == "" {
			f.Status = StatusUnmapped
			f.Note = "left empty in new rows"
		}
		r.Fields = append(r.Fields, f)
	}

	unused := d.Unused()
	if res != nil {
		unused = res.Unused
	}
	r.Unused = make([]Header, 0, len(unused))
	for _, h := range unused {
		if dates.Used(h.Index) {
			continue
		}
		r.Unused = append(r.Unused, Header{Index: h.Index, Name: h.Name})
	}

	if res != nil {
		st := res.Enrichment
		r.Enrichment = &Enrichment{
			Skipped:       st.Skipped,
			KeyColumn:     st.KeyColumn,
			Columns:       st.Columns,
			Matched:       st.Matched,
			Unmatched:     st.Unmatched,
			DuplicateKeys: st.DuplicateKeys,
		}
	}
	return r
}

// WithCounts attaches the merge outcome.
func (r *Report) WithCounts(mode merge.Mode, stats merge.Stats) *Report {
	r.Mode = mode.String()
	r.Counts = &stats
	return r
}

// Unmapped returns the fields reported as unmapped.
func (r *Report) Unmapped() []Field {
	var out []Field
	for _, f := range r.Fields {
		if f.Status == StatusUnmapped {
			out = append(out, f)
		}
	}
	return out
}

func computedNote(roles schema.Roles, field string) string {
	switch field {
	case roles.Grouping.Target:
		return "leading digits of " + roles.Grouping.From
	case roles.Difference.Target:
		return roles.Difference.Minuend + " - " + roles.Difference.Subtrahend
	}
	return ""
}

func fillDateField(f *Field, cols schema.DateColumns, dates assemble.DateSelection) {
	var (
		col assemble.DateColumn
		ok  bool
	)
	switch f.Field {
	case cols.First:
		col, ok = dates.First()
	case cols.Second:
		col, ok = dates.Second()
	case cols.SecondMinusOne:
		col, ok = dates.Second()
		f.Note = "second date column minus 1"
	}
	if !ok {
		f.Status = StatusNoDate
		return
	}
	f.Status = StatusDate
	f.Header = col.Header.Name
	f.Column = intPtr(col.Header.Index)
}

func intPtr(i int) *int {
	return &i
}
