package assemble

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agentstation/maestro/pkg/mapper"
	"github.com/agentstation/maestro/pkg/normalize"
	"github.com/agentstation/maestro/pkg/schema"
	"github.com/agentstation/maestro/pkg/table"
)

// DateColumn is a source header that parses as a date.
type DateColumn struct {
	Header mapper.Header
	Date   time.Time
}

// DateSelection lists the date-named headers in chronological order. The
// earliest feeds the first date field and the next one the second.
type DateSelection struct {
	Candidates []DateColumn
}

// First returns the chronologically first date column.
func (s DateSelection) First() (DateColumn, bool) {
	if len(s.Candidates) < 1 {
		return DateColumn{}, false
	}
	return s.Candidates[0], true
}

// Second returns the chronologically second date column.
func (s DateSelection) Second() (DateColumn, bool) {
	if len(s.Candidates) < 2 {
		return DateColumn{}, false
	}
	return s.Candidates[1], true
}

// Used reports whether the header at a column feeds a date field.
func (s DateSelection) Used(index int) bool {
	for i, c := range s.Candidates {
		if i > 1 {
			break
		}
		if c.Header.Index == index {
			return true
		}
	}
	return false
}

func (s DateSelection) unused(d *mapper.Decisions) []mapper.Header {
	var out []mapper.Header
	for _, h := range d.Unused() {
		if !s.Used(h.Index) {
			out = append(out, h)
		}
	}
	return out
}

// DateColumns collects the unconsumed headers that parse as dates, ordered
// by date and then by column. Column order never decides which is first.
func DateColumns(d *mapper.Decisions) DateSelection {
	var sel DateSelection
	for _, h := range d.Unused() {
		if t, ok := normalize.ParseHeaderDate(h.Name); ok {
			sel.Candidates = append(sel.Candidates, DateColumn{Header: h, Date: t})
		}
	}
	sort.SliceStable(sel.Candidates, func(i, j int) bool {
		return sel.Candidates[i].Date.Before(sel.Candidates[j].Date)
	})
	return sel
}

// FillDates copies the first and second date columns into their fields and
// sets the second-minus-one field to the second column's value less one.
func FillDates(s *schema.Schema, rows []Row, src *table.Table, sel DateSelection) []Row {
	out := cloneAll(rows)
	roles := s.Roles().DateColumns
	first, hasFirst := sel.First()
	second, hasSecond := sel.Second()

	for r, row := range out {
		if hasFirst {
			setCoerced(s, row, roles.First, src.Cell(r, first.Header.Index))
		}
		if !hasSecond {
			continue
		}
		v := src.Cell(r, second.Header.Index)
		setCoerced(s, row, roles.Second, v)
		if roles.SecondMinusOne != "" {
			less := table.NA()
			if d, ok := normalize.Decimal(v); ok {
				less = table.Number(d.Sub(decimal.NewFromInt(1)))
			}
			row.set(s, roles.SecondMinusOne, less)
		}
	}
	return out
}

func setCoerced(s *schema.Schema, row Row, field string, v table.Value) {
	if field == "" {
		return
	}
	f, ok := s.Field(field)
	if !ok {
		return
	}
	row[f.Index] = Coerce(f.Kind, v)
}
