package assemble

import (
	"strings"
	"unicode"

	"github.com/agentstation/maestro/pkg/normalize"
	"github.com/agentstation/maestro/pkg/schema"
	"github.com/agentstation/maestro/pkg/table"
)

// Derive fills the computed fields. It runs after mapping and enrichment so
// joined values take part.
func Derive(s *schema.Schema, rows []Row) []Row {
	out := cloneAll(rows)
	roles := s.Roles()
	for _, row := range out {
		if g := roles.Grouping; g.Target != "" {
			row.set(s, g.Target, table.Text(LeadingDigits(row.Get(s, g.From))))
		}
		if d := roles.Difference; d.Target != "" {
			row.set(s, d.Target, difference(row.Get(s, d.Minuend), row.Get(s, d.Subtrahend)))
		}
	}
	return out
}

// LeadingDigits returns the run of digits at the start of a value's text:
// "12345ABC" -> "12345". Integral numbers yield their digits.
func LeadingDigits(v table.Value) string {
	if v.IsNA() {
		return ""
	}
	s := strings.TrimSpace(v.String())
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) || r > unicode.MaxASCII })
	if end < 0 {
		return s
	}
	return s[:end]
}

// difference is a - b, NA when either side is not numeric.
func difference(a, b table.Value) table.Value {
	x, ok := normalize.Decimal(a)
	if !ok {
		return table.NA()
	}
	y, ok := normalize.Decimal(b)
	if !ok {
		return table.NA()
	}
	return table.Number(x.Sub(y))
}

// Defaults sets the balance field to zero wherever it is still NA.
func Defaults(s *schema.Schema, rows []Row) []Row {
	out := cloneAll(rows)
	balance := s.Roles().Balance
	if balance == "" {
		return out
	}
	for _, row := range out {
		if row.Get(s, balance).IsNA() {
			row.set(s, balance, table.Int(0))
		}
	}
	return out
}
