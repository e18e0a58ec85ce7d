package mapper

import (
	"github.com/agentstation/maestro/pkg/schema"
)

// Decision is the mapping outcome for one canonical field.
type Decision struct {
	Field      string
	Position   int
	Provenance schema.Provenance
	Rule       Rule
	// Header is the matched source header; zero when unmapped.
	Header Header
}

// Mapped reports whether a source header was matched.
func (d Decision) Mapped() bool {
	return d.Rule != RuleNone
}

// Decisions is the outcome of mapping one header set: a decision per
// canonical field in schema order plus the headers that were consumed.
type Decisions struct {
	decisions []Decision
	headers   []Header
	consumed  map[int]bool
	byField   map[string]int
}

func newDecisions(s *schema.Schema, names []string) *Decisions {
	d := &Decisions{
		headers:  make([]Header, len(names)),
		consumed: make(map[int]bool),
		byField:  make(map[string]int, s.Len()),
	}
	for i, n := range names {
		d.headers[i] = NewHeader(i, n)
	}
	for i, f := range s.Fields() {
		d.decisions = append(d.decisions, Decision{Field: f.Name, Position: i, Provenance: f.Provenance})
		d.byField[f.Name] = i
	}
	return d
}

func (d *Decisions) available() []Header {
	out := make([]Header, 0, len(d.headers)-len(d.consumed))
	for _, h := range d.headers {
		if !d.consumed[h.Index] {
			out = append(out, h)
		}
	}
	return out
}

func (d *Decisions) claim(f schema.Field, rule Rule, h Header) {
	i := d.byField[f.Name]
	d.decisions[i].Rule = rule
	d.decisions[i].Header = h
	d.consumed[h.Index] = true
}

// Get returns the decision for a field.
func (d *Decisions) Get(field string) (Decision, bool) {
	i, ok := d.byField[field]
	if !ok {
		return Decision{}, false
	}
	return d.decisions[i], true
}

// Column returns the source column index mapped to a field, or -1.
func (d *Decisions) Column(field string) int {
	dec, ok := d.Get(field)
	if !ok || !dec.Mapped() {
		return -1
	}
	return dec.Header.Index
}

// All returns every decision in schema order.
func (d *Decisions) All() []Decision {
	return append([]Decision(nil), d.decisions...)
}

// Mapped returns the decisions that matched a header.
func (d *Decisions) Mapped() []Decision {
	var out []Decision
	for _, dec := range d.decisions {
		if dec.Mapped() {
			out = append(out, dec)
		}
	}
	return out
}

// Unmapped returns the sourced fields that matched nothing.
func (d *Decisions) Unmapped() []Decision {
	var out []Decision
	for _, dec := range d.decisions {
		if !dec.Mapped() && dec.Provenance.Sourced() {
			out = append(out, dec)
		}
	}
	return out
}

// Headers returns every source header in column order.
func (d *Decisions) Headers() []Header {
	return append([]Header(nil), d.headers...)
}

// IsConsumed reports whether the header at a column was claimed.
func (d *Decisions) IsConsumed(index int) bool {
	return d.consumed[index]
}

// Consumed returns the claimed headers in column order.
func (d *Decisions) Consumed() []Header {
	var out []Header
	for _, h := range d.headers {
		if d.consumed[h.Index] {
			out = append(out, h)
		}
	}
	return out
}

// Unused returns the headers no field claimed, in column order.
func (d *Decisions) Unused() []Header {
	return d.available()
}
