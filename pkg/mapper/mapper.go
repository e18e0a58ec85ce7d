// Package mapper matches arbitrary source headers to the canonical schema.
//
// Matching is a cascade of strategies. Each strategy runs over every field
// still unmapped, in schema order, before the next strategy runs, so strong
// evidence (exact names, known variants) always claims its header before a
// heuristic can. A header claimed by one field is never offered to another.
package mapper

import (
	"github.com/agentstation/maestro/pkg/errors"
	"github.com/agentstation/maestro/pkg/schema"
)

type options struct {
	strategies []Strategy
	exclude    map[string]bool
}

// Option configures a Mapper.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithStrategies replaces the default cascade.
func WithStrategies(strategies ...Strategy) Option {
	return func(o *options) error {
		for i, s := range strategies {
			if s.Match == nil {
				return &errors.ValidationError{Field: "strategies", Value: i, Message: "matcher cannot be nil"}
			}
		}
		o.strategies = strategies
		return nil
	}
}

// WithoutFields leaves the named fields unmapped.
func WithoutFields(names ...string) Option {
	return func(o *options) error {
		for _, n := range names {
			o.exclude[n] = true
		}
		return nil
	}
}

// Mapper produces mapping decisions for source header sets.
type Mapper struct {
	schema     *schema.Schema
	strategies []Strategy
	exclude    map[string]bool
}

// New creates a Mapper for the schema.
func New(s *schema.Schema, opts ...Option) (*Mapper, error) {
	if s == nil {
		return nil, &errors.ValidationError{Field: "schema", Message: "cannot be nil"}
	}
	o, err := (&options{strategies: DefaultStrategies(s), exclude: map[string]bool{}}).apply(opts...)
	if err != nil {
		return nil, err
	}
	return &Mapper{schema: s, strategies: o.strategies, exclude: o.exclude}, nil
}

// Map matches headers, given in source column order, against the schema.
func (m *Mapper) Map(headers []string) *Decisions {
	d := newDecisions(m.schema, headers)

	var pending []schema.Field
	for _, f := range m.schema.Fields() {
		if f.Provenance.Sourced() && !m.exclude[f.Name] {
			pending = append(pending, f)
		}
	}

	for _, st := range m.strategies {
		if len(pending) == 0 {
			break
		}
		remaining := pending[:0]
		for _, f := range pending {
			h, ok := st.Match(f, d.available())
			if !ok {
				remaining = append(remaining, f)
				continue
			}
			d.claim(f, st.Rule, h)
		}
		pending = remaining
	}
	return d
}
