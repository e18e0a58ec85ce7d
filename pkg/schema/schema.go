// Package schema holds the canonical master layout: the ordered field list,
// what fills each field, and the immutable rules used to match source
// headers to fields.
package schema

import (
	"github.com/agentstation/maestro/pkg/normalize"
	"github.com/agentstation/maestro/pkg/table"
)

// Provenance says where a canonical field gets its value.
type Provenance uint8

const (
	// Mapped fields are read from a matched source column.
	Mapped Provenance = iota
	// Computed fields are derived from other canonical fields.
	Computed
	// DatePositional fields are filled from the date-named source columns.
	DatePositional
	// ReferenceJoined fields are filled from the reference sheet, and may also be mapped.
	ReferenceJoined
	// Sequence is the running row number assigned at merge time.
	Sequence
	// Batch is the batch date applied to admitted rows.
	Batch
)

var provenanceNames = map[Provenance]string{
	Mapped:          "mapped",
	Computed:        "computed",
	DatePositional:  "date_positional",
	ReferenceJoined: "reference_joined",
	Sequence:        "sequence",
	Batch:           "batch",
}

// String returns the rule-file spelling of the provenance.
func (p Provenance) String() string {
	if s, ok := provenanceNames[p]; ok {
		return s
	}
	return "unknown"
}

// ParseProvenance parses a rule-file provenance name.
func ParseProvenance(s string) (Provenance, bool) {
	if s == "" {
		return Mapped, true
	}
	for p, name := range provenanceNames {
		if name == s {
			return p, true
		}
	}
	return 0, false
}

// Sourced reports whether fields of this provenance are matched against
// source headers.
func (p Provenance) Sourced() bool {
	switch p {
	case Mapped, ReferenceJoined, Sequence, Batch:
		return true
	}
	return false
}

// Field is one canonical column.
type Field struct {
	Name       string
	Index      int
	Kind       table.Kind
	Provenance Provenance
	Hint       table.Hint
	norm       string
}

// Norm returns the normalized field name.
func (f Field) Norm() string {
	return f.norm
}

// Grouping derives Target from the leading digits of From.
type Grouping struct {
	Target string `yaml:"target"`
	From   string `yaml:"from"`
}

// Difference derives Target as Minuend minus Subtrahend.
type Difference struct {
	Target     string `yaml:"target"`
	Minuend    string `yaml:"minuend"`
	Subtrahend string `yaml:"subtrahend"`
}

// DateColumns names the fields filled from date-named source columns.
type DateColumns struct {
	First          string `yaml:"first"`
	Second         string `yaml:"second"`
	SecondMinusOne string `yaml:"second_minus_one"`
}

// Roles binds the fields that carry special meaning in the pipeline.
type Roles struct {
	Identifier  string      `yaml:"identifier"`
	CheckDigit  string      `yaml:"check_digit"`
	DedupDate   string      `yaml:"dedup_date"`
	Sequence    string      `yaml:"sequence"`
	BatchDate   string      `yaml:"batch_date"`
	Balance     string      `yaml:"balance"`
	Grouping    Grouping    `yaml:"grouping"`
	Difference  Difference  `yaml:"difference"`
	DateColumns DateColumns `yaml:"date_columns"`
}

// Join copies reference sheet Column into canonical field Target.
type Join struct {
	Target string `yaml:"target"`
	Column string `yaml:"column"`
}

// Reference describes the secondary sheet join.
type Reference struct {
	// Key is the canonical field whose value is looked up.
	Key string `yaml:"key"`
	// KeyColumn overrides the reference header holding the key. Empty means
	// the header whose normalized name equals Key.
	KeyColumn string `yaml:"key_column"`
	Fields    []Join `yaml:"fields"`
}

// Schema is the immutable canonical layout plus its matching rules.
// Build one with Default, Parse or LoadFile; never mutate it after.
type Schema struct {
	fields      []Field
	byNorm      map[string]int
	variants    map[string][]string
	altPrefixes map[string][]string
	keywords    map[string][][]string
	positional  map[string]int
	roles       Roles
	reference   Reference
}

// Len returns the number of canonical fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Fields returns the canonical fields in output order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the canonical field names in output order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Hints returns the formatting hints in output order.
func (s *Schema) Hints() []table.Hint {
	out := make([]table.Hint, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Hint
	}
	return out
}

// Index returns the position of a field, compared by normalized name, or -1.
func (s *Schema) Index(name string) int {
	if i, ok := s.byNorm[normalize.Name(name)]; ok {
		return i
	}
	return -1
}

// Field looks a field up by name.
func (s *Schema) Field(name string) (Field, bool) {
	i := s.Index(name)
	if i < 0 {
		return Field{}, false
	}
	return s.fields[i], true
}

// Variants returns the normalized alternative spellings of a field.
func (s *Schema) Variants(name string) []string {
	return s.variants[s.key(name)]
}

// AltPrefixes returns the normalized alternative prefixes of a field.
func (s *Schema) AltPrefixes(name string) []string {
	return s.altPrefixes[s.key(name)]
}

// Keywords returns the ordered keyword groups of a field.
func (s *Schema) Keywords(name string) [][]string {
	return s.keywords[s.key(name)]
}

// Position returns the fallback source column index of a field.
func (s *Schema) Position(name string) (int, bool) {
	i, ok := s.positional[s.key(name)]
	return i, ok
}

// Roles returns the role bindings.
func (s *Schema) Roles() Roles {
	return s.roles
}

// Reference returns the reference sheet join description.
func (s *Schema) Reference() Reference {
	ref := s.reference
	ref.Fields = append([]Join(nil), s.reference.Fields...)
	return ref
}

// ByProvenance returns the fields of the given provenance in output order.
func (s *Schema) ByProvenance(p Provenance) []Field {
	var out []Field
	for _, f := range s.fields {
		if f.Provenance == p {
			out = append(out, f)
		}
	}
	return out
}

func (s *Schema) key(name string) string {
	if i := s.Index(name); i >= 0 {
		return s.fields[i].Name
	}
	return name
}
