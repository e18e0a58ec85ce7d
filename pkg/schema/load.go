package schema

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/maestro/pkg/errors"
	"github.com/agentstation/maestro/pkg/normalize"
	"github.com/agentstation/maestro/pkg/table"
)

//go:embed rules.yaml
var rulesYAML []byte

type fieldDoc struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"`
	Provenance string   `yaml:"provenance"`
	Hints      []string `yaml:"hints"`
}

// document is the on-disk rule file shape.
type document struct {
	Fields      []fieldDoc            `yaml:"fields"`
	Variants    map[string][]string   `yaml:"variants"`
	AltPrefixes map[string][]string   `yaml:"alt_prefixes"`
	Keywords    map[string][][]string `yaml:"keywords"`
	Positional  map[string]int        `yaml:"positional"`
	Roles       Roles                 `yaml:"roles"`
	Reference   *Reference            `yaml:"reference"`
}

var defaultSchema = sync.OnceValues(func() (*Schema, error) {
	doc, err := decode(rulesYAML, "rules.yaml")
	if err != nil {
		return nil, err
	}
	return build(doc)
})

// Default returns the built-in canonical schema.
func Default() *Schema {
	s, err := defaultSchema()
	if err != nil {
		panic(fmt.Sprintf("schema: embedded rules are invalid: %v", err))
	}
	return s
}

// Parse builds a schema from the built-in rules overlaid with data.
// Non-empty sections of data replace the built-in ones; rule maps are merged
// per field.
func Parse(data []byte) (*Schema, error) {
	return parse(data, "")
}

// LoadFile reads a rule override file and overlays it on the built-in rules.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "rules file", ID: path}
		}
		return nil, errors.WrapIO("read", path, err)
	}
	return parse(data, path)
}

func parse(data []byte, file string) (*Schema, error) {
	base, err := decode(rulesYAML, "rules.yaml")
	if err != nil {
		return nil, err
	}
	over, err := decode(data, file)
	if err != nil {
		return nil, err
	}
	base.overlay(over)
	return build(base)
}

func decode(data []byte, file string) (document, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, errors.WrapParse("yaml", file, err)
	}
	return doc, nil
}

func (d *document) overlay(o document) {
	if len(o.Fields) > 0 {
		d.Fields = o.Fields
	}
	d.Variants = mergeMap(d.Variants, o.Variants)
	d.AltPrefixes = mergeMap(d.AltPrefixes, o.AltPrefixes)
	d.Keywords = mergeMap(d.Keywords, o.Keywords)
	d.Positional = mergeMap(d.Positional, o.Positional)
	d.Roles.overlay(o.Roles)
	if o.Reference != nil {
		d.Reference = o.Reference
	}
}

func mergeMap[V any](dst, src map[string]V) map[string]V {
	if dst == nil {
		dst = make(map[string]V, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (r *Roles) overlay(o Roles) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&r.Identifier, o.Identifier)
	set(&r.CheckDigit, o.CheckDigit)
	set(&r.DedupDate, o.DedupDate)
	set(&r.Sequence, o.Sequence)
	set(&r.BatchDate, o.BatchDate)
	set(&r.Balance, o.Balance)
	if o.Grouping.Target != "" {
		r.Grouping = o.Grouping
	}
	if o.Difference.Target != "" {
		r.Difference = o.Difference
	}
	if o.DateColumns.First != "" {
		r.DateColumns = o.DateColumns
	}
}

func build(doc document) (*Schema, error) {
	if len(doc.Fields) == 0 {
		return nil, errors.NewValidationError("fields", nil, "at least one canonical field is required")
	}

	s := &Schema{
		byNorm:      make(map[string]int, len(doc.Fields)),
		variants:    make(map[string][]string),
		altPrefixes: make(map[string][]string),
		keywords:    make(map[string][][]string),
		positional:  make(map[string]int),
	}
	for i, fd := range doc.Fields {
		f, err := buildField(i, fd)
		if err != nil {
			return nil, err
		}
		if _, dup := s.byNorm[f.norm]; dup {
			return nil, errors.NewValidationError("fields", fd.Name, "duplicate canonical field")
		}
		s.byNorm[f.norm] = i
		s.fields = append(s.fields, f)
	}

	resolve := func(section, name string) (string, error) {
		i, ok := s.byNorm[normalize.Name(name)]
		if !ok {
			return "", errors.NewValidationError(section, name, "unknown canonical field")
		}
		return s.fields[i].Name, nil
	}

	for name, list := range doc.Variants {
		key, err := resolve("variants", name)
		if err != nil {
			return nil, err
		}
		s.variants[key] = normalizeAll(list)
	}
	for name, list := range doc.AltPrefixes {
		key, err := resolve("alt_prefixes", name)
		if err != nil {
			return nil, err
		}
		s.altPrefixes[key] = normalizeAll(list)
	}
	for name, groups := range doc.Keywords {
		key, err := resolve("keywords", name)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			if kw := normalizeAll(g); len(kw) > 0 {
				s.keywords[key] = append(s.keywords[key], kw)
			}
		}
	}
	for name, pos := range doc.Positional {
		key, err := resolve("positional", name)
		if err != nil {
			return nil, err
		}
		if pos < 0 {
			return nil, errors.NewValidationError("positional", pos, "column index must not be negative")
		}
		s.positional[key] = pos
	}

	roles, err := resolveRoles(doc.Roles, resolve)
	if err != nil {
		return nil, err
	}
	s.roles = roles

	if doc.Reference != nil {
		ref, err := resolveReference(*doc.Reference, resolve)
		if err != nil {
			return nil, err
		}
		s.reference = ref
	}
	return s, nil
}

func buildField(i int, fd fieldDoc) (Field, error) {
	norm := normalize.Name(fd.Name)
	if norm == "" {
		return Field{}, errors.NewValidationError("fields", i, "field name is empty")
	}
	kind, ok := table.ParseKind(fd.Kind)
	if !ok {
		return Field{}, errors.NewValidationError(fd.Name, fd.Kind, "unknown kind")
	}
	prov, ok := ParseProvenance(fd.Provenance)
	if !ok {
		return Field{}, errors.NewValidationError(fd.Name, fd.Provenance, "unknown provenance")
	}
	var hint table.Hint
	for _, h := range fd.Hints {
		x, ok := table.ParseHint(h)
		if !ok {
			return Field{}, errors.NewValidationError(fd.Name, h, "unknown hint")
		}
		hint |= x
	}
	return Field{Name: fd.Name, Index: i, Kind: kind, Provenance: prov, Hint: hint, norm: norm}, nil
}

func resolveRoles(r Roles, resolve func(section, name string) (string, error)) (Roles, error) {
	var err error
	optional := func(dst *string) {
		if err != nil || *dst == "" {
			return
		}
		*dst, err = resolve("roles", *dst)
	}
	required := func(dst *string, role string) {
		if err != nil {
			return
		}
		if *dst == "" {
			err = errors.NewValidationError("roles", role, "role is required")
			return
		}
		*dst, err = resolve("roles", *dst)
	}

	required(&r.Identifier, "identifier")
	required(&r.DedupDate, "dedup_date")
	optional(&r.CheckDigit)
	optional(&r.Sequence)
	optional(&r.BatchDate)
	optional(&r.Balance)
	if r.Grouping.Target != "" {
		required(&r.Grouping.Target, "grouping.target")
		required(&r.Grouping.From, "grouping.from")
	}
	if r.Difference.Target != "" {
		required(&r.Difference.Target, "difference.target")
		required(&r.Difference.Minuend, "difference.minuend")
		required(&r.Difference.Subtrahend, "difference.subtrahend")
	}
	optional(&r.DateColumns.First)
	optional(&r.DateColumns.Second)
	optional(&r.DateColumns.SecondMinusOne)
	return r, err
}

func resolveReference(ref Reference, resolve func(section, name string) (string, error)) (Reference, error) {
	if ref.Key == "" {
		if len(ref.Fields) > 0 {
			return ref, errors.NewValidationError("reference", "key", "a reference join needs a key field")
		}
		return ref, nil
	}
	key, err := resolve("reference", ref.Key)
	if err != nil {
		return ref, err
	}
	out := Reference{Key: key, KeyColumn: ref.KeyColumn}
	for _, j := range ref.Fields {
		target, err := resolve("reference", j.Target)
		if err != nil {
			return ref, err
		}
		if j.Column == "" {
			return ref, errors.NewValidationError("reference", target, "reference column is empty")
		}
		out.Fields = append(out.Fields, Join{Target: target, Column: j.Column})
	}
	return out, nil
}

func normalizeAll(list []string) []string {
	out := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, s := range list {
		n := normalize.Name(s)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
