package mapper

import (
	"regexp"
	"strings"

	"github.com/agentstation/maestro/pkg/normalize"
	"github.com/agentstation/maestro/pkg/schema"
)

// Rule identifies the matching rule that produced a decision.
type Rule uint8

const (
	// RuleNone marks an unmapped field.
	RuleNone Rule = iota
	// RuleExact matches the normalized field name.
	RuleExact
	// RuleVariant matches a known alternative spelling.
	RuleVariant
	// RulePrefix matches headers starting with the field name.
	RulePrefix
	// RuleAltPrefix matches headers starting with an alternative prefix.
	RuleAltPrefix
	// RuleKeyword matches headers containing every keyword of a group.
	RuleKeyword
	// RulePositional takes an anonymous header at a fixed column.
	RulePositional
)

// String returns the rule name.
func (r Rule) String() string {
	switch r {
	case RuleExact:
		return "exact"
	case RuleVariant:
		return "variant"
	case RulePrefix:
		return "prefix"
	case RuleAltPrefix:
		return "alt-prefix"
	case RuleKeyword:
		return "keyword"
	case RulePositional:
		return "positional"
	default:
		return "unmapped"
	}
}

// Header is a source column label and its position.
type Header struct {
	Index int
	Name  string
	Norm  string
}

// NewHeader builds a header at a 0-based column index.
func NewHeader(index int, name string) Header {
	return Header{Index: index, Name: name, Norm: normalize.Name(name)}
}

// placeholder labels produced for blank header cells by spreadsheet tooling
var anonymous = regexp.MustCompile(`^(?:unnamed:? ?\d+(?:_level_\d+)?|col_?\d+|undefined_?\d+|column ?\d+)?$`)

// Anonymous reports whether the header carries no real name.
func (h Header) Anonymous() bool {
	return anonymous.MatchString(h.Norm)
}

// Matcher picks a header for a field among the candidates, which are the
// headers not yet claimed by another field.
type Matcher func(field schema.Field, candidates []Header) (Header, bool)

// Strategy is one rule of the matching cascade.
type Strategy struct {
	Rule  Rule
	Match Matcher
}

// DefaultStrategies returns the six-rule cascade in precedence order.
func DefaultStrategies(s *schema.Schema) []Strategy {
	return []Strategy{
		{Rule: RuleExact, Match: Exact},
		{Rule: RuleVariant, Match: Variant(s)},
		{Rule: RulePrefix, Match: Prefix},
		{Rule: RuleAltPrefix, Match: AltPrefix(s)},
		{Rule: RuleKeyword, Match: Keyword(s)},
		{Rule: RulePositional, Match: Positional(s)},
	}
}

// Exact matches a header whose normalized name equals the field's.
func Exact(field schema.Field, candidates []Header) (Header, bool) {
	return firstEqual(field.Norm(), candidates)
}

// Variant matches the first known variant present among the candidates.
func Variant(s *schema.Schema) Matcher {
	return func(field schema.Field, candidates []Header) (Header, bool) {
		for _, v := range s.Variants(field.Name) {
			if h, ok := firstEqual(v, candidates); ok {
				return h, true
			}
		}
		return Header{}, false
	}
}

// Prefix matches headers that start with the field name; the longest wins.
func Prefix(field schema.Field, candidates []Header) (Header, bool) {
	return longest(candidates, func(h Header) bool {
		return strings.HasPrefix(h.Norm, field.Norm())
	})
}

// AltPrefix matches headers starting with any alternative prefix of the
// field; the longest header wins.
func AltPrefix(s *schema.Schema) Matcher {
	return func(field schema.Field, candidates []Header) (Header, bool) {
		prefixes := s.AltPrefixes(field.Name)
		if len(prefixes) == 0 {
			return Header{}, false
		}
		return longest(candidates, func(h Header) bool {
			for _, p := range prefixes {
				if strings.HasPrefix(h.Norm, p) {
					return true
				}
			}
			return false
		})
	}
}

// Keyword tries the field's keyword groups in order. A header matches a group
// when it contains every keyword. The first group with a hit decides, and the
// longest matching header wins within it.
func Keyword(s *schema.Schema) Matcher {
	return func(field schema.Field, candidates []Header) (Header, bool) {
		for _, group := range s.Keywords(field.Name) {
			h, ok := longest(candidates, func(h Header) bool {
				for _, kw := range group {
					if !strings.Contains(h.Norm, kw) {
						return false
					}
				}
				return true
			})
			if ok {
				return h, true
			}
		}
		return Header{}, false
	}
}

// Positional takes the header at the field's fallback column when that
// header is anonymous.
func Positional(s *schema.Schema) Matcher {
	return func(field schema.Field, candidates []Header) (Header, bool) {
		pos, ok := s.Position(field.Name)
		if !ok {
			return Header{}, false
		}
		for _, h := range candidates {
			if h.Index == pos && h.Anonymous() {
				return h, true
			}
		}
		return Header{}, false
	}
}

func firstEqual(norm string, candidates []Header) (Header, bool) {
	if norm == "" {
		return Header{}, false
	}
	for _, h := range candidates {
		if h.Norm == norm {
			return h, true
		}
	}
	return Header{}, false
}

// longest returns the matching header with the longest normalized name,
// the leftmost one on ties.
func longest(candidates []Header, match func(Header) bool) (Header, bool) {
	var best Header
	found := false
	for _, h := range candidates {
		if h.Norm == "" || !match(h) {
			continue
		}
		if !found || len(h.Norm) > len(best.Norm) {
			best, found = h, true
		}
	}
	return best, found
}
