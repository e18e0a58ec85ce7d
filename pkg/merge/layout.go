package merge

import (
	"github.com/agentstation/maestro/pkg/normalize"
	"github.com/agentstation/maestro/pkg/schema"
)

// Layout maps each canonical field position to a master column.
type Layout struct {
	Columns []int
	// Fallback marks fields whose column was not found by name.
	Fallback []bool
}

// IdentityLayout places every field at its canonical position.
func IdentityLayout(s *schema.Schema) Layout {
	l := Layout{Columns: make([]int, s.Len()), Fallback: make([]bool, s.Len())}
	for i := range l.Columns {
		l.Columns[i] = i
	}
	return l
}

// ResolveLayout finds each canonical field among the master headers by
// normalized name. A field that is not found keeps its canonical position.
func ResolveLayout(s *schema.Schema, headers []string) Layout {
	byName := make(map[string]int, len(headers))
	for i, h := range headers {
		n := normalize.Name(h)
		if _, dup := byName[n]; n != "" && !dup {
			byName[n] = i
		}
	}

	l := IdentityLayout(s)
	for i, f := range s.Fields() {
		if col, ok := byName[f.Norm()]; ok {
			l.Columns[i] = col
			continue
		}
		l.Fallback[i] = true
	}
	return l
}

// Column returns the master column of the canonical field at position i.
func (l Layout) Column(i int) int {
	if i < 0 || i >= len(l.Columns) {
		return -1
	}
	return l.Columns[i]
}
