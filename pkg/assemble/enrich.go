package assemble

import (
	"github.com/agentstation/maestro/pkg/normalize"
	"github.com/agentstation/maestro/pkg/schema"
	"github.com/agentstation/maestro/pkg/table"
)

// Reasons reported when enrichment does not run.
const (
	SkipNoJoin       = "no reference join configured"
	SkipNoReference  = "reference sheet absent or empty"
	SkipNoKeyColumn  = "reference key column not found"
	SkipNoColumns    = "no reference columns found"
	SkipNoIdentifier = "identifier field unknown"
)

// EnrichStats describes one enrichment pass.
type EnrichStats struct {
	// Skipped is empty when enrichment ran, otherwise the reason it did not.
	Skipped       string
	KeyColumn     string
	Columns       []string
	Matched       int
	Unmatched     int
	DuplicateKeys int
}

// Enricher joins a reference table into canonical rows by person key.
type Enricher struct {
	schema *schema.Schema
	ref    schema.Reference
}

// NewEnricher creates an Enricher for the schema's reference join.
func NewEnricher(s *schema.Schema) *Enricher {
	return &Enricher{schema: s, ref: s.Reference()}
}

type join struct {
	target int
	column int
	kind   table.Kind
}

// Enrich returns rows with the configured target fields overwritten from
// the first reference row sharing their key. Rows without a match keep their
// values. A nil or empty reference, or one without the key column, leaves
// the rows unchanged and reports why in Skipped.
func (e *Enricher) Enrich(rows []Row, ref *table.Table) ([]Row, EnrichStats) {
	out := cloneAll(rows)
	var stats EnrichStats

	if e.ref.Key == "" || len(e.ref.Fields) == 0 {
		stats.Skipped = SkipNoJoin
		return out, stats
	}
	if ref.IsEmpty() {
		stats.Skipped = SkipNoReference
		return out, stats
	}

	keyName := e.ref.Key
	if e.ref.KeyColumn != "" {
		keyName = e.ref.KeyColumn
	}
	keyCol := findHeader(ref.Headers, keyName)
	if keyCol < 0 {
		stats.Skipped = SkipNoKeyColumn
		return out, stats
	}
	stats.KeyColumn = ref.Headers[keyCol]

	var joins []join
	for _, j := range e.ref.Fields {
		col := findHeader(ref.Headers, j.Column)
		f, ok := e.schema.Field(j.Target)
		if col < 0 || !ok {
			continue
		}
		joins = append(joins, join{target: f.Index, column: col, kind: f.Kind})
		stats.Columns = append(stats.Columns, ref.Headers[col])
	}
	if len(joins) == 0 {
		stats.Skipped = SkipNoColumns
		return out, stats
	}

	idIdx := e.schema.Index(e.ref.Key)
	if idIdx < 0 {
		stats.Skipped = SkipNoIdentifier
		return out, stats
	}
	dvIdx := -1
	refDV := -1
	if cd := e.schema.Roles().CheckDigit; cd != "" {
		dvIdx = e.schema.Index(cd)
		refDV = findHeader(ref.Headers, cd)
	}

	// first occurrence per key wins
	index := make(map[string]int, ref.Len())
	// bare digits of keys carrying a check digit, for rows without one
	bare := make(map[string]int)
	for r := range ref.Rows {
		dv := table.NA()
		if refDV >= 0 {
			dv = ref.Cell(r, refDV)
		}
		key := normalize.PersonKey(ref.Cell(r, keyCol), dv)
		if key == "" {
			continue
		}
		if _, seen := index[key]; seen {
			stats.DuplicateKeys++
			continue
		}
		index[key] = r
		if base, ok := normalize.KeyBase(key); ok {
			if _, taken := bare[base]; !taken {
				bare[base] = r
			}
		}
	}

	for _, row := range out {
		dv := table.NA()
		if dvIdx >= 0 {
			dv = row[dvIdx]
		}
		r, ok := lookup(index, bare, normalize.PersonKey(row[idIdx], dv))
		if !ok {
			stats.Unmatched++
			continue
		}
		stats.Matched++
		for _, j := range joins {
			row[j.target] = Coerce(j.kind, ref.Cell(r, j.column))
		}
	}
	return out, stats
}

// lookup finds key. A key with a check digit falls back to its bare digits
// when the reference omits check digits; a bare key falls back to the first
// reference row whose key has those digits.
func lookup(index, bare map[string]int, key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	if r, ok := index[key]; ok {
		return r, true
	}
	if base, ok := normalize.KeyBase(key); ok {
		r, ok := index[base]
		return r, ok
	}
	r, ok := bare[key]
	return r, ok
}

func findHeader(headers []string, name string) int {
	want := normalize.Name(name)
	if want == "" {
		return -1
	}
	for i, h := range headers {
		if normalize.Name(h) == want {
			return i
		}
	}
	return -1
}
