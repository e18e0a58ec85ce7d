package table

// Table is a sheet read from a workbook: ordered headers and typed rows.
// Rows may be shorter than Headers; missing trailing cells are NA.
type Table struct {
	// Sheet is the name of the sheet the rows came from.
	Sheet   string
	Headers []string
	Rows    [][]Value
}

// New creates a table from headers and rows.
func New(headers []string, rows ...[]Value) *Table {
	return &Table{Headers: headers, Rows: rows}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// IsEmpty reports whether the table holds no data rows.
func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

// Index returns the position of a header by exact name, or -1.
func (t *Table) Index(header string) int {
	if t == nil {
		return -1
	}
	for i, h := range t.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

// Cell returns the value at row r, column c; out of range cells are NA.
func (t *Table) Cell(r, c int) Value {
	if t == nil || r < 0 || r >= len(t.Rows) || c < 0 || c >= len(t.Rows[r]) {
		return NA()
	}
	return t.Rows[r][c]
}

// Column returns every value of column c in row order.
func (t *Table) Column(c int) []Value {
	out := make([]Value, t.Len())
	for r := range out {
		out[r] = t.Cell(r, c)
	}
	return out
}
