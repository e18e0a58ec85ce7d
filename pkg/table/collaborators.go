package table

import "context"

// HeaderStrategy tells a Reader which physical rows form the header.
// Rows are 1-based.
type HeaderStrategy struct {
	// Row is the header row; data starts on the row after the last header row.
	Row int
	// Override, when set, is a second header row whose non-empty cells replace
	// the cells of Row. It covers headers split across two physical rows.
	Override int
}

// HeaderAt uses a single physical header row.
func HeaderAt(row int) HeaderStrategy {
	return HeaderStrategy{Row: row}
}

// HeaderMerged derives the header from two rows, preferring the second when
// its cell is non-empty.
func HeaderMerged(first, second int) HeaderStrategy {
	return HeaderStrategy{Row: first, Override: second}
}

// DataStart returns the 1-based row where data begins.
func (h HeaderStrategy) DataStart() int {
	last := h.Row
	if h.Override > last {
		last = h.Override
	}
	if last < 1 {
		last = 1
	}
	return last + 1
}

// ReadRequest selects a sheet of a workbook.
type ReadRequest struct {
	Path  string
	Sheet string
	// FirstSheetFallback reads the first sheet when Sheet is absent.
	FirstSheetFallback bool
	Header             HeaderStrategy
}

// Reader reads tables from workbooks.
//
// A workbook that does not exist is reported with an error that satisfies
// errors.Is(err, errors.ErrNotFound). A missing or unreadable sheet is not an
// error: Read returns a nil table.
type Reader interface {
	Read(ctx context.Context, req ReadRequest) (*Table, error)
}

// Placement is a cell destined for a 0-based column of an appended row.
type Placement struct {
	Column int
	Value  Value
	Hint   Hint
}

// CreateRequest writes a new workbook holding a single table.
type CreateRequest struct {
	Path  string
	Sheet string
	// HeaderRow is the 1-based row receiving the headers.
	HeaderRow int
	Headers   []string
	Hints     []Hint
	Rows      [][]Value
}

// AppendRequest adds rows below the last used row of an existing sheet
// without touching existing cells.
type AppendRequest struct {
	Path  string
	Sheet string
	Rows  [][]Placement
}

// Writer persists tables. Each call is applied in full or not at all.
type Writer interface {
	Create(ctx context.Context, req CreateRequest) error
	Append(ctx context.Context, req AppendRequest) error
}
