// Package tabletest provides an in-memory workbook implementing the table
// Reader and Writer contracts, for tests and dry runs.
package tabletest

import (
	"context"
	"sync"

	"github.com/agentstation/maestro/pkg/errors"
	"github.com/agentstation/maestro/pkg/table"
)

// Sheet is a physical grid of cells; Grid[0] is row 1.
type Sheet struct {
	Name  string
	Grid  [][]table.Value
	Hints map[[2]int]table.Hint
}

// Workbooks is an in-memory set of workbooks keyed by path.
type Workbooks struct {
	mu    sync.RWMutex
	books map[string][]*Sheet

	// FailWrites makes every Create and Append return this error.
	FailWrites error
	// Writes counts successful Create and Append calls.
	Writes int
}

// New creates an empty set of workbooks.
func New() *Workbooks {
	return &Workbooks{books: make(map[string][]*Sheet)}
}

// Put stores a sheet whose first row is the header row.
func (w *Workbooks) Put(path, sheet string, headers []string, rows ...[]table.Value) {
	grid := make([][]table.Value, 0, len(rows)+1)
	head := make([]table.Value, len(headers))
	for i, h := range headers {
		head[i] = table.Text(h)
	}
	grid = append(grid, head)
	for _, r := range rows {
		grid = append(grid, append([]table.Value(nil), r...))
	}
	w.PutGrid(path, &Sheet{Name: sheet, Grid: grid})
}

// PutGrid stores a raw sheet, replacing a sheet with the same name.
func (w *Workbooks) PutGrid(path string, sheet *Sheet) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sheets := w.books[path]
	for i, s := range sheets {
		if s.Name == sheet.Name {
			sheets[i] = sheet
			return
		}
	}
	w.books[path] = append(sheets, sheet)
}

// Exists reports whether a workbook is stored at path.
func (w *Workbooks) Exists(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.books[path]
	return ok
}

// Sheet returns a copy of a stored sheet, or nil.
func (w *Workbooks) Sheet(path, name string) *Sheet {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := w.find(path, name, true)
	if s == nil {
		return nil
	}
	return s.clone()
}

// Read implements table.Reader.
func (w *Workbooks) Read(_ context.Context, req table.ReadRequest) (*table.Table, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if _, ok := w.books[req.Path]; !ok {
		return nil, errors.NewNotFoundError("workbook", req.Path)
	}
	s := w.find(req.Path, req.Sheet, req.FirstSheetFallback)
	if s == nil {
		return nil, nil
	}

	header := req.Header
	if header.Row < 1 {
		header.Row = 1
	}
	headers := rowText(s.Grid, header.Row-1)
	if header.Override > 0 {
		for i, h := range rowText(s.Grid, header.Override-1) {
			if h == "" {
				continue
			}
			for len(headers) <= i {
				headers = append(headers, "")
			}
			headers[i] = h
		}
	}

	t := &table.Table{Sheet: s.Name, Headers: headers}
	for r := header.DataStart() - 1; r < len(s.Grid); r++ {
		if blank(s.Grid[r]) {
			continue
		}
		t.Rows = append(t.Rows, append([]table.Value(nil), s.Grid[r]...))
	}
	return t, nil
}

// Create implements table.Writer.
func (w *Workbooks) Create(_ context.Context, req table.CreateRequest) error {
	if w.FailWrites != nil {
		return w.FailWrites
	}
	headerRow := req.HeaderRow
	if headerRow < 1 {
		headerRow = 1
	}
	sheet := &Sheet{Name: req.Sheet, Hints: make(map[[2]int]table.Hint)}
	sheet.Grid = make([][]table.Value, headerRow-1)
	head := make([]table.Value, len(req.Headers))
	for i, h := range req.Headers {
		head[i] = table.Text(h)
	}
	sheet.Grid = append(sheet.Grid, head)
	for _, r := range req.Rows {
		row := len(sheet.Grid)
		sheet.Grid = append(sheet.Grid, append([]table.Value(nil), r...))
		for c := range r {
			if c < len(req.Hints) && req.Hints[c] != 0 {
				sheet.Hints[[2]int{row, c}] = req.Hints[c]
			}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.books[req.Path] = []*Sheet{sheet}
	w.Writes++
	return nil
}

// Append implements table.Writer.
func (w *Workbooks) Append(_ context.Context, req table.AppendRequest) error {
	if w.FailWrites != nil {
		return w.FailWrites
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.books[req.Path]; !ok {
		return errors.NewNotFoundError("workbook", req.Path)
	}
	s := w.find(req.Path, req.Sheet, true)
	if s == nil {
		return errors.NewNotFoundError("sheet", req.Sheet)
	}
	if s.Hints == nil {
		s.Hints = make(map[[2]int]table.Hint)
	}

	last := len(s.Grid)
	for last > 0 && blank(s.Grid[last-1]) {
		last--
	}
	s.Grid = s.Grid[:last]
	for _, placements := range req.Rows {
		row := make([]table.Value, 0)
		for _, p := range placements {
			for len(row) <= p.Column {
				row = append(row, table.NA())
			}
			row[p.Column] = p.Value
			if p.Hint != 0 {
				s.Hints[[2]int{len(s.Grid), p.Column}] = p.Hint
			}
		}
		s.Grid = append(s.Grid, row)
	}
	w.Writes++
	return nil
}

func (w *Workbooks) find(path, name string, fallback bool) *Sheet {
	sheets := w.books[path]
	for _, s := range sheets {
		if s.Name == name {
			return s
		}
	}
	if fallback && len(sheets) > 0 {
		return sheets[0]
	}
	return nil
}

func (s *Sheet) clone() *Sheet {
	out := &Sheet{Name: s.Name, Grid: make([][]table.Value, len(s.Grid)), Hints: make(map[[2]int]table.Hint, len(s.Hints))}
	for i, r := range s.Grid {
		out.Grid[i] = append([]table.Value(nil), r...)
	}
	for k, v := range s.Hints {
		out.Hints[k] = v
	}
	return out
}

func rowText(grid [][]table.Value, r int) []string {
	if r < 0 || r >= len(grid) {
		return nil
	}
	out := make([]string, len(grid[r]))
	for i, v := range grid[r] {
		out[i] = v.String()
	}
	return out
}

func blank(row []table.Value) bool {
	for _, v := range row {
		if !v.IsNA() {
			return false
		}
	}
	return true
}

var (
	_ table.Reader = (*Workbooks)(nil)
	_ table.Writer = (*Workbooks)(nil)
)
