package xlsx

import (
	"context"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/agentstation/maestro/pkg/errors"
	"github.com/agentstation/maestro/pkg/logging"
	"github.com/agentstation/maestro/pkg/normalize"
	"github.com/agentstation/maestro/pkg/table"
)

// headerDateLayout renders date-valued header cells.
const headerDateLayout = "02-01-2006"

// Reader reads sheets with excelize.
type Reader struct{}

// NewReader creates a Reader.
func NewReader() *Reader {
	return &Reader{}
}

var _ table.Reader = (*Reader)(nil)

// Read implements table.Reader. Numeric cells styled as dates become dates,
// other numeric cells become exact decimals and everything else is text.
// Fully blank data rows are skipped.
func (r *Reader) Read(ctx context.Context, req table.ReadRequest) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx).With().Str("path", req.Path).Logger()

	if _, err := os.Stat(req.Path); err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "workbook", ID: req.Path}
		}
		return nil, errors.WrapIO("stat", req.Path, err)
	}

	f, err := excelize.OpenFile(req.Path)
	if err != nil {
		return nil, errors.WrapIO("open", req.Path, err)
	}
	defer func() { _ = f.Close() }()

	sheet, ok := pickSheet(f.GetSheetList(), req.Sheet, req.FirstSheetFallback)
	if !ok {
		logger.Debug().Str("sheet", req.Sheet).Msg("Sheet not found")
		return nil, nil
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		logger.Warn().Err(err).Str("sheet", sheet).Msg("Sheet unreadable, treating as empty")
		return nil, nil
	}

	styles := newDateStyles(f)
	hs := req.Header
	if hs.Row < 1 {
		hs.Row = 1
	}

	t := &table.Table{Sheet: sheet, Headers: headerCells(styles, sheet, rows, hs)}
	width := len(t.Headers)
	for ri := hs.DataStart() - 1; ri < len(rows); ri++ {
		raw := rows[ri]
		if isBlank(raw) {
			continue
		}
		row := make([]table.Value, len(raw))
		for ci, s := range raw {
			row[ci] = cellValue(styles, sheet, ci+1, ri+1, s)
		}
		width = max(width, len(row))
		t.Rows = append(t.Rows, row)
	}
	for len(t.Headers) < width {
		t.Headers = append(t.Headers, "")
	}

	logger.Debug().Str("sheet", sheet).Int("rows", len(t.Rows)).Int("columns", width).Msg("Sheet read")
	return t, nil
}

func pickSheet(list []string, want string, fallback bool) (string, bool) {
	if want != "" && slices.Contains(list, want) {
		return want, true
	}
	if (want == "" || fallback) && len(list) > 0 {
		return list[0], true
	}
	return "", false
}

// headerCells reads the header row, letting non-empty cells of the override
// row replace it.
func headerCells(styles *dateStyles, sheet string, rows [][]string, hs table.HeaderStrategy) []string {
	read := func(row int) []string {
		if row < 1 || row > len(rows) {
			return nil
		}
		out := make([]string, len(rows[row-1]))
		for ci, s := range rows[row-1] {
			out[ci] = headerText(styles, sheet, ci+1, row, s)
		}
		return out
	}

	headers := read(hs.Row)
	if hs.Override > 0 {
		for ci, s := range read(hs.Override) {
			if strings.TrimSpace(s) == "" {
				continue
			}
			for len(headers) <= ci {
				headers = append(headers, "")
			}
			headers[ci] = s
		}
	}
	return headers
}

func headerText(styles *dateStyles, sheet string, col, row int, raw string) string {
	if v := cellValue(styles, sheet, col, row, raw); v.Kind() == table.KindDate {
		t, _ := v.Time()
		return t.Format(headerDateLayout)
	}
	return raw
}

func cellValue(styles *dateStyles, sheet string, col, row int, raw string) table.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return table.NA()
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return table.Text(raw)
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return table.Text(raw)
	}
	// digits typed as text keep leading zeros
	if typ, err := styles.f.GetCellType(sheet, cell); err == nil &&
		(typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString) {
		return table.Text(raw)
	}
	if styles.isDate(sheet, cell) {
		f, _ := strconv.ParseFloat(s, 64)
		if t, ok := normalize.Serial(f); ok {
			return table.Date(t)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return table.Text(raw)
	}
	return table.Number(d)
}

func isBlank(row []string) bool {
	for _, s := range row {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
