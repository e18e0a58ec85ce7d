package xlsx

import (
	"context"
	"os"
	"path/filepath"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/agentstation/maestro/pkg/constants"
	"github.com/agentstation/maestro/pkg/errors"
	"github.com/agentstation/maestro/pkg/logging"
	"github.com/agentstation/maestro/pkg/normalize"
	"github.com/agentstation/maestro/pkg/table"
)

// Writer writes sheets with excelize. Workbooks are saved to a temporary
// file in the target directory and renamed into place, so a failed write
// leaves the previous file untouched.
type Writer struct{}

// NewWriter creates a Writer.
func NewWriter() *Writer {
	return &Writer{}
}

var _ table.Writer = (*Writer)(nil)

var hundred = decimal.NewFromInt(100)

// Create implements table.Writer.
func (w *Writer) Create(ctx context.Context, req table.CreateRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.Sheet == "" {
		return &errors.ValidationError{Field: "sheet", Message: "sheet name is required"}
	}
	headerRow := max(req.HeaderRow, 1)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if first := f.GetSheetName(0); first != req.Sheet {
		if err := f.SetSheetName(first, req.Sheet); err != nil {
			return errors.WrapIO("rename sheet", req.Path, err)
		}
	}

	for ci, h := range req.Headers {
		cell, err := excelize.CoordinatesToCellName(ci+1, headerRow)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(req.Sheet, cell, h); err != nil {
			return errors.WrapIO("write", req.Path, err)
		}
	}

	styles := newCellStyles(f)
	for ri, row := range req.Rows {
		for ci, v := range row {
			var hint table.Hint
			if ci < len(req.Hints) {
				hint = req.Hints[ci]
			}
			if err := setCell(f, styles, req.Sheet, ci+1, headerRow+1+ri, v, hint); err != nil {
				return errors.WrapIO("write", req.Path, err)
			}
		}
	}

	if err := save(f, req.Path); err != nil {
		return err
	}
	logging.FromContext(ctx).Debug().
		Str("path", req.Path).
		Str("sheet", req.Sheet).
		Int("rows", len(req.Rows)).
		Msg("Workbook created")
	return nil
}

// Append implements table.Writer. Rows go below the last used row of the
// sheet; existing cells are never rewritten.
func (w *Writer) Append(ctx context.Context, req table.AppendRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(req.Rows) == 0 {
		return nil
	}
	if _, err := os.Stat(req.Path); err != nil {
		if os.IsNotExist(err) {
			return &errors.NotFoundError{Resource: "workbook", ID: req.Path}
		}
		return errors.WrapIO("stat", req.Path, err)
	}

	f, err := excelize.OpenFile(req.Path)
	if err != nil {
		return errors.WrapIO("open", req.Path, err)
	}
	defer func() { _ = f.Close() }()

	if !slices.Contains(f.GetSheetList(), req.Sheet) {
		return &errors.NotFoundError{Resource: "sheet", ID: req.Sheet}
	}
	existing, err := f.GetRows(req.Sheet)
	if err != nil {
		return errors.WrapIO("read", req.Path, err)
	}
	next := len(existing) + 1

	styles := newCellStyles(f)
	for ri, row := range req.Rows {
		for _, p := range row {
			if p.Column < 0 {
				continue
			}
			if err := setCell(f, styles, req.Sheet, p.Column+1, next+ri, p.Value, p.Hint); err != nil {
				return errors.WrapIO("write", req.Path, err)
			}
		}
	}

	if err := save(f, req.Path); err != nil {
		return err
	}
	logging.FromContext(ctx).Debug().
		Str("path", req.Path).
		Str("sheet", req.Sheet).
		Int("first_row", next).
		Int("rows", len(req.Rows)).
		Msg("Rows appended")
	return nil
}

func setCell(f *excelize.File, styles *cellStyles, sheet string, col, row int, v table.Value, hint table.Hint) error {
	if v.IsNA() {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}

	switch v.Kind() {
	case table.KindDate:
		t, _ := v.Time()
		err = f.SetCellFloat(sheet, cell, normalize.SerialOf(t).InexactFloat64(), -1, 64)
		hint |= table.HintDate
	case table.KindNumber:
		d, _ := v.Decimal()
		if hint.Has(table.HintPercent) && d.Abs().GreaterThan(decimal.NewFromInt(1)) {
			d = d.Div(hundred)
		}
		err = f.SetCellFloat(sheet, cell, d.InexactFloat64(), -1, 64)
	default:
		if hint.Has(table.HintDate) {
			if t, ok := normalize.ParseDate(v); ok {
				err = f.SetCellFloat(sheet, cell, normalize.SerialOf(t).InexactFloat64(), -1, 64)
				break
			}
			// text that is not a date stays text, without a date format
			hint &^= table.HintDate
		}
		err = f.SetCellStr(sheet, cell, v.String())
	}
	if err != nil {
		return err
	}

	id, err := styles.id(hint)
	if err != nil || id == 0 {
		return err
	}
	return f.SetCellStyle(sheet, cell, cell, id)
}

func save(f *excelize.File, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WrapIO("create", dir, err)
	}
	name := tmp.Name()
	defer func() { _ = os.Remove(name) }()

	if _, err := f.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("write", path, err)
	}
	if err := os.Chmod(name, constants.FilePermissions); err != nil {
		return errors.WrapIO("chmod", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		return errors.WrapIO("rename", path, err)
	}
	return nil
}
