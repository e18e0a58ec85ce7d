// Package xlsx reads and writes maestro tables in Excel workbooks.
package xlsx

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/agentstation/maestro/pkg/constants"
	"github.com/agentstation/maestro/pkg/table"
)

// builtInDateFormats are the excelize built-in number formats that render dates.
var builtInDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// isDateFormat reports whether a custom number format renders a date.
func isDateFormat(code string) bool {
	var b strings.Builder
	quoted := false
	bracket := false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			bracket = true
		case r == ']':
			bracket = false
		case bracket:
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	return strings.ContainsRune(s, 'y') || strings.ContainsRune(s, 'd')
}

// dateStyles caches whether a style id renders dates.
type dateStyles struct {
	f     *excelize.File
	cache map[int]bool
}

func newDateStyles(f *excelize.File) *dateStyles {
	return &dateStyles{f: f, cache: map[int]bool{}}
}

func (d *dateStyles) isDate(sheet, cell string) bool {
	id, err := d.f.GetCellStyle(sheet, cell)
	if err != nil || id == 0 {
		return false
	}
	if v, ok := d.cache[id]; ok {
		return v
	}
	style, err := d.f.GetStyle(id)
	v := err == nil && style != nil &&
		(builtInDateFormats[style.NumFmt] || (style.CustomNumFmt != nil && isDateFormat(*style.CustomNumFmt)))
	d.cache[id] = v
	return v
}

// cellStyles creates one excelize style per hint combination.
type cellStyles struct {
	f     *excelize.File
	cache map[table.Hint]int
}

func newCellStyles(f *excelize.File) *cellStyles {
	return &cellStyles{f: f, cache: map[table.Hint]int{}}
}

// id returns the style for a hint set, 0 when no styling is needed.
func (c *cellStyles) id(h table.Hint) (int, error) {
	if h == 0 {
		return 0, nil
	}
	if id, ok := c.cache[h]; ok {
		return id, nil
	}
	style := &excelize.Style{}
	if h.Has(table.HintDate) {
		code := constants.DisplayDateNumFmt
		style.CustomNumFmt = &code
	} else if h.Has(table.HintPercent) {
		style.NumFmt = constants.PercentNumFmt
	}
	if h.Has(table.HintCenter) {
		style.Alignment = &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	}
	id, err := c.f.NewStyle(style)
	if err != nil {
		return 0, err
	}
	c.cache[h] = id
	return id, nil
}
