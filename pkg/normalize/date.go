package normalize

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agentstation/maestro/pkg/constants"
	"github.com/agentstation/maestro/pkg/table"
)

// headerLayouts are tried first, in order, when a header looks like a date.
var headerLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"2006-01-02",
	"01-02-2006",
	"02-01-06",
	"02/01/06",
}

// dayFirstLayouts is the generic, day-first fallback.
var dayFirstLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"02.01.2006",
	"2/1/06",
	"2-1-06",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2-1-2006 15:04:05",
	"2 Jan 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
}

var (
	// a date needs a separator between numeric parts or a month name
	dateShape = regexp.MustCompile(`^(?:\d{1,4}[-/. ]\S+|[A-Za-z]+\.?\s+\d)`)
	serialish = regexp.MustCompile(`^\d{5}(?:[.,]\d+)?$`)
)

// Serial converts a spreadsheet day serial into a date.
func Serial(days float64) (time.Time, bool) {
	if math.IsNaN(days) || days < 1 || days > 2958465 {
		return time.Time{}, false
	}
	whole := math.Floor(days)
	return constants.ExcelEpoch.AddDate(0, 0, int(whole)), true
}

// ParseDate interprets a cell as a date. Dates pass through, numbers are day
// serials, and text is tried against explicit layouts then day-first layouts.
func ParseDate(v table.Value) (time.Time, bool) {
	switch v.Kind() {
	case table.KindDate:
		return v.Time()
	case table.KindNumber:
		d, _ := v.Decimal()
		return Serial(d.InexactFloat64())
	case table.KindText:
		s := strings.TrimSpace(v.String())
		if serialish.MatchString(s) {
			if d, ok := parseDecimalText(s); ok {
				return Serial(d.InexactFloat64())
			}
		}
		return parseDateText(s)
	}
	return time.Time{}, false
}

// ParseHeaderDate reports whether a header label is a date. Pure numbers are
// never header dates: a header such as "2024" or "45306" is a label.
func ParseHeaderDate(header string) (time.Time, bool) {
	s := strings.TrimSpace(header)
	if s == "" || !dateShape.MatchString(s) {
		return time.Time{}, false
	}
	return parseDateText(s)
}

func parseDateText(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range headerLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateKey renders a date-like cell as YYYY-MM-DD, or "" when it is not a date.
func DateKey(v table.Value) string {
	t, ok := ParseDate(v)
	if !ok {
		return ""
	}
	return t.Format(constants.DateKeyLayout)
}

// SerialOf converts a date into its spreadsheet day serial.
func SerialOf(t time.Time) decimal.Decimal {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return decimal.NewFromInt(int64(day.Sub(constants.ExcelEpoch).Hours() / 24))
}
