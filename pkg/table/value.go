// Package table defines the typed cell values exchanged between maestro and
// its spreadsheet collaborators, plus the Reader and Writer contracts those
// collaborators implement.
package table

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the type carried by a Value.
type Kind uint8

const (
	// KindNA is an absent value.
	KindNA Kind = iota
	// KindText is free text.
	KindText
	// KindNumber is a decimal number.
	KindNumber
	// KindDate is a calendar date.
	KindDate
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "na"
	}
}

// Value is a single typed cell. The zero Value is NA.
type Value struct {
	kind Kind
	text string
	num  decimal.Decimal
	date time.Time
}

// NA returns the absent value.
func NA() Value {
	return Value{}
}

// Text returns a text value. Blank text is NA.
func Text(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Value{}
	}
	return Value{kind: KindText, text: s}
}

// Number returns a numeric value.
func Number(d decimal.Decimal) Value {
	return Value{kind: KindNumber, num: d}
}

// Float returns a numeric value; NaN and infinities are NA.
func Float(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: decimal.NewFromFloat(f)}
}

// Int returns an integral numeric value.
func Int(i int64) Value {
	return Value{kind: KindNumber, num: decimal.NewFromInt(i)}
}

// Date returns a date value truncated to the calendar day. The zero time is NA.
func Date(t time.Time) Value {
	if t.IsZero() {
		return Value{}
	}
	y, m, d := t.Date()
	return Value{kind: KindDate, date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNA reports whether the value is absent.
func (v Value) IsNA() bool {
	return v.kind == KindNA
}

// Decimal returns the number carried by a numeric value.
func (v Value) Decimal() (decimal.Decimal, bool) {
	if v.kind != KindNumber {
		return decimal.Zero, false
	}
	return v.num, true
}

// Time returns the date carried by a date value.
func (v Value) Time() (time.Time, bool) {
	if v.kind != KindDate {
		return time.Time{}, false
	}
	return v.date, true
}

// String renders the value: "" for NA, ISO dates, shortest decimals.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return v.num.String()
	case KindDate:
		return v.date.Format("2006-01-02")
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.num.Equal(o.num)
	case KindDate:
		return v.date.Equal(o.date)
	default:
		return true
	}
}

// Hint is a set of formatting hints a Writer applies to a cell.
type Hint uint8

const (
	// HintDate renders the cell as day/month/year.
	HintDate Hint = 1 << iota
	// HintPercent stores the cell as a fraction; magnitudes above 1 are divided by 100.
	HintPercent
	// HintCenter centers the cell horizontally.
	HintCenter
)

// Has reports whether h includes every hint in x.
func (h Hint) Has(x Hint) bool {
	return h&x == x
}

// String lists the hints for reports.
func (h Hint) String() string {
	var parts []string
	if h.Has(HintDate) {
		parts = append(parts, "date")
	}
	if h.Has(HintPercent) {
		parts = append(parts, "percentage")
	}
	if h.Has(HintCenter) {
		parts = append(parts, "center")
	}
	return strings.Join(parts, ",")
}

// ParseHint parses a hint name as used in rule files.
func ParseHint(name string) (Hint, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "date":
		return HintDate, true
	case "percentage", "percent":
		return HintPercent, true
	case "center", "centered", "center-aligned":
		return HintCenter, true
	default:
		return 0, false
	}
}

// ParseKind parses a kind name as used in rule files.
func ParseKind(name string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text", "":
		return KindText, true
	case "number", "numeric":
		return KindNumber, true
	case "date":
		return KindDate, true
	default:
		return KindNA, false
	}
}
