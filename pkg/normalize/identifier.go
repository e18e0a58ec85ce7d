package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/agentstation/maestro/pkg/constants"
	"github.com/agentstation/maestro/pkg/table"
)

// Missing is what an absent identifier normalizes to.
const Missing = constants.MissingIdentifier

var (
	// 12.345.678, 12 345 678, 12,345,678 and the same followed by -DV
	groupedDigits = regexp.MustCompile(`^\d{1,3}(?:[.,\s]\d{3})+(?:\s*-\s*[0-9kK])?$`)
	// 12345678-9, 12345678 - k
	embeddedCheck = regexp.MustCompile(`^(\d+)\s*-\s*([0-9kK])$`)
	// 12345678.0
	integralFloat = regexp.MustCompile(`^(\d+)\.0+$`)
	// a PersonKey carrying its check digit
	checkedKey = regexp.MustCompile(`^(\d+)-[0-9K]$`)
)

// Identifier converts an identifier cell into its canonical string.
// Integral numbers render as digits, grouping punctuation is removed from
// digit strings, other text is trimmed, and an absent value becomes Missing.
func Identifier(v table.Value) string {
	switch v.Kind() {
	case table.KindNA:
		return Missing
	case table.KindNumber:
		d, _ := v.Decimal()
		if d.Equal(d.Truncate(0)) {
			return d.Truncate(0).String()
		}
		return d.String()
	}
	return identifierText(strings.TrimSpace(v.String()))
}

func identifierText(s string) string {
	switch {
	case s == "":
		return Missing
	case integralFloat.MatchString(s):
		return integralFloat.FindStringSubmatch(s)[1]
	case groupedDigits.MatchString(s):
		s = strings.Map(func(r rune) rune {
			switch r {
			case '.', ',', ' ', '\t', ' ':
				return -1
			}
			return r
		}, s)
		return strings.ToUpper(s)
	case embeddedCheck.MatchString(s):
		m := embeddedCheck.FindStringSubmatch(s)
		return m[1] + "-" + strings.ToUpper(m[2])
	}
	return s
}

// CheckDigit canonicalizes a check digit cell: "9", 9.0 -> "9"; "k" -> "K".
// Absent or malformed digits return "".
func CheckDigit(v table.Value) string {
	s := Identifier(v)
	if s == Missing {
		return ""
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 1 || !strings.ContainsAny(s, "0123456789K") {
		return ""
	}
	return s
}

// CompositeKey joins an identifier and its separate check digit as
// "<digits>-<CHECKDIGIT>". If either half is missing the key is "", which
// never matches anything.
func CompositeKey(id, dv table.Value) string {
	digits := digitsOf(Identifier(id))
	check := CheckDigit(dv)
	if digits == "" || check == "" {
		return ""
	}
	return digits + "-" + check
}

// PersonKey is the identity used for joins and duplicate detection.
// An identifier that already embeds its check digit is used as is; a bare
// identifier is combined with dv when dv is present; otherwise the plain
// identifier is used. Missing identifiers yield "".
func PersonKey(id, dv table.Value) string {
	s := Identifier(id)
	if s == Missing {
		return ""
	}
	if m := embeddedCheck.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + strings.ToUpper(m[2])
	}
	if !dv.IsNA() {
		if key := CompositeKey(id, dv); key != "" {
			return key
		}
	}
	return s
}

// KeyBase returns the identifier digits of a person key that carries a check
// digit: "12345678-9" -> "12345678", true. Keys without one return false.
func KeyBase(key string) (string, bool) {
	m := checkedKey.FindStringSubmatch(key)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func digitsOf(s string) string {
	if s == Missing {
		return ""
	}
	if m := embeddedCheck.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return s
}

// Decimal parses a numeric cell best-effort. Text accepts a decimal comma
// ("1234,5"), grouped thousands in either convention ("1.234,5", "1,234.5"),
// surrounding currency or percent signs and spaces.
func Decimal(v table.Value) (decimal.Decimal, bool) {
	switch v.Kind() {
	case table.KindNumber:
		return v.Decimal()
	case table.KindText:
		return parseDecimalText(v.String())
	}
	return decimal.Zero, false
}

func parseDecimalText(s string) (decimal.Decimal, bool) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', ' ', '$', '%':
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "UF"), "uf")
	if s == "" {
		return decimal.Zero, false
	}

	dots, commas := strings.Count(s, "."), strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas == 1:
		s = strings.Replace(s, ",", ".", 1)
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
