package table_test

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/agentstation/maestro/pkg/table"
)

func TestValueConstructors(t *testing.T) {
	tests := []struct {
		name string
		v    table.Value
		kind table.Kind
		str  string
	}{
		{"na", table.NA(), table.KindNA, ""},
		{"blank text", table.Text("   "), table.KindNA, ""},
		{"text", table.Text("Maipú"), table.KindText, "Maipú"},
		{"int", table.Int(42), table.KindNumber, "42"},
		{"float", table.Float(1.5), table.KindNumber, "1.5"},
		{"nan float", table.Float(math.NaN()), table.KindNA, ""},
		{"date", table.Date(time.Date(2024, 1, 15, 13, 4, 0, 0, time.Local)), table.KindDate, "2024-01-15"},
		{"zero date", table.Date(time.Time{}), table.KindNA, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.v.Kind())
			assert.Equal(t, tt.str, tt.v.String())
		})
	}
}

func TestValueEqual(t *testing.T) {
	assert.True(t, table.Int(2).Equal(table.Number(decimal.RequireFromString("2.00"))))
	assert.False(t, table.Int(2).Equal(table.Text("2")))
	assert.True(t, table.NA().Equal(table.Text("")))

	d, ok := table.Float(0.25).Decimal()
	assert.True(t, ok)
	assert.Equal(t, "0.25", d.String())

	_, ok = table.Text("x").Time()
	assert.False(t, ok)
}

func TestHints(t *testing.T) {
	h := table.HintDate | table.HintCenter
	assert.True(t, h.Has(table.HintDate))
	assert.False(t, h.Has(table.HintPercent))
	assert.Equal(t, "date,center", h.String())

	parsed, ok := table.ParseHint("Percentage")
	assert.True(t, ok)
	assert.Equal(t, table.HintPercent, parsed)

	_, ok = table.ParseHint("bold")
	assert.False(t, ok)
}

func TestTableAccessors(t *testing.T) {
	tbl := table.New([]string{"Rut", "DV"},
		[]table.Value{table.Text("1"), table.Text("9")},
		[]table.Value{table.Text("2")},
	)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, 1, tbl.Index("DV"))
	assert.Equal(t, -1, tbl.Index("dv"))
	assert.True(t, tbl.Cell(1, 1).IsNA())
	assert.Len(t, tbl.Column(0), 2)

	var empty *table.Table
	assert.True(t, empty.IsEmpty())
	assert.True(t, empty.Cell(0, 0).IsNA())
}

func TestHeaderStrategy(t *testing.T) {
	assert.Equal(t, 2, table.HeaderAt(1).DataStart())
	assert.Equal(t, 4, table.HeaderMerged(2, 3).DataStart())
	assert.Equal(t, 2, table.HeaderStrategy{}.DataStart())
}
