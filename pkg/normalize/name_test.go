package normalize_test

import (
	"math/rand"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/maestro/pkg/normalize"
)

func TestName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  Fecha de Emisión  ", "fecha de emision"},
		{"Dirección", "direccion"},
		{"Fecha   1.er   Aporte", "fecha 1er aporte"},
		{"Fecha 1 er Aporte", "fecha 1er aporte"},
		{"Fecha 1ª cuota", "fecha 1 cuota"},
		{"VPN 2.da fecha", "vpn 2da fecha"},
		{"Monto Crédito ＋ Cap (UF)", "monto credito + cap (uf)"},
		{"Precio −1UF", "precio -1uf"},
		{"Precio －1UF", "precio -1uf"},
		{"Nº Cuotas", "nº cuotas"},
		{"AÑO\tCONTABLE", "ano contable"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize.Name(tt.in))
		})
	}
}

func TestNameIdempotent(t *testing.T) {
	inputs := []string{
		"Fecha 1ª er Aporte",
		"  N°  OP ",
		"1 er",
		"Tasa  Arriendo o Compra",
		"Saldo insoluto Teórico al 31-07-2019",
		"İSTANBUL",
		"１ｅｒ",
		"x 1 ª y",
		"2 . da",
		"Carga financiera/ renta",
		"1ºº",
		"2ª º r.o",
		"1ªª1",
		"3 ª ª . er",
	}
	for _, in := range inputs {
		once := normalize.Name(in)
		assert.Equal(t, once, normalize.Name(once), "input %q", in)
	}
}

func TestNameRepeatedOrdinals(t *testing.T) {
	assert.Equal(t, "1", normalize.Name("1ºº"))
	assert.Equal(t, "2 r.o", normalize.Name("2ª º r.o"))
	assert.Equal(t, "11", normalize.Name("1ªª1"))
	assert.Equal(t, "3er", normalize.Name("3 ª ª . er"))
}

// headerish draws strings from the characters the rewrites react to.
func headerish(values []reflect.Value, r *rand.Rand) {
	alphabet := []rune("12 .ªºerdatovЁé-−＋x\t")
	b := make([]rune, r.Intn(16))
	for i := range b {
		b[i] = alphabet[r.Intn(len(alphabet))]
	}
	values[0] = reflect.ValueOf(string(b))
}

func TestNameIdempotentGenerated(t *testing.T) {
	idempotent := func(s string) bool {
		once := normalize.Name(s)
		return normalize.Name(once) == once
	}
	require.NoError(t, quick.Check(idempotent, &quick.Config{MaxCount: 5000, Values: headerish}))
	require.NoError(t, quick.Check(idempotent, &quick.Config{MaxCount: 2000}))
}

func TestNameOf(t *testing.T) {
	assert.Equal(t, "rut", normalize.NameOf("RUT"))
	assert.Equal(t, "", normalize.NameOf(12345))
	assert.Equal(t, "", normalize.NameOf(nil))
}
