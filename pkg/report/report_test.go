package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/maestro/pkg/assemble"
	"github.com/agentstation/maestro/pkg/mapper"
	"github.com/agentstation/maestro/pkg/merge"
	"github.com/agentstation/maestro/pkg/report"
	"github.com/agentstation/maestro/pkg/schema"
	"github.com/agentstation/maestro/pkg/table"
)

func build(t *testing.T) *report.Report {
	t.Helper()
	s := schema.Default()
	src := table.New(
		[]string{"RUT", "DV", "Fecha de Suscripción", "09-02-2024", "11-03-2024", "Observaciones", ""},
		[]table.Value{table.Text("12345678"), table.Text("9"), table.Text("15/01/2024"), table.Int(10), table.Int(11), table.NA(), table.NA()},
	)
	m, err := mapper.New(s)
	require.NoError(t, err)
	d := m.Map(src.Headers)
	a, err := assemble.New(s)
	require.NoError(t, err)
	res, err := a.Assemble(context.Background(), src, d, nil)
	require.NoError(t, err)
	return report.Build(s, d, res).WithCounts(merge.ModeCreate, merge.Stats{RowsRead: 1, Admitted: 1, RowsAfter: 1})
}

func field(t *testing.T, r *report.Report, name string) report.Field {
	t.Helper()
	for _, f := range r.Fields {
		if f.Field == name {
			return f
		}
	}
	t.Fatalf("field %q not in report", name)
	return report.Field{}
}

func TestBuild(t *testing.T) {
	r := build(t)
	require.Len(t, r.Fields, schema.Default().Len())

	rut := field(t, r, "Rut")
	assert.Equal(t, report.StatusMapped, rut.Status)
	assert.Equal(t, "exact", rut.Rule)
	assert.Equal(t, "RUT", rut.Header)
	require.NotNil(t, rut.Column)
	assert.Equal(t, 0, *rut.Column)

	emision := field(t, r, "Fecha de emisión")
	assert.Equal(t, report.StatusMapped, emision.Status)
	assert.Equal(t, "variant", emision.Rule)
	assert.Equal(t, "reference: Fecha de suscripción", emision.Note)

	assert.Equal(t, report.StatusReference, field(t, r, "Tasa Venta").Status)
	assert.Equal(t, report.StatusComputed, field(t, r, "ID Blotter").Status)
	assert.Equal(t, "leading digits of N° OP", field(t, r, "ID Blotter").Note)
	assert.Equal(t, "Tasa Arriendo o Compra - Tasa Venta", field(t, r, "Dif. Tasa").Note)
	assert.Equal(t, report.StatusSequence, field(t, r, "N°").Status)
	assert.Equal(t, report.StatusBatch, field(t, r, "Fecha de compra").Status)
	assert.Equal(t, report.StatusUnmapped, field(t, r, "Comuna").Status)

	vpn := field(t, r, "VPN 1ra fecha")
	assert.Equal(t, report.StatusDate, vpn.Status)
	assert.Equal(t, "09-02-2024", vpn.Header)
	assert.Equal(t, "11-03-2024", field(t, r, "Precio -1UF").Header)

	assert.Equal(t, []report.Header{{Index: 5, Name: "Observaciones"}, {Index: 6, Name: ""}}, r.Unused)
	require.NotNil(t, r.Enrichment)
	assert.NotEmpty(t, r.Enrichment.Skipped)
	assert.Equal(t, "create", r.Mode)
	assert.Contains(t, fieldNames(r.Unmapped()), "Comuna")
}

func TestBuildWithoutAssembly(t *testing.T) {
	s := schema.Default()
	m, err := mapper.New(s)
	require.NoError(t, err)
	r := report.Build(s, m.Map([]string{"Rut", "01-01-2024"}), nil)

	assert.Equal(t, report.StatusDate, field(t, r, "VPN 1ra fecha").Status)
	assert.Equal(t, report.StatusNoDate, field(t, r, "VPN 2da fecha").Status)
	assert.Empty(t, r.Unused)
	assert.Nil(t, r.Enrichment)
	assert.Nil(t, r.Counts)
}

func fieldNames(fields []report.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Field
	}
	return out
}

func TestFormatters(t *testing.T) {
	r := build(t)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, report.NewFormatter(report.FormatJSON).Format(&buf, r))
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "create", decoded["mode"])
		counts := decoded["counts"].(map[string]any)
		assert.EqualValues(t, 1, counts["admitted"])
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, report.NewFormatter(report.FormatYAML).Format(&buf, r))
		var decoded report.Report
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, r.Fields, decoded.Fields)
		assert.Equal(t, r.Counts, decoded.Counts)
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, report.NewFormatter(report.FormatTable).Format(&buf, r))
		out := buf.String()
		for _, want := range []string{"Canonical fields", "Unused source headers", "Observaciones", "(blank)", "Counts", "Rows After", "Date Column"} {
			assert.Contains(t, out, want)
		}
	})
}

func TestParseFormat(t *testing.T) {
	f, err := report.ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, report.FormatYAML, f)

	_, err = report.ParseFormat("xml")
	assert.Error(t, err)

	assert.Equal(t, report.FormatJSON, report.DetectFormat("json"))
}
