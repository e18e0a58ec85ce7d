package maestro_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/maestro"
	"github.com/agentstation/maestro/internal/journal"
	"github.com/agentstation/maestro/pkg/assemble"
	"github.com/agentstation/maestro/pkg/errors"
	"github.com/agentstation/maestro/pkg/merge"
	"github.com/agentstation/maestro/pkg/report"
	"github.com/agentstation/maestro/pkg/schema"
	"github.com/agentstation/maestro/pkg/table"
	"github.com/agentstation/maestro/pkg/table/tabletest"
)

const (
	sourcePath = "extract.xlsx"
	masterPath = "master.xlsx"
)

var s = schema.Default()

func newClient(t *testing.T, wb *tabletest.Workbooks, opts ...maestro.Option) maestro.Client {
	t.Helper()
	c, err := maestro.New(append([]maestro.Option{
		maestro.WithReader(wb),
		maestro.WithWriter(wb),
		maestro.WithMasterPath(masterPath),
	}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// readMaster returns the master table as written, header on row 2.
func readMaster(t *testing.T, wb *tabletest.Workbooks) *table.Table {
	t.Helper()
	m, err := wb.Read(context.Background(), table.ReadRequest{Path: masterPath, Sheet: "Sheet1", Header: table.HeaderAt(2)})
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

func cell(t *testing.T, m *table.Table, row int, field string) table.Value {
	t.Helper()
	col := m.Index(field)
	require.GreaterOrEqual(t, col, 0, "master has no %q column", field)
	return m.Cell(row, col)
}

func assertNumber(t *testing.T, want string, v table.Value) {
	t.Helper()
	d, ok := v.Decimal()
	require.True(t, ok, "want a number, got %s %q", v.Kind(), v.String())
	assert.True(t, d.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, d)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// putMaster stores a master sheet with a title row, canonical headers on
// row 2 and the given rows.
func putMaster(wb *tabletest.Workbooks, rows ...map[string]table.Value) {
	head := make([]table.Value, s.Len())
	for i, n := range s.Names() {
		head[i] = table.Text(n)
	}
	grid := [][]table.Value{{table.Text("Cartera")}, head}
	for _, fields := range rows {
		r := make([]table.Value, s.Len())
		for name, v := range fields {
			r[s.Index(name)] = v
		}
		grid = append(grid, r)
	}
	wb.PutGrid(masterPath, &tabletest.Sheet{Name: "Sheet1", Grid: grid})
}

func TestImportCreatesMaster(t *testing.T) {
	wb := tabletest.New()
	wb.Put(sourcePath, "Valo",
		[]string{"RUT", "DV", "Fecha de Suscripción", "11-03-2024", "09-02-2024", "Observaciones"},
		[]table.Value{table.Text("12345678"), table.Text("9"), table.Text("15/01/2024"), table.Int(200), table.Int(100), table.Text("x")},
		[]table.Value{table.Text("11111111"), table.Text("1"), table.Text("16/01/2024"), table.Text("300,5"), table.Int(150), table.NA()},
	)
	c := newClient(t, wb)

	res, err := c.Import(context.Background(), maestro.Request{Source: sourcePath})
	require.NoError(t, err)

	assert.Equal(t, merge.ModeCreate, res.Mode)
	assert.True(t, res.Written)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, merge.Stats{RowsRead: 2, Admitted: 2, RowsAfter: 2}, res.Stats)
	assert.Equal(t, 1, wb.Writes)

	m := readMaster(t, wb)
	assert.Equal(t, s.Names(), m.Headers)
	require.Equal(t, 2, m.Len())

	assertNumber(t, "1", cell(t, m, 0, "N°"))
	assertNumber(t, "2", cell(t, m, 1, "N°"))
	assert.Equal(t, "12345678", cell(t, m, 0, "Rut").String())
	assert.Equal(t, "9", cell(t, m, 0, "DV").String())
	assert.True(t, table.Date(date(2024, 1, 15)).Equal(cell(t, m, 0, "Fecha de emisión")))

	// chronological order decides, not column order
	assertNumber(t, "100", cell(t, m, 0, "VPN 1ra fecha"))
	assertNumber(t, "200", cell(t, m, 0, "VPN 2da fecha"))
	assertNumber(t, "199", cell(t, m, 0, "Precio -1UF"))
	assertNumber(t, "299.5", cell(t, m, 1, "Precio -1UF"))
	assertNumber(t, "0", cell(t, m, 0, "Saldo insoluto Teorico al 31-07-2019"))

	require.NotNil(t, res.Report)
	assert.Equal(t, "create", res.Report.Mode)
	assert.Equal(t, []report.Header{{Index: 5, Name: "Observaciones"}}, res.Report.Unused)
}

func TestImportRejectsNormalizedDuplicate(t *testing.T) {
	wb := tabletest.New()
	putMaster(wb, map[string]table.Value{
		"N°":               table.Int(7),
		"Rut":              table.Text("12345678-9"),
		"Fecha de emisión": table.Text("2024-01-15"),
		"Comuna":           table.Text("Ñuñoa"),
	})
	before := wb.Sheet(masterPath, "Sheet1")
	wb.Put(sourcePath, "Valo",
		[]string{"Rut", "Fecha de emisión", "Comuna"},
		[]table.Value{table.Text("12.345.678-9"), table.Text("15/01/2024"), table.Text("Providencia")},
		[]table.Value{table.Text("11.111.111-1"), table.Text("15/01/2024"), table.Text("Maipú")},
	)
	c := newClient(t, wb)

	res, err := c.Import(context.Background(), maestro.Request{Source: sourcePath, BatchDate: "01/03/2024"})
	require.NoError(t, err)

	assert.Equal(t, merge.ModeAppend, res.Mode)
	assert.Equal(t, merge.Stats{RowsBefore: 1, RowsRead: 2, Duplicates: 1, Admitted: 1, RowsAfter: 2}, res.Stats)

	after := wb.Sheet(masterPath, "Sheet1")
	require.Len(t, after.Grid, len(before.Grid)+1)
	for i := range before.Grid {
		assert.Equal(t, before.Grid[i], after.Grid[i], "existing row %d untouched", i)
	}

	m := readMaster(t, wb)
	require.Equal(t, 2, m.Len())
	assert.Equal(t, "11.111.111-1", cell(t, m, 1, "Rut").String(), "identifiers are stored as given")
	assert.Equal(t, "Maipú", cell(t, m, 1, "Comuna").String())
	assertNumber(t, "8", cell(t, m, 1, "N°"))
	assert.True(t, table.Date(date(2024, 3, 1)).Equal(cell(t, m, 1, "Fecha de compra")))
}

func TestImportIsIdempotent(t *testing.T) {
	wb := tabletest.New()
	wb.Put(sourcePath, "Valo",
		[]string{"Rut", "DV", "Fecha de emisión"},
		[]table.Value{table.Text("1"), table.Text("9"), table.Text("2024-01-01")},
		[]table.Value{table.Text("2"), table.Text("7"), table.Text("2024-01-01")},
	)
	c := newClient(t, wb)
	ctx := context.Background()

	first, err := c.Import(ctx, maestro.Request{Source: sourcePath})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Stats.Admitted)
	snapshot := wb.Sheet(masterPath, "Sheet1")

	second, err := c.Import(ctx, maestro.Request{Source: sourcePath})
	require.NoError(t, err)
	assert.Equal(t, merge.ModeAppend, second.Mode)
	assert.Equal(t, merge.Stats{RowsBefore: 2, RowsRead: 2, Duplicates: 2, Admitted: 0, RowsAfter: 2}, second.Stats)
	assert.False(t, second.Written)
	assert.Equal(t, 1, wb.Writes, "nothing appended")
	assert.Equal(t, snapshot.Grid, wb.Sheet(masterPath, "Sheet1").Grid)
}

func TestImportEnrichesFromFirstReferenceRow(t *testing.T) {
	wb := tabletest.New()
	wb.Put(sourcePath, "Valo",
		[]string{"Rut", "DV", "Fecha de emisión"},
		[]table.Value{table.Text("12345678"), table.Text("9"), table.NA()},
		[]table.Value{table.Text("22222222"), table.Text("2"), table.Text("2024-02-01")},
	)
	wb.Put(sourcePath, "Base",
		[]string{"Rut", "Fecha de suscripción", "Tasa anual de emisión", "Tasa anual de endoso"},
		[]table.Value{table.Text("12.345.678-9"), table.Text("10/01/2024"), table.Text("4,5"), table.Text("3,5")},
		[]table.Value{table.Text("12345678-9"), table.Text("11/01/2024"), table.Text("9"), table.Text("8")},
	)
	c := newClient(t, wb)

	res, err := c.Import(context.Background(), maestro.Request{Source: sourcePath})
	require.NoError(t, err)

	m := readMaster(t, wb)
	assert.True(t, table.Date(date(2024, 1, 10)).Equal(cell(t, m, 0, "Fecha de emisión")))
	assertNumber(t, "4.5", cell(t, m, 0, "Tasa Arriendo o Compra"))
	assertNumber(t, "3.5", cell(t, m, 0, "Tasa Venta"))
	assertNumber(t, "1", cell(t, m, 0, "Dif. Tasa"))

	// unmatched rows keep their own values
	assert.True(t, table.Date(date(2024, 2, 1)).Equal(cell(t, m, 1, "Fecha de emisión")))
	assert.True(t, cell(t, m, 1, "Dif. Tasa").IsNA())

	e := res.Report.Enrichment
	require.NotNil(t, e)
	assert.Empty(t, e.Skipped)
	assert.Equal(t, 1, e.Matched)
	assert.Equal(t, 1, e.Unmatched)
	assert.Equal(t, 1, e.DuplicateKeys)
}

func TestImportMissingSource(t *testing.T) {
	wb := tabletest.New()
	c := newClient(t, wb)

	res, err := c.Import(context.Background(), maestro.Request{Source: "nope.xlsx"})
	assert.Nil(t, res)
	assert.True(t, errors.IsNotFound(err))
	var nf *errors.NotFoundError
	assert.ErrorAs(t, err, &nf)
	assert.False(t, wb.Exists(masterPath))
	assert.Zero(t, wb.Writes)
}

func TestImportEmptySource(t *testing.T) {
	wb := tabletest.New()
	wb.Put(sourcePath, "Valo", []string{"Rut", "DV"})
	c := newClient(t, wb)

	res, err := c.Import(context.Background(), maestro.Request{Source: sourcePath})
	require.NoError(t, err)
	assert.Equal(t, merge.Stats{}, res.Stats)
	assert.False(t, res.Written)
	assert.False(t, wb.Exists(masterPath))
}

func TestImportFallsBackToFirstSheet(t *testing.T) {
	wb := tabletest.New()
	wb.Put(sourcePath, "Hoja1",
		[]string{"Rut", "Fecha de emisión"},
		[]table.Value{table.Text("1-9"), table.Text("2024-01-01")},
	)
	c := newClient(t, wb)

	res, err := c.Import(context.Background(), maestro.Request{Source: sourcePath})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Admitted)
	assert.Equal(t, assemble.SkipNoReference, res.Report.Enrichment.Skipped)
}

func TestImportWriteFailureLeavesMaster(t *testing.T) {
	wb := tabletest.New()
	putMaster(wb, map[string]table.Value{"Rut": table.Text("1-9"), "Fecha de emisión": table.Text("2024-01-01")})
	before := wb.Sheet(masterPath, "Sheet1")
	wb.Put(sourcePath, "Valo", []string{"Rut", "Fecha de emisión"}, []table.Value{table.Text("2-7"), table.Text("2024-01-01")})
	wb.FailWrites = errors.New("disk full")
	c := newClient(t, wb)

	_, err := c.Import(context.Background(), maestro.Request{Source: sourcePath})
	var mergeErr *errors.MergeError
	require.ErrorAs(t, err, &mergeErr)
	assert.Equal(t, before, wb.Sheet(masterPath, "Sheet1"))
}

func TestImportDryRun(t *testing.T) {
	wb := tabletest.New()
	wb.Put(sourcePath, "Valo", []string{"Rut", "Fecha de emisión"}, []table.Value{table.Text("1-9"), table.Text("2024-01-01")})
	c := newClient(t, wb)

	res, err := c.Import(context.Background(), maestro.Request{Source: sourcePath, DryRun: true})
	require.NoError(t, err)
	assert.False(t, res.Written)
	assert.Equal(t, 1, res.Stats.Admitted)
	assert.True(t, res.Report.DryRun)
	assert.False(t, wb.Exists(masterPath))
}

func TestImportCanceled(t *testing.T) {
	wb := tabletest.New()
	wb.Put(sourcePath, "Valo", []string{"Rut", "Fecha de emisión"}, []table.Value{table.Text("1-9"), table.Text("2024-01-01")})
	c := newClient(t, wb)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Import(ctx, maestro.Request{Source: sourcePath})
	assert.True(t, errors.IsCanceled(err))
	assert.False(t, wb.Exists(masterPath))
}

func TestHooks(t *testing.T) {
	wb := tabletest.New()
	putMaster(wb, map[string]table.Value{"Rut": table.Text("1-9"), "Fecha de emisión": table.Text("2024-01-01")})
	wb.Put(sourcePath, "Valo",
		[]string{"Rut", "Fecha de emisión"},
		[]table.Value{table.Text("1-9"), table.Text("01/01/2024")},
		[]table.Value{table.Text("2-7"), table.Text("01/01/2024")},
	)
	c := newClient(t, wb)

	var admitted []string
	var duplicates []merge.Key
	var completed *maestro.Result
	c.OnRowAdmitted(func(row assemble.Row) { admitted = append(admitted, row.Get(s, "Rut").String()) })
	c.OnDuplicate(func(_ assemble.Row, key merge.Key) { duplicates = append(duplicates, key) })
	c.OnRunCompleted(func(r *maestro.Result) { completed = r })

	res, err := c.Import(context.Background(), maestro.Request{Source: sourcePath})
	require.NoError(t, err)
	assert.Equal(t, []string{"2-7"}, admitted)
	assert.Equal(t, []merge.Key{{ID: "1-9", Date: "2024-01-01"}}, duplicates)
	assert.Same(t, res, completed)
}

func TestJournalRecordsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	wb := tabletest.New()
	wb.Put(sourcePath, "Valo", []string{"Rut", "Fecha de emisión"}, []table.Value{table.Text("1-9"), table.Text("2024-01-01")})

	c, err := maestro.New(maestro.WithReader(wb), maestro.WithWriter(wb), maestro.WithMasterPath(masterPath), maestro.WithJournal(path))
	require.NoError(t, err)
	_, err = c.Import(context.Background(), maestro.Request{Source: sourcePath, BatchDate: "2024-03-01"})
	require.NoError(t, err)
	_, err = c.Import(context.Background(), maestro.Request{Source: "missing.xlsx"})
	require.Error(t, err)
	require.NoError(t, c.Close())

	j, err := journal.Open(path)
	require.NoError(t, err)
	defer j.Close()

	entries, err := j.Recent(context.Background(), masterPath, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Failed())
	assert.Equal(t, "missing.xlsx", entries[0].Source)
	assert.Equal(t, "create", entries[1].Mode)
	assert.Equal(t, 1, entries[1].Admitted)
	assert.Equal(t, "2024-03-01", entries[1].BatchDate)
}

func TestPreview(t *testing.T) {
	wb := tabletest.New()
	wb.Put(sourcePath, "Valo",
		[]string{"RUT", "DV", "Fecha de Suscripción", "09-02-2024", "11-03-2024"},
		[]table.Value{table.Text("12345678"), table.Text("9"), table.Text("15/01/2024"), table.Int(1), table.Int(2)},
	)
	c := newClient(t, wb)

	rep, err := c.Preview(context.Background(), sourcePath)
	require.NoError(t, err)
	assert.True(t, rep.DryRun)
	assert.Nil(t, rep.Counts)
	assert.Empty(t, rep.Unused)
	assert.Zero(t, wb.Writes)

	status := map[string]report.Field{}
	for _, f := range rep.Fields {
		status[f.Field] = f
	}
	assert.Equal(t, "RUT", status["Rut"].Header)
	assert.Equal(t, "DV", status["DV"].Header)
	assert.Equal(t, "09-02-2024", status["VPN 1ra fecha"].Header)
	assert.Equal(t, "11-03-2024", status["VPN 2da fecha"].Header)

	_, err = c.Preview(context.Background(), "nope.xlsx")
	assert.True(t, errors.IsNotFound(err))
}

func TestNewOptions(t *testing.T) {
	_, err := maestro.New(maestro.WithMasterHeaderRow(0))
	assert.True(t, errors.IsValidationError(err))

	_, err = maestro.New(maestro.WithReader(nil))
	assert.True(t, errors.IsValidationError(err))

	_, err = maestro.New(maestro.WithRulesFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.True(t, errors.IsNotFound(err))

	c, err := maestro.New()
	require.NoError(t, err)
	assert.Equal(t, schema.Default().Len(), c.Schema().Len())
	assert.NoError(t, c.Close())
}
