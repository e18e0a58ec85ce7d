package preview_test

import (
	"bytes"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/maestro"
	"github.com/agentstation/maestro/cmd/application"
	"github.com/agentstation/maestro/cmd/maestro/cmd/preview"
	"github.com/agentstation/maestro/pkg/report"
	"github.com/agentstation/maestro/pkg/table"
	"github.com/agentstation/maestro/pkg/table/tabletest"
)

func TestMapCommand(t *testing.T) {
	wb := tabletest.New()
	wb.Put("a.xlsx", "Valo",
		[]string{"RUT", "Comuna", "Observaciones"},
		[]table.Value{table.Text("12345678-9"), table.Text("Ñuñoa"), table.Text("x")},
	)
	app := &application.Mock{
		MaestroFunc: func(opts ...maestro.Option) (maestro.Client, error) {
			return maestro.New(append([]maestro.Option{maestro.WithReader(wb), maestro.WithWriter(wb)}, opts...)...)
		},
		OutputFormatFunc: func() string { return "yaml" },
	}

	cmd := preview.NewCommand(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"a.xlsx"})
	require.NoError(t, cmd.Execute())

	var rep report.Report
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &rep))
	assert.True(t, rep.DryRun)
	assert.Nil(t, rep.Counts)
	assert.Equal(t, []report.Header{{Index: 2, Name: "Observaciones"}}, rep.Unused)
	assert.Equal(t, 0, wb.Writes)
}

func TestMapCommandRequiresOneSource(t *testing.T) {
	cmd := preview.NewCommand(&application.Mock{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}
