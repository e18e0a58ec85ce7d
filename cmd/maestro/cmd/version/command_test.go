package version_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/maestro/cmd/application"
	"github.com/agentstation/maestro/cmd/maestro/cmd/version"
)

func TestVersionCommand(t *testing.T) {
	app := &application.Mock{
		VersionFunc: func() string { return "1.2.3" },
		CommitFunc:  func() string { return "abc123" },
	}

	tests := []struct {
		name     string
		args     []string
		contains []string
		excludes []string
	}{
		{name: "plain", contains: []string{"maestro 1.2.3"}, excludes: []string{"abc123"}},
		{name: "details", args: []string{"--details"}, contains: []string{"maestro 1.2.3", "commit:   abc123", "built by: unknown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := version.NewCommand(app)
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetArgs(tt.args)
			require.NoError(t, cmd.Execute())
			for _, s := range tt.contains {
				assert.Contains(t, out.String(), s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out.String(), s)
			}
		})
	}
}
