// Package preview provides the map command, which shows how a source
// workbook would be mapped without touching the master.
package preview

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/maestro/cmd/application"
	"github.com/agentstation/maestro/pkg/report"
)

// NewCommand creates the map command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "map <source>",
		GroupID: "core",
		Short:   "Show how a source workbook maps onto the canonical fields",
		Long: `Map matches the headers of a source workbook against the canonical fields
and reports which source column feeds each field, which date columns were
chosen, how the reference sheet joined and which headers went unused.

The master workbook is neither read nor written.`,
		Example: `  maestro map extracts/2024-03.xlsx
  maestro map -o yaml extracts/2024-03.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Maestro()
			if err != nil {
				return err
			}
			rep, err := client.Preview(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return report.NewFormatter(report.DetectFormat(app.OutputFormat())).Format(cmd.OutOrStdout(), rep)
		},
	}
}
