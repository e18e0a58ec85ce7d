// Package importer provides the import command.
package importer

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/maestro"
	"github.com/agentstation/maestro/cmd/application"
	"github.com/agentstation/maestro/pkg/report"
)

// NewCommand creates the import command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		batchDate string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:     "import <source>...",
		GroupID: "core",
		Short:   "Fold source workbooks into the master workbook",
		Long: `Import reads the primary sheet of each source workbook, maps its headers
onto the canonical fields and appends the rows that are not yet in the
master. Sources are imported in the order given, one run each.

The master workbook is created when it does not exist. Existing master
rows are never modified.`,
		Example: `  maestro import extracts/2024-03.xlsx
  maestro import -m data/master.xlsx --batch-date 01/03/2024 a.xlsx b.xlsx
  maestro import --dry-run -o json extracts/2024-03.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := app.Maestro()
			if err != nil {
				return err
			}
			formatter := report.NewFormatter(report.DetectFormat(app.OutputFormat()))

			for _, source := range args {
				res, err := client.Import(cmd.Context(), maestro.Request{
					Source:    source,
					BatchDate: batchDate,
					DryRun:    dryRun,
				})
				if err != nil {
					return err
				}
				if res.Report == nil {
					cmd.PrintErrf("%s: no data rows, master left untouched\n", source)
					continue
				}
				if err := formatter.Format(cmd.OutOrStdout(), res.Report); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&batchDate, "batch-date", "b", "", "date stamped on every imported row (dd/mm/yyyy)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan the import without writing the master")
	return cmd
}
