// Package runs provides the runs command, which lists journaled imports.
package runs

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/agentstation/maestro/cmd/application"
	"github.com/agentstation/maestro/internal/journal"
	"github.com/agentstation/maestro/pkg/report"
)

// NewCommand creates the runs command.
func NewCommand(app application.Application) *cobra.Command {
	var (
		limit int
		all   bool
	)

	cmd := &cobra.Command{
		Use:     "runs",
		GroupID: "management",
		Short:   "List recorded import runs",
		Long: `Runs lists the imports recorded in the run journal, newest first.

The journal is enabled by the journal_path setting or the --journal flag.
By default only runs against the configured master workbook are listed.`,
		Example: `  maestro runs --journal data/journal.db
  maestro runs --all --limit 50 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := app.Runs()
			if err != nil {
				return err
			}
			master := app.Settings().MasterPath
			if all {
				master = ""
			}
			entries, err := log.Recent(cmd.Context(), master, limit)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), report.DetectFormat(app.OutputFormat()), entries)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list")
	cmd.Flags().BoolVar(&all, "all", false, "list runs against every master workbook")
	return cmd
}

func write(w io.Writer, format report.Format, entries []journal.Entry) error {
	switch format {
	case report.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case report.FormatYAML:
		data, err := yaml.MarshalWithOptions(entries, yaml.Indent(2), yaml.IndentSequence(false))
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return report.RenderTable(w, tableData(entries))
	}
}

func tableData(entries []journal.Entry) report.Data {
	data := report.Data{
		Headers: []string{"Started", "Source", "Mode", "Read", "Duplicates", "Admitted", "Rows After", "Status"},
		ColumnAlignment: []report.Align{
			report.AlignLeft, report.AlignLeft, report.AlignLeft,
			report.AlignRight, report.AlignRight, report.AlignRight, report.AlignRight,
			report.AlignLeft,
		},
	}
	for _, e := range entries {
		data.Rows = append(data.Rows, []string{
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.Source,
			e.Mode,
			strconv.Itoa(e.RowsRead),
			strconv.Itoa(e.Duplicates),
			strconv.Itoa(e.Admitted),
			strconv.Itoa(e.RowsAfter),
			status(e),
		})
	}
	return data
}

func status(e journal.Entry) string {
	switch {
	case e.Failed():
		return "failed: " + e.Error
	case e.DryRun:
		return "dry run"
	default:
		return "ok"
	}
}
