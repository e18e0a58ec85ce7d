package maestro

import (
	"context"

	"github.com/agentstation/maestro/pkg/errors"
	"github.com/agentstation/maestro/pkg/logging"
	"github.com/agentstation/maestro/pkg/merge"
	"github.com/agentstation/maestro/pkg/table"
)

// readSource reads the primary sheet, falling back to the first sheet. A nil
// table means the workbook holds nothing to import.
func (c *client) readSource(ctx context.Context, path string) (*table.Table, error) {
	return c.options.reader.Read(logging.WithSheet(ctx, c.options.sourceSheet), table.ReadRequest{
		Path:               path,
		Sheet:              c.options.sourceSheet,
		FirstSheetFallback: true,
		Header:             c.options.sourceHeader,
	})
}

// readReference reads the reference sheet. Any problem is logged and
// enrichment is skipped.
func (c *client) readReference(ctx context.Context, path string) *table.Table {
	logger := logging.FromContext(ctx)
	ref, err := c.options.reader.Read(ctx, table.ReadRequest{
		Path:   path,
		Sheet:  c.options.referenceSheet,
		Header: table.HeaderAt(1),
	})
	if err != nil {
		logger.Warn().Err(err).Str("sheet", c.options.referenceSheet).Msg("Reference sheet unreadable, skipping enrichment")
		return nil
	}
	if ref == nil {
		logger.Debug().Str("sheet", c.options.referenceSheet).Msg("No reference sheet")
	}
	return ref
}

// readMaster reads the master table. It returns nil, nil when the master
// workbook does not exist yet.
func (c *client) readMaster(ctx context.Context, path string) (*table.Table, error) {
	existing, err := c.options.reader.Read(ctx, table.ReadRequest{
		Path:               path,
		Sheet:              c.options.masterSheet,
		FirstSheetFallback: true,
		Header:             table.HeaderAt(c.options.masterHeaderRow),
	})
	if errors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// creating would overwrite a workbook we could not read
		return nil, &errors.ValidationError{Field: "master", Value: path, Message: "workbook has no readable sheet"}
	}
	return existing, nil
}

// persist writes the plan in a single writer call.
func (c *client) persist(ctx context.Context, plan *merge.Plan, master string, existing *table.Table) error {
	switch plan.Mode {
	case merge.ModeCreate:
		return c.options.writer.Create(ctx, plan.CreateRequest(c.schema, master, c.options.masterSheet, c.options.masterHeaderRow))
	default:
		if len(plan.Admitted) == 0 {
			logging.FromContext(ctx).Debug().Msg("Nothing to append")
			return nil
		}
		return c.options.writer.Append(ctx, plan.AppendRequest(c.schema, master, existing.Sheet))
	}
}
