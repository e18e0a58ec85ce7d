package maestro

import (
	"context"

	"github.com/agentstation/maestro/pkg/errors"
	"github.com/agentstation/maestro/pkg/logging"
	"github.com/agentstation/maestro/pkg/report"
)

// Compile-time interface check to ensure proper implementation.
var _ Previewer = (*client)(nil)

// Previewer reports how a source would be mapped.
type Previewer interface {
	Preview(ctx context.Context, source string) (*report.Report, error)
}

// Preview maps and assembles a source workbook without reading or writing
// the master. The report carries no counts.
func (c *client) Preview(ctx context.Context, source string) (*report.Report, error) {
	ctx = c.runContext(ctx, "", source)

	src, err := c.readSource(ctx, source)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, &errors.NotFoundError{Resource: "sheet", ID: c.options.sourceSheet}
	}

	d := c.mapper.Map(src.Headers)
	ref := c.readReference(ctx, source)
	res, err := c.assembler.Assemble(ctx, src, d, ref)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug().Int("rows", len(res.Rows)).Msg("Preview assembled")

	rep := report.Build(c.schema, d, res)
	rep.Source = source
	rep.DryRun = true
	return rep, nil
}
