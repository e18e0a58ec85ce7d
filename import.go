package maestro

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agentstation/maestro/internal/journal"
	"github.com/agentstation/maestro/pkg/errors"
	"github.com/agentstation/maestro/pkg/logging"
	"github.com/agentstation/maestro/pkg/merge"
	"github.com/agentstation/maestro/pkg/report"
)

// Compile-time interface check to ensure proper implementation.
var _ Importer = (*client)(nil)

// Importer folds source workbooks into the master table.
type Importer interface {
	Import(ctx context.Context, req Request) (*Result, error)
}

// Request describes one import run.
type Request struct {
	// Source is the workbook to import. It must exist.
	Source string
	// Master is the master workbook; empty uses the configured default.
	Master string
	// BatchDate is stamped on every admitted row. It is stored as a date
	// when it parses as one, else as literal text.
	BatchDate string
	// DryRun plans the merge without writing.
	DryRun bool
}

// Result is the outcome of a run.
type Result struct {
	RunID  string
	Mode   merge.Mode
	Stats  merge.Stats
	Report *report.Report
	// Written is false for dry runs and runs with nothing to import.
	Written bool
}

// Import runs the pipeline for one source workbook. A missing source is a
// NotFoundError and nothing is read or written. A source without data rows
// succeeds with zero counts and leaves the master untouched. Otherwise the
// master is written at most once.
func (c *client) Import(ctx context.Context, req Request) (res *Result, err error) {
	runID := uuid.NewString()
	master := req.Master
	if master == "" {
		master = c.options.masterPath
	}
	ctx = c.runContext(ctx, runID, req.Source)
	logger := logging.FromContext(ctx)
	started := time.Now()

	defer func() {
		c.record(ctx, runID, started, req, master, res, err)
	}()

	src, err := c.readSource(ctx, req.Source)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, err
		}
		return nil, errors.WrapMerge(req.Source, master, err)
	}
	if src.IsEmpty() {
		logger.Warn().Msg("Source has no data rows, master left untouched")
		return &Result{RunID: runID}, nil
	}
	ref := c.readReference(ctx, req.Source)

	d := c.mapper.Map(src.Headers)
	logger.Debug().
		Int("mapped", len(d.Mapped())).
		Int("unmapped", len(d.Unmapped())).
		Msg("Headers mapped")

	assembled, err := c.assembler.Assemble(ctx, src, d, ref)
	if err != nil {
		return nil, errors.WrapMerge(req.Source, master, err)
	}

	existing, err := c.readMaster(ctx, master)
	if err != nil {
		return nil, errors.WrapMerge(req.Source, master, err)
	}

	engine, err := merge.New(c.schema, merge.WithBatchDate(req.BatchDate))
	if err != nil {
		return nil, err
	}
	plan, err := engine.Merge(existing, assembled.Rows)
	if err != nil {
		return nil, errors.WrapMerge(req.Source, master, err)
	}

	rep := report.Build(c.schema, d, assembled).WithCounts(plan.Mode, plan.Stats)
	rep.Source = req.Source
	rep.Master = master
	rep.DryRun = req.DryRun
	res = &Result{RunID: runID, Mode: plan.Mode, Stats: plan.Stats, Report: rep}

	if req.DryRun {
		logger.Info().Str("mode", plan.Mode.String()).Int("admitted", plan.Stats.Admitted).Msg("Dry run, master left untouched")
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapMerge(req.Source, master, errors.Join(errors.ErrCanceled, err))
	}

	if err := c.persist(ctx, plan, master, existing); err != nil {
		return nil, errors.WrapMerge(req.Source, master, err)
	}
	res.Written = plan.Mode == merge.ModeCreate || len(plan.Admitted) > 0

	logger.Info().
		Str("mode", plan.Mode.String()).
		Int("rows_before", plan.Stats.RowsBefore).
		Int("rows_read", plan.Stats.RowsRead).
		Int("duplicates", plan.Stats.Duplicates).
		Int("admitted", plan.Stats.Admitted).
		Int("rows_after", plan.Stats.RowsAfter).
		Msg("Import complete")

	c.hooks.trigger(res, plan, assembled.Rows, engine.Key)
	return res, nil
}

// record writes the run to the journal. Journal failures never fail a run.
func (c *client) record(ctx context.Context, runID string, started time.Time, req Request, master string, res *Result, runErr error) {
	if c.journal == nil {
		return
	}
	e := journal.Entry{
		RunID:     runID,
		StartedAt: started,
		Source:    req.Source,
		Master:    master,
		BatchDate: req.BatchDate,
		DryRun:    req.DryRun,
	}
	if res != nil {
		if res.Report != nil {
			e.Mode = res.Mode.String()
		}
		e.RowsBefore = res.Stats.RowsBefore
		e.RowsRead = res.Stats.RowsRead
		e.Duplicates = res.Stats.Duplicates
		e.Admitted = res.Stats.Admitted
		e.RowsAfter = res.Stats.RowsAfter
	}
	if runErr != nil {
		e.Error = runErr.Error()
	}
	// a canceled run still gets recorded
	if err := c.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("Failed to record run")
	}
}
