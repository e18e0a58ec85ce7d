package maestro

import (
	"sync"

	"github.com/agentstation/maestro/pkg/assemble"
	"github.com/agentstation/maestro/pkg/merge"
)

// Hook function types for run events
type (
	// RowAdmittedHook is called for every row written to the master table
	RowAdmittedHook func(row assemble.Row)

	// DuplicateHook is called for every candidate rejected as a duplicate
	DuplicateHook func(row assemble.Row, key merge.Key)

	// RunCompletedHook is called once a run has been written
	RunCompletedHook func(result *Result)
)

// Hooks registers callbacks fired after a successful, non-dry run.
type Hooks interface {
	OnRowAdmitted(RowAdmittedHook)
	OnDuplicate(DuplicateHook)
	OnRunCompleted(RunCompletedHook)
}

// hooks manages event callbacks for runs
type hooks struct {
	mu             sync.RWMutex
	onRowAdmitted  []RowAdmittedHook
	onDuplicate    []DuplicateHook
	onRunCompleted []RunCompletedHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnRowAdmitted registers a callback for admitted rows
func (h *hooks) OnRowAdmitted(fn RowAdmittedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRowAdmitted = append(h.onRowAdmitted, fn)
}

// OnDuplicate registers a callback for rejected duplicates
func (h *hooks) OnDuplicate(fn DuplicateHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDuplicate = append(h.onDuplicate, fn)
}

// OnRunCompleted registers a callback for completed runs
func (h *hooks) OnRunCompleted(fn RunCompletedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onRunCompleted = append(h.onRunCompleted, fn)
}

// trigger fires the hooks for a written run. candidates are the rows the
// plan was computed from.
func (h *hooks) trigger(res *Result, plan *merge.Plan, candidates []assemble.Row, keyOf func(assemble.Row) merge.Key) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.onRowAdmitted) > 0 {
		for _, row := range plan.Admitted {
			for _, hook := range h.onRowAdmitted {
				hook(row)
			}
		}
	}
	if len(h.onDuplicate) > 0 {
		for _, i := range plan.Rejected {
			row := candidates[i]
			key := keyOf(row)
			for _, hook := range h.onDuplicate {
				hook(row, key)
			}
		}
	}
	for _, hook := range h.onRunCompleted {
		hook(res)
	}
}
