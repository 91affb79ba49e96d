package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"FinanceETL/internal/warehouse"
)

// Status is the outcome of a stage or of a whole run.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

func (s Status) rank() int {
	switch s {
	case StatusFailed:
		return 2
	case StatusPartial:
		return 1
	default:
		return 0
	}
}

// Stage names, in execution order.
const (
	StageExtractStocks = "extract_stocks"
	StageExtractFx     = "extract_fx"
	StageTransform     = "transform"
	StageSchema        = "schema"
	StageLoad          = "load"
)

// StageResult describes what one stage did.
type StageResult struct {
	Name   string
	Status Status
	Rows   int
	Issues []string
	Err    error
}

// Result is the typed outcome of Pipeline.Run.
type Result struct {
	RunID        string
	Params       Params
	Status       Status
	Stages       []StageResult
	FactsWritten int
	Rejected     []warehouse.RejectedRow
	StartedAt    time.Time
	FinishedAt   time.Time
}

func (r *Result) add(s StageResult) {
	r.Stages = append(r.Stages, s)
	if s.Status.rank() > r.Status.rank() {
		r.Status = s.Status
	}
}

// Stage returns the result of the named stage, if it ran.
func (r *Result) Stage(name string) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageResult{}, false
}

// Issues flattens every stage issue, prefixed with its stage name.
func (r *Result) Issues() []string {
	var out []string
	for _, s := range r.Stages {
		for _, is := range s.Issues {
			out = append(out, s.Name+": "+is)
		}
	}
	return out
}

// Err is non-nil only when the run failed. It joins the failing stage errors.
func (r *Result) Err() error {
	if r.Status != StatusFailed {
		return nil
	}
	var errs []error
	for _, s := range r.Stages {
		if s.Status == StatusFailed && s.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, s.Err))
		}
	}
	if len(errs) == 0 {
		return fmt.Errorf("run %s failed", r.RunID)
	}
	return errors.Join(errs...)
}

func (r *Result) String() string {
	parts := make([]string, 0, len(r.Stages))
	for _, s := range r.Stages {
		parts = append(parts, fmt.Sprintf("%s=%s(%d)", s.Name, s.Status, s.Rows))
	}
	return fmt.Sprintf("run %s %s: %s facts=%d rejected=%d",
		r.RunID, r.Status, strings.Join(parts, " "), r.FactsWritten, len(r.Rejected))
}
