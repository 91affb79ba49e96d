package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RunRecord is one row of the etl_runs audit table.
type RunRecord struct {
	RunID          string
	Ticker         string
	TargetCurrency string
	StartDate      string
	EndDate        string
	Status         string
	BarsExtracted  int
	RatesExtracted int
	FactsWritten   int
	RejectedRows   int
	Issues         []string
	StartedAt      time.Time
	FinishedAt     time.Time
}

const upsertRunSQL = `INSERT INTO etl_runs
	(run_id, ticker, target_currency, start_date, end_date, status,
	 bars_extracted, rates_extracted, facts_written, rejected_rows, issues, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (run_id) DO UPDATE SET
		status = excluded.status,
		bars_extracted = excluded.bars_extracted,
		rates_extracted = excluded.rates_extracted,
		facts_written = excluded.facts_written,
		rejected_rows = excluded.rejected_rows,
		issues = excluded.issues,
		finished_at = excluded.finished_at`

// RecordRun writes the outcome of a pipeline run to etl_runs.
func (l *Loader) RecordRun(ctx context.Context, run RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	_, err := l.db.ExecContext(ctx, l.rebind(upsertRunSQL),
		run.RunID, run.Ticker, run.TargetCurrency, run.StartDate, run.EndDate, run.Status,
		run.BarsExtracted, run.RatesExtracted, run.FactsWritten, run.RejectedRows,
		strings.Join(run.Issues, "; "), run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.RunID, err)
	}
	return nil
}
