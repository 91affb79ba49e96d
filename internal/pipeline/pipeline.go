// Package pipeline runs one extract, transform and load pass for a ticker,
// a date range and a target currency.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"FinanceETL/internal/collector"
	"FinanceETL/internal/model"
	"FinanceETL/internal/transform"
	"FinanceETL/internal/warehouse"

	"github.com/google/uuid"
)

// Params selects what a run extracts. Symbols are extra FX codes to request
// alongside TargetCurrency.
type Params struct {
	Ticker         string
	TargetCurrency string
	Start          time.Time
	End            time.Time
	FxBase         string
	Symbols        []string
}

func (p Params) validate() error {
	switch {
	case strings.TrimSpace(p.Ticker) == "":
		return errors.New("ticker is required")
	case strings.TrimSpace(p.TargetCurrency) == "":
		return errors.New("target currency is required")
	case p.Start.IsZero() || p.End.IsZero():
		return errors.New("start and end dates are required")
	case p.End.Before(p.Start):
		return fmt.Errorf("start %s after end %s", model.DateKey(p.Start), model.DateKey(p.End))
	}
	return nil
}

// Store is the warehouse surface the pipeline writes to.
type Store interface {
	EnsureSchema(ctx context.Context, ddl string) error
	Load(ctx context.Context, recs []model.MergedRecord, target string) (warehouse.LoadReport, error)
	RecordRun(ctx context.Context, run warehouse.RunRecord) error
}

// Pipeline wires the extractors to the warehouse.
type Pipeline struct {
	Stocks collector.StockFetcher
	Rates  collector.RateFetcher
	Store  Store
	// Schema is applied before loading when non-empty.
	Schema string
}

// New creates a Pipeline.
func New(stocks collector.StockFetcher, rates collector.RateFetcher, store Store, schema string) *Pipeline {
	return &Pipeline{Stocks: stocks, Rates: rates, Store: store, Schema: schema}
}

// Run executes every stage sequentially and never panics on provider or
// storage failures; they are reported through the returned Result.
func (p *Pipeline) Run(ctx context.Context, params Params) *Result {
	params.Ticker = strings.ToUpper(strings.TrimSpace(params.Ticker))
	params.TargetCurrency = strings.ToUpper(strings.TrimSpace(params.TargetCurrency))
	if params.FxBase == "" {
		params.FxBase = model.ListingCurrency
	}

	res := &Result{
		RunID:     uuid.NewString(),
		Params:    params,
		Status:    StatusOK,
		StartedAt: time.Now(),
	}
	log.Printf("[INFO] run %s: %s %s..%s -> %s", res.RunID, params.Ticker,
		model.DateKey(params.Start), model.DateKey(params.End), params.TargetCurrency)

	if err := params.validate(); err != nil {
		res.add(StageResult{Name: StageExtractStocks, Status: StatusFailed, Err: err, Issues: []string{err.Error()}})
		res.FinishedAt = time.Now()
		log.Printf("[ERROR] run %s: invalid parameters: %v", res.RunID, err)
		return res
	}

	bars := p.extractStocks(ctx, res)
	rates := p.extractRates(ctx, res)
	recs := p.transform(res, bars, rates)

	if p.Schema != "" && p.Store != nil {
		if err := p.Store.EnsureSchema(ctx, p.Schema); err != nil {
			res.add(StageResult{Name: StageSchema, Status: StatusFailed, Err: err, Issues: []string{err.Error()}})
			res.add(StageResult{Name: StageLoad, Status: StatusSkipped, Issues: []string{"schema unavailable"}})
			return p.finish(ctx, res, len(bars), len(rates))
		}
		res.add(StageResult{Name: StageSchema, Status: StatusOK})
	}

	p.load(ctx, res, recs)
	return p.finish(ctx, res, len(bars), len(rates))
}

func (p *Pipeline) extractStocks(ctx context.Context, res *Result) []model.StockBar {
	params := res.Params
	bars, err := p.Stocks.FetchDailyBars(ctx, params.Ticker, params.Start, params.End)
	if err != nil {
		res.add(StageResult{Name: StageExtractStocks, Status: StatusFailed, Err: err, Issues: []string{err.Error()}})
		return nil
	}
	stage := StageResult{Name: StageExtractStocks, Status: StatusOK, Rows: len(bars)}
	if len(bars) == 0 {
		stage.Status = StatusPartial
		stage.Issues = append(stage.Issues, "no bars in range")
	}
	res.add(stage)
	return bars
}

func (p *Pipeline) extractRates(ctx context.Context, res *Result) []model.FxRate {
	params := res.Params
	symbols := []string{params.TargetCurrency}
	for _, s := range params.Symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" && s != params.TargetCurrency {
			symbols = append(symbols, s)
		}
	}

	rates, err := p.Rates.FetchRates(ctx, params.FxBase, params.Start, params.End, symbols)
	if err != nil {
		// Prices still load unconverted; the run is degraded, not failed.
		res.add(StageResult{Name: StageExtractFx, Status: StatusPartial, Err: err, Issues: []string{err.Error()}})
		return nil
	}
	res.add(StageResult{Name: StageExtractFx, Status: StatusOK, Rows: len(rates)})
	return rates
}

func (p *Pipeline) transform(res *Result, bars []model.StockBar, rates []model.FxRate) []model.MergedRecord {
	cleanBars := transform.CleanStock(bars)
	cleanRates := transform.CleanFx(rates)
	recs := transform.Convert(cleanBars, cleanRates, res.Params.TargetCurrency)

	stage := StageResult{Name: StageTransform, Status: StatusOK, Rows: len(recs)}
	if dropped := len(bars) - len(cleanBars); dropped > 0 {
		stage.Issues = append(stage.Issues, fmt.Sprintf("%d bars dropped as incomplete or duplicate", dropped))
	}
	if dropped := len(rates) - len(cleanRates); dropped > 0 {
		stage.Issues = append(stage.Issues, fmt.Sprintf("%d rates dropped as incomplete or duplicate", dropped))
	}
	if sum := transform.Summarize(recs); sum.Defaulted > 0 {
		stage.Status = StatusPartial
		stage.Issues = append(stage.Issues, fmt.Sprintf("%d of %d records used default rate 1.0", sum.Defaulted, sum.Records))
	}
	res.add(stage)
	return recs
}

func (p *Pipeline) load(ctx context.Context, res *Result, recs []model.MergedRecord) {
	if p.Store == nil {
		res.add(StageResult{Name: StageLoad, Status: StatusSkipped, Issues: []string{"no warehouse configured"}})
		return
	}
	if len(recs) == 0 {
		res.add(StageResult{Name: StageLoad, Status: StatusSkipped, Issues: []string{"nothing to load"}})
		return
	}

	report, err := p.Store.Load(ctx, recs, res.Params.TargetCurrency)
	if err != nil {
		res.add(StageResult{Name: StageLoad, Status: StatusFailed, Err: err, Issues: []string{err.Error()}})
		return
	}
	res.FactsWritten = report.Facts.Written
	res.Rejected = report.Facts.Rejected

	stage := StageResult{Name: StageLoad, Status: StatusOK, Rows: report.Facts.Written}
	if n := len(report.Facts.Rejected); n > 0 {
		stage.Status = StatusPartial
		stage.Issues = append(stage.Issues, fmt.Sprintf("%d rows rejected with unresolved keys", n))
	}
	res.add(stage)
}

func (p *Pipeline) finish(ctx context.Context, res *Result, bars, rates int) *Result {
	res.FinishedAt = time.Now()

	if p.Store != nil {
		params := res.Params
		err := p.Store.RecordRun(ctx, warehouse.RunRecord{
			RunID:          res.RunID,
			Ticker:         params.Ticker,
			TargetCurrency: params.TargetCurrency,
			StartDate:      model.DateKey(params.Start),
			EndDate:        model.DateKey(params.End),
			Status:         string(res.Status),
			BarsExtracted:  bars,
			RatesExtracted: rates,
			FactsWritten:   res.FactsWritten,
			RejectedRows:   len(res.Rejected),
			Issues:         res.Issues(),
			StartedAt:      res.StartedAt,
			FinishedAt:     res.FinishedAt,
		})
		if err != nil {
			log.Printf("[WARN] run %s: %v", res.RunID, err)
		}
	}

	switch res.Status {
	case StatusFailed:
		log.Printf("[ERROR] %s", res)
	case StatusPartial:
		log.Printf("[WARN] %s", res)
	default:
		log.Printf("[INFO] %s", res)
	}
	return res
}
