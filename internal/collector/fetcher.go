package collector

import (
	"context"
	"time"

	"FinanceETL/internal/model"
)

// StockFetcher extracts daily bars for one ticker over an inclusive date range.
type StockFetcher interface {
	FetchDailyBars(ctx context.Context, ticker string, start, end time.Time) ([]model.StockBar, error)
	Name() string
}

// RateFetcher extracts daily FX rates for base against symbols over an
// inclusive date range. An empty symbols list asks for every currency.
type RateFetcher interface {
	FetchRates(ctx context.Context, base string, start, end time.Time, symbols []string) ([]model.FxRate, error)
	Name() string
}
