package collector

import (
	"context"
	"time"

	"FinanceETL/internal/model"

	"github.com/shopspring/decimal"
)

// MockStockFetcher returns controllable fixed bars for development and testing.
type MockStockFetcher struct {
	Price decimal.Decimal
	Bars  []model.StockBar
	Err   error
}

func (m *MockStockFetcher) Name() string { return "mock" }

func (m *MockStockFetcher) FetchDailyBars(_ context.Context, ticker string, start, end time.Time) ([]model.StockBar, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return m.Bars, nil
	}
	return generateMockBars(ticker, m.Price, start, end), nil
}

// MockRateFetcher returns controllable fixed rates for development and testing.
type MockRateFetcher struct {
	Rate  decimal.Decimal
	Rates []model.FxRate
	Err   error
}

func (m *MockRateFetcher) Name() string { return "mock" }

func (m *MockRateFetcher) FetchRates(_ context.Context, base string, start, end time.Time, symbols []string) ([]model.FxRate, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Rates != nil {
		return m.Rates, nil
	}
	var out []model.FxRate
	for d := model.TruncateDay(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		for _, s := range symbols {
			out = append(out, model.FxRate{
				Date:           d,
				BaseCurrency:   base,
				TargetCurrency: s,
				Rate:           decimal.NewNullDecimal(m.Rate),
			})
		}
	}
	return out, nil
}

// generateMockBars emits one bar per weekday in [start, end] drifting around basePrice.
func generateMockBars(ticker string, basePrice decimal.Decimal, start, end time.Time) []model.StockBar {
	if basePrice.IsZero() {
		basePrice = decimal.NewFromInt(100)
	}
	step := basePrice.Mul(decimal.RequireFromString("0.001"))
	var bars []model.StockBar
	i := 0
	for d := model.TruncateDay(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p := basePrice.Add(step.Mul(decimal.NewFromInt(int64(i))))
		bars = append(bars, model.StockBar{
			Date:   d,
			Ticker: ticker,
			Open:   decimal.NewNullDecimal(p.Mul(decimal.RequireFromString("0.999"))),
			High:   decimal.NewNullDecimal(p.Mul(decimal.RequireFromString("1.005"))),
			Low:    decimal.NewNullDecimal(p.Mul(decimal.RequireFromString("0.995"))),
			Close:  decimal.NewNullDecimal(p),
			Volume: 1000000,
			VWAP:   decimal.NewNullDecimal(p),
		})
		i++
	}
	return bars
}
