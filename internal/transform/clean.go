// Package transform cleans extracted rows and converts prices into a target currency.
// Every function here is pure: inputs are never mutated.
package transform

import (
	"FinanceETL/internal/model"
)

type barKey struct {
	date   string
	ticker string
}

// CleanStock drops bars missing the date, ticker or any OHLC price, then
// removes (date, ticker) duplicates keeping the last occurrence in its position.
func CleanStock(bars []model.StockBar) []model.StockBar {
	complete := make([]model.StockBar, 0, len(bars))
	for _, b := range bars {
		if b.Complete() {
			complete = append(complete, b)
		}
	}

	last := make(map[barKey]int, len(complete))
	for i, b := range complete {
		last[barKey{model.DateKey(b.Date), b.Ticker}] = i
	}

	out := make([]model.StockBar, 0, len(last))
	for i, b := range complete {
		if last[barKey{model.DateKey(b.Date), b.Ticker}] == i {
			out = append(out, b)
		}
	}
	return out
}

type rateKey struct {
	date   string
	base   string
	target string
	rate   string
}

// CleanFx drops rates with any missing field and removes exact duplicates,
// keeping the first occurrence.
func CleanFx(rates []model.FxRate) []model.FxRate {
	seen := make(map[rateKey]struct{}, len(rates))
	out := make([]model.FxRate, 0, len(rates))
	for _, r := range rates {
		if !r.Complete() {
			continue
		}
		k := rateKey{model.DateKey(r.Date), r.BaseCurrency, r.TargetCurrency, r.Rate.Decimal.String()}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
