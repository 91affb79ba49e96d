package transform

import (
	"strings"

	"FinanceETL/internal/model"

	"github.com/shopspring/decimal"
)

// Convert joins each bar with the ListingCurrency->target rate of its date and
// derives converted prices. Bars without a matching rate keep their raw
// prices at rate 1.0 and are flagged RateDefaulted. When several rates share
// a date the last one wins. Output order and cardinality follow bars.
func Convert(bars []model.StockBar, rates []model.FxRate, target string) []model.MergedRecord {
	target = strings.ToUpper(strings.TrimSpace(target))

	byDate := make(map[string]decimal.Decimal, len(rates))
	for _, r := range rates {
		if !r.Rate.Valid || r.BaseCurrency != model.ListingCurrency || r.TargetCurrency != target {
			continue
		}
		byDate[model.DateKey(r.Date)] = r.Rate.Decimal
	}

	one := decimal.NewFromInt(1)
	out := make([]model.MergedRecord, 0, len(bars))
	for _, b := range bars {
		rate, ok := byDate[model.DateKey(b.Date)]
		if !ok {
			rate = one
		}
		out = append(out, model.MergedRecord{
			StockBar:       b,
			TargetCurrency: target,
			Rate:           rate,
			RateDefaulted:  !ok,
			ConvertedOpen:  b.Open.Decimal.Mul(rate),
			ConvertedHigh:  b.High.Decimal.Mul(rate),
			ConvertedLow:   b.Low.Decimal.Mul(rate),
			ConvertedClose: b.Close.Decimal.Mul(rate),
		})
	}
	return out
}

// Summary counts what Convert did.
type Summary struct {
	Records   int
	Defaulted int
}

// Summarize reports how many records fell back to the default rate.
func Summarize(recs []model.MergedRecord) Summary {
	s := Summary{Records: len(recs)}
	for _, r := range recs {
		if r.RateDefaulted {
			s.Defaulted++
		}
	}
	return s
}
