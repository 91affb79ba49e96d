package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ListingCurrency is the currency every extracted price is assumed to be quoted in.
const ListingCurrency = "USD"

// StockBar is one daily aggregate for a single ticker. Price fields are
// invalid when the provider omitted them.
type StockBar struct {
	Date   time.Time
	Ticker string
	Open   decimal.NullDecimal
	High   decimal.NullDecimal
	Low    decimal.NullDecimal
	Close  decimal.NullDecimal
	Volume int64
	VWAP   decimal.NullDecimal
}

// Complete reports whether the bar carries everything needed downstream.
func (b StockBar) Complete() bool {
	return !b.Date.IsZero() && b.Ticker != "" &&
		b.Open.Valid && b.High.Valid && b.Low.Valid && b.Close.Valid
}

// FxRate is the value of one unit of BaseCurrency in TargetCurrency on Date.
type FxRate struct {
	Date           time.Time
	BaseCurrency   string
	TargetCurrency string
	Rate           decimal.NullDecimal
}

// Complete reports whether no field of the rate is missing.
func (r FxRate) Complete() bool {
	return !r.Date.IsZero() && r.BaseCurrency != "" && r.TargetCurrency != "" && r.Rate.Valid
}

// MergedRecord is a stock bar joined with the rate for its date.
type MergedRecord struct {
	StockBar
	TargetCurrency string
	Rate           decimal.Decimal
	// RateDefaulted is set when no rate matched the bar's date and 1.0 was used.
	RateDefaulted  bool
	ConvertedOpen  decimal.Decimal
	ConvertedHigh  decimal.Decimal
	ConvertedLow   decimal.Decimal
	ConvertedClose decimal.Decimal
}
