package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DimDate is a row of dim_date.
type DimDate struct {
	DateKey string
	Year    int
	Month   int
	Day     int
}

// NewDimDate builds the dim_date row for t.
func NewDimDate(t time.Time) DimDate {
	u := t.UTC()
	return DimDate{DateKey: DateKey(u), Year: u.Year(), Month: int(u.Month()), Day: u.Day()}
}

// DimTicker is a row of dim_ticker.
type DimTicker struct {
	TickerKey       int64
	TickerSymbol    string
	ListingCurrency string
}

// DimCurrency is a row of dim_currency.
type DimCurrency struct {
	CurrencyKey  int64
	CurrencyCode string
}

// FactRow is a denormalized view of one fact_stock_prices row.
type FactRow struct {
	Date     string
	Ticker   string
	Currency string
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   int64
	FxRate   decimal.Decimal
}
