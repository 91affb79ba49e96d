package warehouse

import (
	"context"
	"fmt"
	"strings"

	"FinanceETL/internal/model"
)

const factsByTickerSQL = `SELECT d.date_key, t.ticker_symbol, c.currency_code,
		f.open_price, f.high_price, f.low_price, f.close_price, f.volume, f.fx_rate
	FROM fact_stock_prices f
	JOIN dim_date d ON d.date_key = f.date_key
	JOIN dim_ticker t ON t.ticker_key = f.ticker_key
	JOIN dim_currency c ON c.currency_key = f.currency_key
	WHERE t.ticker_symbol = ? AND c.currency_code = ? AND d.date_key BETWEEN ? AND ?
	ORDER BY d.date_key`

// QueryFacts returns the stored facts for ticker in currency between the
// inclusive YYYY-MM-DD bounds, ordered by date.
func (l *Loader) QueryFacts(ctx context.Context, ticker, currency, from, to string) ([]model.FactRow, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	rows, err := l.db.QueryContext(ctx, l.rebind(factsByTickerSQL),
		strings.ToUpper(ticker), strings.ToUpper(currency), from, to)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	var out []model.FactRow
	for rows.Next() {
		var f model.FactRow
		if err := rows.Scan(&f.Date, &f.Ticker, &f.Currency,
			&f.Open, &f.High, &f.Low, &f.Close, &f.Volume, &f.FxRate); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return out, nil
}
