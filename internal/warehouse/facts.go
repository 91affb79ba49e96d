package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"FinanceETL/internal/model"
)

// RejectedRow is a record that could not be resolved against the dimensions.
type RejectedRow struct {
	Date     string
	Ticker   string
	Currency string
	Reason   string
}

// FactReport summarises one fact load.
type FactReport struct {
	Written  int
	Rejected []RejectedRow
}

// LoadReport summarises a combined dimension and fact load.
type LoadReport struct {
	Dimensions DimensionCounts
	Facts      FactReport
}

const upsertFactSQL = `INSERT INTO fact_stock_prices
	(date_key, ticker_key, currency_key, open_price, high_price, low_price, close_price, volume, fx_rate)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (date_key, ticker_key, currency_key) DO UPDATE SET
		open_price = excluded.open_price,
		high_price = excluded.high_price,
		low_price = excluded.low_price,
		close_price = excluded.close_price,
		volume = excluded.volume,
		fx_rate = excluded.fx_rate`

// InsertFacts resolves each record's date, ticker and target currency to
// surrogate keys and upserts one fact row per resolved record. Records that
// do not resolve are returned as rejected and never written.
func (l *Loader) InsertFacts(ctx context.Context, recs []model.MergedRecord, target string) (FactReport, error) {
	if len(recs) == 0 {
		log.Println("[WARN] insert facts: no records, skipping")
		return FactReport{}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var report FactReport
	err := l.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		report, err = l.insertFacts(ctx, tx, recs, target)
		return err
	})
	if err != nil {
		log.Printf("[ERROR] insert facts: %v", err)
		return FactReport{}, err
	}
	logFactReport(report)
	return report, nil
}

// Load writes dimensions and facts for recs in a single transaction. Nothing
// is persisted unless both steps succeed.
func (l *Loader) Load(ctx context.Context, recs []model.MergedRecord, target string) (LoadReport, error) {
	if len(recs) == 0 {
		log.Println("[WARN] load: no records, skipping")
		return LoadReport{}, nil
	}
	if err := validateRecords(recs); err != nil {
		log.Printf("[ERROR] load: %v", err)
		return LoadReport{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var report LoadReport
	err := l.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		dims, err := l.upsertDimensions(ctx, tx, recs)
		if err != nil {
			return err
		}
		facts, err := l.insertFacts(ctx, tx, recs, target)
		if err != nil {
			return err
		}
		report = LoadReport{Dimensions: dims, Facts: facts}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] load rolled back: %v", err)
		return LoadReport{}, err
	}
	log.Printf("[INFO] dimensions upserted: %s", report.Dimensions)
	logFactReport(report.Facts)
	return report, nil
}

func logFactReport(r FactReport) {
	log.Printf("[INFO] facts written: %d", r.Written)
	if len(r.Rejected) > 0 {
		log.Printf("[WARN] %d fact rows rejected, first: %s %s %s (%s)", len(r.Rejected),
			r.Rejected[0].Date, r.Rejected[0].Ticker, r.Rejected[0].Currency, r.Rejected[0].Reason)
	}
}

func (l *Loader) insertFacts(ctx context.Context, tx *sql.Tx, recs []model.MergedRecord, target string) (FactReport, error) {
	var report FactReport
	currency := strings.ToUpper(strings.TrimSpace(target))

	dateKeys, err := selectKeys(ctx, tx, "SELECT date_key FROM dim_date")
	if err != nil {
		return report, fmt.Errorf("read dim_date: %w", err)
	}
	tickerKeys, err := selectKeyMap(ctx, tx, "SELECT ticker_symbol, ticker_key FROM dim_ticker")
	if err != nil {
		return report, fmt.Errorf("read dim_ticker: %w", err)
	}
	currencyKeys, err := selectKeyMap(ctx, tx, "SELECT currency_code, currency_key FROM dim_currency")
	if err != nil {
		return report, fmt.Errorf("read dim_currency: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, l.rebind(upsertFactSQL))
	if err != nil {
		return report, fmt.Errorf("prepare fact upsert: %w", err)
	}
	defer stmt.Close()

	currencyKey, currencyOK := currencyKeys[currency]
	for _, r := range recs {
		dk := model.DateKey(r.Date)
		ticker := strings.ToUpper(r.Ticker)
		tickerKey, tickerOK := tickerKeys[ticker]

		var reason string
		switch {
		case r.Date.IsZero() || !dateKeys[dk]:
			reason = "unresolved date_key"
		case !tickerOK:
			reason = "unresolved ticker_key"
		case !currencyOK:
			reason = "unresolved currency_key"
		}
		if reason != "" {
			report.Rejected = append(report.Rejected, RejectedRow{Date: dk, Ticker: ticker, Currency: currency, Reason: reason})
			continue
		}

		if _, err := stmt.ExecContext(ctx,
			dk, tickerKey, currencyKey,
			r.ConvertedOpen, r.ConvertedHigh, r.ConvertedLow, r.ConvertedClose,
			r.Volume, r.Rate,
		); err != nil {
			return report, fmt.Errorf("upsert fact %s %s: %w", dk, ticker, err)
		}
		report.Written++
	}
	return report, nil
}

func selectKeyMap(ctx context.Context, tx *sql.Tx, query string) (map[string]int64, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := map[string]int64{}
	for rows.Next() {
		var (
			natural   string
			surrogate int64
		)
		if err := rows.Scan(&natural, &surrogate); err != nil {
			return nil, err
		}
		keys[natural] = surrogate
	}
	return keys, rows.Err()
}
