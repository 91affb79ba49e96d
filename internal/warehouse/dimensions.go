package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"FinanceETL/internal/model"
)

// ErrInvalidRecord is returned when a record lacks a natural key a dimension needs.
var ErrInvalidRecord = errors.New("invalid record")

// DimensionCounts reports how many rows were added to each dimension.
type DimensionCounts struct {
	Dates      int
	Tickers    int
	Currencies int
}

func (c DimensionCounts) String() string {
	return fmt.Sprintf("dates=%d tickers=%d currencies=%d", c.Dates, c.Tickers, c.Currencies)
}

// UpsertDimensions inserts the dates, tickers and currencies in recs that are
// not yet persisted. Existing rows are never updated. An empty input is a
// no-op; a record missing its date, ticker or currency aborts the call
// before anything is written.
func (l *Loader) UpsertDimensions(ctx context.Context, recs []model.MergedRecord) (DimensionCounts, error) {
	if len(recs) == 0 {
		log.Println("[WARN] upsert dimensions: no records, skipping")
		return DimensionCounts{}, nil
	}
	if err := validateRecords(recs); err != nil {
		log.Printf("[ERROR] upsert dimensions: %v", err)
		return DimensionCounts{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var counts DimensionCounts
	err := l.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		counts, err = l.upsertDimensions(ctx, tx, recs)
		return err
	})
	if err != nil {
		log.Printf("[ERROR] upsert dimensions: %v", err)
		return DimensionCounts{}, err
	}
	log.Printf("[INFO] dimensions upserted: %s", counts)
	return counts, nil
}

func validateRecords(recs []model.MergedRecord) error {
	for i, r := range recs {
		switch {
		case r.Date.IsZero():
			return fmt.Errorf("%w: record %d has no date", ErrInvalidRecord, i)
		case strings.TrimSpace(r.Ticker) == "":
			return fmt.Errorf("%w: record %d has no ticker", ErrInvalidRecord, i)
		case strings.TrimSpace(r.TargetCurrency) == "":
			return fmt.Errorf("%w: record %d has no target currency", ErrInvalidRecord, i)
		}
	}
	return nil
}

func (l *Loader) upsertDimensions(ctx context.Context, tx *sql.Tx, recs []model.MergedRecord) (DimensionCounts, error) {
	var (
		counts     DimensionCounts
		dates      []model.DimDate
		tickers    []string
		currencies []string
		seenDate   = map[string]bool{}
		seenTicker = map[string]bool{}
		seenCcy    = map[string]bool{}
	)
	for _, r := range recs {
		if d := model.NewDimDate(r.Date); !seenDate[d.DateKey] {
			seenDate[d.DateKey] = true
			dates = append(dates, d)
		}
		if t := strings.ToUpper(r.Ticker); !seenTicker[t] {
			seenTicker[t] = true
			tickers = append(tickers, t)
		}
		if c := strings.ToUpper(r.TargetCurrency); !seenCcy[c] {
			seenCcy[c] = true
			currencies = append(currencies, c)
		}
	}

	existing, err := selectKeys(ctx, tx, "SELECT date_key FROM dim_date")
	if err != nil {
		return counts, fmt.Errorf("read dim_date: %w", err)
	}
	var missingDates []model.DimDate
	for _, d := range dates {
		if !existing[d.DateKey] {
			missingDates = append(missingDates, d)
		}
	}
	counts.Dates, err = l.insertEach(ctx, tx,
		"INSERT INTO dim_date (date_key, year, month, day) VALUES (?, ?, ?, ?) ON CONFLICT (date_key) DO NOTHING",
		len(missingDates), func(i int) []any {
			d := missingDates[i]
			return []any{d.DateKey, d.Year, d.Month, d.Day}
		})
	if err != nil {
		return counts, fmt.Errorf("insert dim_date: %w", err)
	}

	existing, err = selectKeys(ctx, tx, "SELECT ticker_symbol FROM dim_ticker")
	if err != nil {
		return counts, fmt.Errorf("read dim_ticker: %w", err)
	}
	missingTickers := missingKeys(tickers, existing)
	counts.Tickers, err = l.insertEach(ctx, tx,
		"INSERT INTO dim_ticker (ticker_symbol, listing_currency) VALUES (?, ?) ON CONFLICT (ticker_symbol) DO NOTHING",
		len(missingTickers), func(i int) []any {
			return []any{missingTickers[i], model.ListingCurrency}
		})
	if err != nil {
		return counts, fmt.Errorf("insert dim_ticker: %w", err)
	}

	existing, err = selectKeys(ctx, tx, "SELECT currency_code FROM dim_currency")
	if err != nil {
		return counts, fmt.Errorf("read dim_currency: %w", err)
	}
	missingCcys := missingKeys(currencies, existing)
	counts.Currencies, err = l.insertEach(ctx, tx,
		"INSERT INTO dim_currency (currency_code) VALUES (?) ON CONFLICT (currency_code) DO NOTHING",
		len(missingCcys), func(i int) []any {
			return []any{missingCcys[i]}
		})
	if err != nil {
		return counts, fmt.Errorf("insert dim_currency: %w", err)
	}

	return counts, nil
}

func missingKeys(keys []string, existing map[string]bool) []string {
	var out []string
	for _, k := range keys {
		if !existing[k] {
			out = append(out, k)
		}
	}
	return out
}

func selectKeys(ctx context.Context, tx *sql.Tx, query string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := map[string]bool{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys[k] = true
	}
	return keys, rows.Err()
}

// insertEach executes a prepared statement n times and returns the number of
// rows actually inserted. Conflicting rows count as zero.
func (l *Loader) insertEach(ctx context.Context, tx *sql.Tx, query string, n int, args func(i int) []any) (int, error) {
	if n == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, l.rebind(query))
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := 0; i < n; i++ {
		res, err := stmt.ExecContext(ctx, args(i)...)
		if err != nil {
			return inserted, err
		}
		if affected, err := res.RowsAffected(); err == nil && affected > 0 {
			inserted++
		}
	}
	return inserted, nil
}
