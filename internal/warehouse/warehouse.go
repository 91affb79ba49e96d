// Package warehouse loads converted price records into the star schema.
//
// Every write runs inside a transaction and every call is bounded by the
// configured timeout. Dimension inserts are insert-if-absent; fact rows are
// upserted on (date_key, ticker_key, currency_key).
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and tunes the warehouse backend.
type Options struct {
	Driver  string
	DSN     string
	Timeout time.Duration
}

// Loader owns the warehouse connection. It is the only writer of the schema.
type Loader struct {
	db      *sql.DB
	driver  string
	timeout time.Duration
	mu      sync.Mutex
}

// Open connects to the warehouse and verifies the connection.
func Open(ctx context.Context, opts Options) (*Loader, error) {
	var (
		db  *sql.DB
		err error
	)
	switch opts.Driver {
	case DriverSQLite, "":
		opts.Driver = DriverSQLite
		db, err = sql.Open("sqlite", sqliteDSN(opts.DSN))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// A single connection serialises writers and keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	case DriverPostgres:
		db, err = sql.Open("pgx", opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(4)
		db.SetConnMaxIdleTime(5 * time.Minute)
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}

	l := &Loader{db: db, driver: opts.Driver, timeout: opts.Timeout}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Driver, err)
	}
	if opts.Driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}

	log.Printf("[INFO] warehouse opened: driver=%s", opts.Driver)
	return l, nil
}

// sqliteDSN enables foreign keys and a busy timeout on every connection.
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = ":memory:"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Driver returns the backend name, DriverSQLite or DriverPostgres.
func (l *Loader) Driver() string { return l.driver }

// DB exposes the underlying handle for read-only inspection.
func (l *Loader) DB() *sql.DB { return l.db }

func (l *Loader) Close() error {
	log.Println("[INFO] closing warehouse")
	return l.db.Close()
}

func (l *Loader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}

// rebind rewrites ? placeholders into the $n form postgres expects.
func (l *Loader) rebind(query string) string {
	if l.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// inTx runs fn inside a transaction bounded by the loader timeout.
func (l *Loader) inTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
