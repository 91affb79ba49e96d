package warehouse

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// DefaultSchema returns the bundled DDL for driver.
func DefaultSchema(driver string) (string, error) {
	var name string
	switch driver {
	case DriverSQLite, "":
		name = "schema/sqlite.sql"
	case DriverPostgres:
		name = "schema/postgres.sql"
	default:
		return "", fmt.Errorf("no schema for driver %q", driver)
	}
	b, err := schemaFS.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(b), nil
}

// EnsureSchema applies every statement in ddl inside one transaction. If any
// statement fails, none of them take effect.
func (l *Loader) EnsureSchema(ctx context.Context, ddl string) error {
	stmts := splitStatements(ddl)
	if len(stmts) == 0 {
		return errors.New("ensure schema: no statements")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s); err != nil {
				return fmt.Errorf("exec %q: %w", abbrev(s, 40), err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] ensure schema: %v", err)
		return fmt.Errorf("ensure schema: %w", err)
	}
	log.Printf("[INFO] schema ensured: %d statements", len(stmts))
	return nil
}

func abbrev(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// splitStatements splits a SQL script on semicolons that are outside
// quotes and comments. Comments are dropped; empty statements are skipped.
func splitStatements(script string) []string {
	var (
		stmts []string
		cur   strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			for i < len(script) && script[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			end := strings.Index(script[i+2:], "*/")
			if end < 0 {
				i = len(script)
			} else {
				i += end + 3
			}
			cur.WriteByte(' ')
		case c == '\'' || c == '"':
			j := i + 1
			for j < len(script) {
				if script[j] == c {
					// doubled quote is an escaped quote
					if j+1 < len(script) && script[j+1] == c {
						j += 2
						continue
					}
					break
				}
				j++
			}
			if j >= len(script) {
				j = len(script) - 1
			}
			cur.WriteString(script[i : j+1])
			i = j
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return stmts
}
