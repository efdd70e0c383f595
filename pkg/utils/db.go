package utils

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour used by ledger repositories.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DriverName maps the dialect to its registered database/sql driver.
func (d Dialect) DriverName() string {
	switch d {
	case DialectSQLite:
		return "sqlite"
	default:
		return "pgx"
	}
}

func (d Dialect) Valid() bool {
	return d == DialectPostgres || d == DialectSQLite
}

// Rebind rewrites '?' placeholders into the dialect's positional form.
// Queries are written once with '?' and rebound for Postgres ($1, $2, ...).
// Placeholders inside quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PoolConfig controls database/sql pool behavior.
// Keep it config-driven; defaults should be safe and conservative.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

func (c PoolConfig) withDefaults(d Dialect) PoolConfig {
	out := c
	if out.MaxOpenConns <= 0 {
		out.MaxOpenConns = 25
		if d == DialectSQLite {
			// SQLite serializes writers; one connection avoids SQLITE_BUSY under load.
			out.MaxOpenConns = 1
		}
	}
	if out.MaxIdleConns <= 0 {
		out.MaxIdleConns = out.MaxOpenConns
	}
	if out.ConnMaxLifetime <= 0 {
		out.ConnMaxLifetime = 30 * time.Minute
	}
	if out.ConnMaxIdleTime <= 0 {
		out.ConnMaxIdleTime = 5 * time.Minute
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = 5 * time.Second
	}
	return out
}

// sqlitePragmas run on every new connection, including ones opened after the
// pool recycles an idle or expired connection.
var sqlitePragmas = []string{"foreign_keys(1)", "busy_timeout(5000)"}

// SQLiteDSN appends the per-connection pragmas to path (modernc _pragma params).
func SQLiteDSN(path string) string {
	var b strings.Builder
	b.WriteString(path)
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	for _, p := range sqlitePragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// IsSQLiteMemory reports whether path names a private in-memory database.
// Such a database lives and dies with its single connection.
func IsSQLiteMemory(path string) bool {
	p := strings.TrimPrefix(path, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		if strings.Contains(p[i:], "mode=memory") {
			return true
		}
		p = p[:i]
	}
	return p == ":memory:" || p == ""
}

// OpenDB opens the ledger database for the given dialect and verifies connectivity.
// dsn must not be logged; it contains secrets.
func OpenDB(ctx context.Context, dialect Dialect, dsn string, pool PoolConfig) (*sql.DB, error) {
	if !dialect.Valid() {
		return nil, fmt.Errorf("unsupported db dialect %q", dialect)
	}
	pool = pool.withDefaults(dialect)

	if dialect == DialectSQLite {
		if IsSQLiteMemory(dsn) {
			// Recycling the only connection would drop the whole database.
			pool.MaxOpenConns, pool.MaxIdleConns = 1, 1
			pool.ConnMaxLifetime, pool.ConnMaxIdleTime = 0, 0
		}
		dsn = SQLiteDSN(dsn)
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := HealthCheck(ctx, db, pool.PingTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// HealthCheck pings the DB with a timeout.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("db ping failed: %w", err)
	}
	return nil
}

// TxFunc is the unit of work executed inside a transaction.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// WithTx runs fn inside a transaction.
// - If fn returns error: tx is rolled back and the error is returned.
// - If fn panics: tx is rolled back and the panic is re-thrown.
// - If commit fails: commit error is returned.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
