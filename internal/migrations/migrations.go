// Package migrations embeds the ledger schema and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"ivr-gateway/pkg/utils"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// goose keeps dialect and base FS as package globals.
var gooseMu sync.Mutex

func gooseDialect(d utils.Dialect) (string, string, error) {
	switch d {
	case utils.DialectPostgres:
		return "postgres", "postgres", nil
	case utils.DialectSQLite:
		return "sqlite3", "sqlite", nil
	default:
		return "", "", fmt.Errorf("migrations: unsupported dialect %q", d)
	}
}

// Run applies every pending migration for the dialect.
func Run(ctx context.Context, db *sql.DB, dialect utils.Dialect) error {
	name, dir, err := gooseDialect(dialect)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(files)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(name); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migrations: up: %w", err)
	}
	return nil
}
