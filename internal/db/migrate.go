package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// RunMigrations creates and seeds the sample dataset (regions, products,
// customers, sales) and returns the number of migrations applied.
func RunMigrations(ctx context.Context, db *sql.DB, dialect Dialect) (int, error) {
	gooseDialect, err := gooseDialectFor(dialect)
	if err != nil {
		return 0, err
	}

	fsys, err := fs.Sub(EmbedMigrations, "migrations")
	if err != nil {
		return 0, fmt.Errorf("migrations fs: %w", err)
	}

	provider, err := goose.NewProvider(gooseDialect, db, fsys)
	if err != nil {
		return 0, fmt.Errorf("goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose up: %w", err)
	}
	return len(results), nil
}

func gooseDialectFor(d Dialect) (goose.Dialect, error) {
	switch d {
	case DialectSQLite:
		return goose.DialectSQLite3, nil
	case DialectPostgres:
		return goose.DialectPostgres, nil
	case DialectMySQL:
		return goose.DialectMySQL, nil
	default:
		return "", fmt.Errorf("no migrations for dialect %q", d)
	}
}
