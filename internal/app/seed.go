package app

import (
	"context"
	"fmt"
	"log/slog"

	"insightql/internal/db"
)

// Seed creates the sample sales dataset in the database at databaseURL.
// Idempotent: migrations that already ran are skipped. It returns the number
// of migrations applied.
func Seed(ctx context.Context, databaseURL string, logger *slog.Logger) (int, error) {
	pool, dialect, err := db.OpenWritable(ctx, databaseURL)
	if err != nil {
		return 0, err
	}
	defer pool.Close() //nolint:errcheck

	applied, err := db.RunMigrations(ctx, pool, dialect)
	if err != nil {
		return 0, fmt.Errorf("seed %s: %w", dialect, err)
	}
	logger.Info("sample dataset ready", "dialect", dialect, "migrations_applied", applied)
	return applied, nil
}
