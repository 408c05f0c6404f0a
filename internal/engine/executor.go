package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"insightql/internal/domain"
)

// Compile-time check.
var _ domain.QueryExecutor = (*Executor)(nil)

// Executor runs validated SQL on a dedicated pooled connection under a hard
// deadline and materializes the full result set.
type Executor struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutor creates an Executor over the given pool.
func NewExecutor(db *sql.DB, logger *slog.Logger) *Executor {
	return &Executor{db: db, logger: logger.With("component", "executor")}
}

// Execute runs query and returns all of its rows. A timeout <= 0 disables the
// per-query deadline.
//
// When the deadline expires the statement is aborted, the connection is
// discarded instead of being returned to the pool, and *domain.ExecutionTimeout
// is returned with no partial rows. Driver failures are returned as
// *domain.ExecutionError.
func (e *Executor) Execute(ctx context.Context, query string, timeout time.Duration) (*domain.QueryResult, error) {
	qctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := e.db.Conn(qctx)
	if err != nil {
		return nil, e.classify(ctx, qctx, query, timeout, err)
	}

	result, err := e.run(qctx, conn, query)
	if err != nil {
		err = e.classify(ctx, qctx, query, timeout, err)
		if qctx.Err() != nil {
			e.discard(conn)
		}
		_ = conn.Close()
		return nil, err
	}

	if err := conn.Close(); err != nil {
		e.logger.Warn("release connection", "error", err)
	}
	return result, nil
}

// Stats returns the pool statistics.
func (e *Executor) Stats() sql.DBStats {
	return e.db.Stats()
}

func (e *Executor) run(ctx context.Context, conn *sql.Conn, query string) (*domain.QueryResult, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	return scanRows(rows)
}

// classify maps a failure to the domain taxonomy. Cancellation by the caller
// is returned as the context error.
func (e *Executor) classify(parent, qctx context.Context, query string, timeout time.Duration, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("execute query: %w", parent.Err())
	}
	if errors.Is(qctx.Err(), context.DeadlineExceeded) {
		e.logger.Warn("query timed out", "timeout", timeout)
		return &domain.ExecutionTimeout{Timeout: timeout, SQL: query}
	}
	return &domain.ExecutionError{SQL: query, Err: err}
}

// discard closes the underlying driver connection so that a statement in an
// unknown state never re-enters the pool.
func (e *Executor) discard(conn *sql.Conn) {
	err := conn.Raw(func(any) error { return driver.ErrBadConn })
	if err != nil && !errors.Is(err, driver.ErrBadConn) && !errors.Is(err, sql.ErrConnDone) {
		e.logger.Warn("discard connection", "error", err)
	}
}
