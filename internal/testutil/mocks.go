// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"insightql/internal/domain"
)

// === Query Executor Mock ===

// MockExecutor implements domain.QueryExecutor for testing.
type MockExecutor struct {
	ExecuteFn func(ctx context.Context, sql string, timeout time.Duration) (*domain.QueryResult, error)

	calls atomic.Int64
	mu    sync.Mutex
	sqls  []string // collected statements for assertions
}

// Execute implements the interface method for testing.
func (m *MockExecutor) Execute(ctx context.Context, sql string, timeout time.Duration) (*domain.QueryResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.sqls = append(m.sqls, sql)
	m.mu.Unlock()
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, sql, timeout)
	}
	panic("unexpected call to MockExecutor.Execute")
}

// Calls returns the number of Execute calls.
func (m *MockExecutor) Calls() int {
	return int(m.calls.Load())
}

// LastSQL returns the last executed statement, or "" if none.
func (m *MockExecutor) LastSQL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sqls) == 0 {
		return ""
	}
	return m.sqls[len(m.sqls)-1]
}

// StaticResult returns an ExecuteFn that always yields a copy of res.
func StaticResult(res *domain.QueryResult) func(context.Context, string, time.Duration) (*domain.QueryResult, error) {
	return func(context.Context, string, time.Duration) (*domain.QueryResult, error) {
		rows := make([]map[string]any, len(res.Rows))
		for i, r := range res.Rows {
			row := make(map[string]any, len(r))
			for k, v := range r {
				row[k] = v
			}
			rows[i] = row
		}
		cols := append([]string(nil), res.Columns...)
		return &domain.QueryResult{Columns: cols, Rows: rows, RowCount: len(rows)}, nil
	}
}

// === Cache Mock ===

// MockCache implements domain.Cache for testing.
type MockCache struct {
	GetFn          func(ctx context.Context, key string) ([]byte, bool, error)
	SetFn          func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFn       func(ctx context.Context, key string) (bool, error)
	DeletePrefixFn func(ctx context.Context, prefix string) (int, error)
	CloseFn        func() error
}

// Get implements the interface method for testing.
func (m *MockCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	panic("unexpected call to MockCache.Get")
}

// Set implements the interface method for testing.
func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFn != nil {
		return m.SetFn(ctx, key, value, ttl)
	}
	panic("unexpected call to MockCache.Set")
}

// Delete implements the interface method for testing.
func (m *MockCache) Delete(ctx context.Context, key string) (bool, error) {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key)
	}
	panic("unexpected call to MockCache.Delete")
}

// DeletePrefix implements the interface method for testing.
func (m *MockCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if m.DeletePrefixFn != nil {
		return m.DeletePrefixFn(ctx, prefix)
	}
	panic("unexpected call to MockCache.DeletePrefix")
}

// Close implements the interface method for testing.
func (m *MockCache) Close() error {
	if m.CloseFn != nil {
		return m.CloseFn()
	}
	return nil
}

// === Schema Extractor Mock ===

// MockExtractor implements domain.SchemaExtractor for testing.
type MockExtractor struct {
	ExtractFn func(ctx context.Context) (*domain.Schema, error)

	calls atomic.Int64
}

// Extract implements the interface method for testing.
func (m *MockExtractor) Extract(ctx context.Context) (*domain.Schema, error) {
	m.calls.Add(1)
	if m.ExtractFn != nil {
		return m.ExtractFn(ctx)
	}
	panic("unexpected call to MockExtractor.Extract")
}

// Calls returns the number of Extract calls.
func (m *MockExtractor) Calls() int {
	return int(m.calls.Load())
}
