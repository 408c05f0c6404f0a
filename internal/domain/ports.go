package domain

import (
	"context"
	"time"
)

// QueryExecutor runs one validated SQL statement under a hard deadline.
// Implemented by engine.Executor.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string, timeout time.Duration) (*QueryResult, error)
}

// Cache is a key/value store with per-entry TTL. A zero TTL means no expiry.
// Implemented by cache.Memory and cache.Redis.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}

// Profiler derives a DataShape from a result set.
// Implemented by chart.FirstRowProfiler.
type Profiler interface {
	Profile(columns []string, rows []map[string]any) DataShape
}

// SchemaExtractor reads the structure of the connected database.
// Implemented by schema.SQLiteExtractor and schema.InformationSchemaExtractor.
type SchemaExtractor interface {
	Extract(ctx context.Context) (*Schema, error)
}
