package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightql/internal/domain"
)

func TestParseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    Target
		wantErr bool
	}{
		{name: "relative sqlite", raw: "sqlite://./sample.db", want: Target{Dialect: DialectSQLite, Location: "./sample.db"}},
		{name: "absolute sqlite", raw: "sqlite:///var/data/app.db", want: Target{Dialect: DialectSQLite, Location: "/var/data/app.db"}},
		{name: "sqlite3 alias with params", raw: "sqlite3://data.db?cache=shared", want: Target{Dialect: DialectSQLite, Location: "data.db"}},
		{name: "duckdb file", raw: "duckdb://./wh.duckdb", want: Target{Dialect: DialectDuckDB, Location: "./wh.duckdb"}},
		{name: "duckdb memory", raw: "duckdb://", want: Target{Dialect: DialectDuckDB}},
		{name: "postgres", raw: "postgres://u:p@localhost:5432/app", want: Target{Dialect: DialectPostgres, Location: "postgres://u:p@localhost:5432/app"}},
		{name: "postgresql", raw: "postgresql://localhost/app", want: Target{Dialect: DialectPostgres, Location: "postgresql://localhost/app"}},
		{name: "mysql", raw: "mysql://u:p@db:3306/shop", want: Target{Dialect: DialectMySQL, Location: "mysql://u:p@db:3306/shop"}},
		{name: "snowflake", raw: "snowflake://u:p@acct/db/public?warehouse=wh", want: Target{Dialect: DialectSnowflake, Location: "u:p@acct/db/public?warehouse=wh"}},
		{name: "no scheme", raw: "./sample.db", wantErr: true},
		{name: "empty sqlite path", raw: "sqlite://", wantErr: true},
		{name: "unknown scheme", raw: "oracle://x", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseURL(tc.raw)
			if tc.wantErr {
				var ve *domain.ValidationError
				require.ErrorAs(t, err, &ve)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOpen_SQLite(t *testing.T) {
	t.Parallel()

	path := TestSQLitePath(t)
	db, dialect, err := Open(context.Background(), "sqlite://"+path, PoolOptions{MaxOpenConns: 3})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, DialectSQLite, dialect)
	assert.Equal(t, 3, db.Stats().MaxOpenConnections)

	var n int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM products").Scan(&n))
	assert.Equal(t, 8, n)
}

func TestOpen_SQLiteMissingFile(t *testing.T) {
	t.Parallel()

	_, _, err := Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "missing.db"), PoolOptions{})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestOpen_DuckDBMemory(t *testing.T) {
	t.Parallel()

	db, dialect, err := Open(context.Background(), "duckdb://", PoolOptions{MaxOpenConns: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, DialectDuckDB, dialect)
	var n int
	require.NoError(t, db.QueryRow("SELECT 42").Scan(&n))
	assert.Equal(t, 42, n)
}

func TestOpenWritable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seed.db")
	db, dialect, err := OpenWritable(context.Background(), "sqlite://"+path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.Equal(t, DialectSQLite, dialect)

	applied, err := RunMigrations(context.Background(), db, dialect)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	_, _, err = OpenWritable(context.Background(), "duckdb://x.duckdb")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}
