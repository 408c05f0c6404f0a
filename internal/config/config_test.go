package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightql/internal/sqlguard"
)

var allKeys = []string{
	"DATABASE_URL", "CACHE_URL", "LOG_LEVEL", "MAX_ROWS", "QUERY_TIMEOUT_SECONDS",
	"CACHE_TTL_SECONDS", "SCHEMA_CACHE_PERMANENT", "SQL_FORBIDDEN_KEYWORDS",
	"ANALYTICS_CLAMP_LIMIT", "ENABLE_QUERY_LOGGING", "DB_MAX_OPEN_CONNS",
	"DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME_SECONDS", "QUERY_RATE_LIMIT_RPS",
	"QUERY_RATE_LIMIT_BURST", "CHART_PROFILER",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sqlite://./sample.db", cfg.DatabaseURL)
	assert.Equal(t, "memory://", cfg.CacheURL)
	assert.Equal(t, 10000, cfg.MaxRows)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.True(t, cfg.SchemaCachePermanent)
	assert.False(t, cfg.ClampLimit)
	assert.True(t, cfg.QueryLogging)
	assert.Equal(t, 5, cfg.DBMaxOpenConns)
	assert.Equal(t, 5, cfg.DBMaxIdleConns)
	assert.Zero(t, cfg.DBConnMaxLifetime)
	assert.Equal(t, "first_row", cfg.ChartProfiler)
	assert.Zero(t, cfg.RateLimitRPS)
	assert.Equal(t, 1, cfg.RateLimitBurst)
	assert.Equal(t, sqlguard.DefaultForbiddenKeywords, cfg.ForbiddenKeywords)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "duckdb://./warehouse.duckdb")
	t.Setenv("CACHE_URL", "redis://localhost:6379/1")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAX_ROWS", "500")
	t.Setenv("QUERY_TIMEOUT_SECONDS", "2.5")
	t.Setenv("CACHE_TTL_SECONDS", "60")
	t.Setenv("SCHEMA_CACHE_PERMANENT", "false")
	t.Setenv("SQL_FORBIDDEN_KEYWORDS", "drop, delete,,pragma")
	t.Setenv("ANALYTICS_CLAMP_LIMIT", "true")
	t.Setenv("ENABLE_QUERY_LOGGING", "off")
	t.Setenv("DB_MAX_OPEN_CONNS", "12")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME_SECONDS", "300")
	t.Setenv("CHART_PROFILER", "First_Non_Null")
	t.Setenv("QUERY_RATE_LIMIT_RPS", "20")
	t.Setenv("QUERY_RATE_LIMIT_BURST", "4")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "duckdb://./warehouse.duckdb", cfg.DatabaseURL)
	assert.Equal(t, "redis://localhost:6379/1", cfg.CacheURL)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, 500, cfg.MaxRows)
	assert.Equal(t, 2500*time.Millisecond, cfg.QueryTimeout)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.SchemaCachePermanent)
	assert.Equal(t, []string{"DROP", "DELETE", "PRAGMA"}, cfg.ForbiddenKeywords)
	assert.True(t, cfg.ClampLimit)
	assert.False(t, cfg.QueryLogging)
	assert.Equal(t, 12, cfg.DBMaxOpenConns)
	assert.Equal(t, 3, cfg.DBMaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, "first_non_null", cfg.ChartProfiler)
	assert.InDelta(t, 20.0, cfg.RateLimitRPS, 1e-9)
	assert.Equal(t, 4, cfg.RateLimitBurst)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "ANALYTICS_CLAMP_LIMIT")
}

func TestLoadFromEnv_UnparseableValuesWarn(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_ROWS", "lots")
	t.Setenv("QUERY_TIMEOUT_SECONDS", "soon")
	t.Setenv("QUERY_RATE_LIMIT_RPS", "fast")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRows, cfg.MaxRows)
	assert.Equal(t, DefaultQueryTimeout, cfg.QueryTimeout)
	assert.Zero(t, cfg.RateLimitRPS)
	assert.Len(t, cfg.Warnings, 3)
}

func TestLoadFromEnv_UnrecognisedBooleansWarn(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANALYTICS_CLAMP_LIMIT", "maybe")
	t.Setenv("ENABLE_QUERY_LOGGING", "sometimes")
	t.Setenv("SCHEMA_CACHE_PERMANENT", "Yes")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.ClampLimit)
	assert.True(t, cfg.QueryLogging)
	assert.True(t, cfg.SchemaCachePermanent)
	require.Len(t, cfg.Warnings, 2)
	assert.Contains(t, cfg.Warnings[0], "ANALYTICS_CLAMP_LIMIT")
	assert.Contains(t, cfg.Warnings[1], "ENABLE_QUERY_LOGGING")
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "zero rows", key: "MAX_ROWS", value: "0", wantErr: "MAX_ROWS"},
		{name: "negative rows", key: "MAX_ROWS", value: "-5", wantErr: "MAX_ROWS"},
		{name: "zero timeout", key: "QUERY_TIMEOUT_SECONDS", value: "0", wantErr: "QUERY_TIMEOUT_SECONDS"},
		{name: "negative ttl", key: "CACHE_TTL_SECONDS", value: "-1", wantErr: "CACHE_TTL_SECONDS"},
		{name: "negative lifetime", key: "DB_CONN_MAX_LIFETIME_SECONDS", value: "-1", wantErr: "DB_CONN_MAX_LIFETIME_SECONDS"},
		{name: "unknown profiler", key: "CHART_PROFILER", value: "every_row", wantErr: "CHART_PROFILER"},
		{name: "negative rps", key: "QUERY_RATE_LIMIT_RPS", value: "-1", wantErr: "QUERY_RATE_LIMIT_RPS"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := LoadFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidate_RateLimitNeedsBurst(t *testing.T) {
	cfg := &Config{DatabaseURL: DefaultDatabaseURL, MaxRows: 1, QueryTimeout: time.Second, RateLimitRPS: 5}
	require.Error(t, cfg.Validate())

	cfg.RateLimitBurst = 1
	require.NoError(t, cfg.Validate())
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range tests {
		cfg := &Config{LogLevel: tc.level}
		assert.Equal(t, tc.want, cfg.SlogLevel(), tc.level)
	}
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	err := LoadDotEnv("/nonexistent/.env")
	if err != nil {
		t.Errorf("expected no error for missing .env, got: %v", err)
	}
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("# comment\nTEST_KEY=test_value\nTEST_QUOTED=\"quoted value\"\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("TEST_KEY"); val != "test_value" {
		t.Errorf("TEST_KEY = %q, want %q", val, "test_value")
	}
	if val := os.Getenv("TEST_QUOTED"); val != "quoted value" {
		t.Errorf("TEST_QUOTED = %q, want %q", val, "quoted value")
	}
	_ = os.Unsetenv("TEST_KEY")
	_ = os.Unsetenv("TEST_QUOTED")
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("TEST_PRECEDENCE_KEY", "from_env")

	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("TEST_PRECEDENCE_KEY=from_file\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("TEST_PRECEDENCE_KEY"); val != "from_env" {
		t.Errorf("TEST_PRECEDENCE_KEY = %q, want %q (env precedence)", val, "from_env")
	}
}

func TestLoadDotEnv_FeedsLoadFromEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("MAX_ROWS") //nolint:errcheck
	t.Cleanup(func() { _ = os.Unsetenv("MAX_ROWS") })

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MAX_ROWS=250\n"), 0644))
	require.NoError(t, LoadDotEnv(envFile))

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.MaxRows)
}
