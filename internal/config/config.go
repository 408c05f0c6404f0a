// Package config handles application configuration and environment loading.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"insightql/internal/chart"
	"insightql/internal/sqlguard"
)

// Defaults.
const (
	DefaultDatabaseURL  = "sqlite://./sample.db"
	DefaultCacheURL     = "memory://"
	DefaultMaxRows      = 10000
	DefaultQueryTimeout = 30 * time.Second
	DefaultCacheTTL     = time.Hour
)

// Config holds the pipeline, database and cache configuration.
type Config struct {
	DatabaseURL string // sqlite://, duckdb://, postgres://, mysql:// or snowflake://
	CacheURL    string // memory:// or redis://
	LogLevel    string // log level: debug, info, warn, error (default "info")

	MaxRows              int           // row limit appended to every statement
	QueryTimeout         time.Duration // per-query deadline
	CacheTTL             time.Duration // lifetime of cached query results
	SchemaCachePermanent bool          // cached schemas never expire
	ForbiddenKeywords    []string      // safety gate denylist
	ClampLimit           bool          // lower explicit LIMITs above MaxRows
	QueryLogging         bool          // log executed SQL (truncated)
	ChartProfiler        string        // first_row or first_non_null

	// Connection pool
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration // 0 keeps connections forever

	// Execution admission; RPS 0 disables the limiter.
	RateLimitRPS   float64
	RateLimitBurst int

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if c.MaxRows <= 0 {
		return fmt.Errorf("MAX_ROWS must be positive, got %d", c.MaxRows)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("QUERY_TIMEOUT_SECONDS must be positive, got %s", c.QueryTimeout)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must not be negative, got %s", c.CacheTTL)
	}
	if _, err := chart.ProfilerByName(c.ChartProfiler); err != nil {
		return fmt.Errorf("CHART_PROFILER: %w", err)
	}
	if c.DBConnMaxLifetime < 0 {
		return fmt.Errorf("DB_CONN_MAX_LIFETIME_SECONDS must not be negative, got %s", c.DBConnMaxLifetime)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("QUERY_RATE_LIMIT_RPS must not be negative, got %g", c.RateLimitRPS)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst <= 0 {
		return fmt.Errorf("QUERY_RATE_LIMIT_BURST must be positive when QUERY_RATE_LIMIT_RPS is set")
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables. Unparseable
// values fall back to their defaults and are reported in Warnings.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		CacheURL:      os.Getenv("CACHE_URL"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		ChartProfiler: strings.ToLower(strings.TrimSpace(os.Getenv("CHART_PROFILER"))),
	}
	cfg.SchemaCachePermanent = cfg.boolEnv("SCHEMA_CACHE_PERMANENT", true)
	cfg.ClampLimit = cfg.boolEnv("ANALYTICS_CLAMP_LIMIT", false)
	cfg.QueryLogging = cfg.boolEnv("ENABLE_QUERY_LOGGING", true)

	cfg.MaxRows = cfg.intEnv("MAX_ROWS", DefaultMaxRows)
	cfg.QueryTimeout = cfg.secondsEnv("QUERY_TIMEOUT_SECONDS", DefaultQueryTimeout)
	cfg.CacheTTL = cfg.secondsEnv("CACHE_TTL_SECONDS", DefaultCacheTTL)
	cfg.DBMaxOpenConns = cfg.intEnv("DB_MAX_OPEN_CONNS", 5)
	cfg.DBMaxIdleConns = cfg.intEnv("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = cfg.secondsEnv("DB_CONN_MAX_LIFETIME_SECONDS", 0)
	cfg.RateLimitBurst = cfg.intEnv("QUERY_RATE_LIMIT_BURST", 1)
	if v := os.Getenv("QUERY_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		} else {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("QUERY_RATE_LIMIT_RPS=%q is not a number; rate limiting disabled", v))
		}
	}

	if v := os.Getenv("SQL_FORBIDDEN_KEYWORDS"); v != "" {
		cfg.ForbiddenKeywords = compactNonEmpty(strings.Split(v, ","))
		for i := range cfg.ForbiddenKeywords {
			cfg.ForbiddenKeywords[i] = strings.ToUpper(cfg.ForbiddenKeywords[i])
		}
	}

	// Defaults
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = DefaultDatabaseURL
	}
	if cfg.CacheURL == "" {
		cfg.CacheURL = DefaultCacheURL
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ChartProfiler == "" {
		cfg.ChartProfiler = chart.ProfilerFirstRow
	}
	if len(cfg.ForbiddenKeywords) == 0 {
		cfg.ForbiddenKeywords = append([]string(nil), sqlguard.DefaultForbiddenKeywords...)
	}
	if cfg.ClampLimit {
		cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ANALYTICS_CLAMP_LIMIT is on: explicit LIMITs above %d are lowered", cfg.MaxRows))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) intEnv(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not an integer; using %d", key, v, defaultVal))
		return defaultVal
	}
	return n
}

func (c *Config) secondsEnv(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not a number of seconds; using %s", key, v, defaultVal))
		return defaultVal
	}
	return time.Duration(f * float64(time.Second))
}

func (c *Config) boolEnv(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "":
		return defaultVal
	case "0", "false", "no", "off":
		return false
	case "1", "true", "yes", "on":
		return true
	}
	c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not a boolean; using %t", key, v, defaultVal))
	return defaultVal
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
