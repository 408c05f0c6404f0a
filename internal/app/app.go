// Package app provides application-level wiring and dependency injection
// for insightql.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"insightql/internal/cache"
	"insightql/internal/chart"
	"insightql/internal/config"
	"insightql/internal/db"
	"insightql/internal/domain"
	"insightql/internal/engine"
	"insightql/internal/schema"
	"insightql/internal/service/analysis"
	"insightql/internal/sqlguard"
)

// App holds the fully-wired pipeline and the resources it owns.
type App struct {
	Analysis *analysis.Service
	Schema   *schema.Provider
	Guard    *sqlguard.Guard
	Executor *engine.Executor
	Cache    domain.Cache
	DB       *sql.DB
	Dialect  db.Dialect

	logger *slog.Logger
}

// New opens the database pool and cache named by cfg and wires every
// component over them. The caller must Close the returned App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	pool, dialect, err := db.Open(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store, err := cache.Open(ctx, cfg.CacheURL)
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}

	extractor, err := schema.ForDialect(pool, dialect)
	if err != nil {
		_ = store.Close()
		_ = pool.Close()
		return nil, err
	}

	profiler, err := chart.ProfilerByName(cfg.ChartProfiler)
	if err != nil {
		_ = store.Close()
		_ = pool.Close()
		return nil, domain.ErrValidation("%v", err)
	}

	guard := sqlguard.New(cfg.ForbiddenKeywords)
	executor := engine.NewExecutor(pool, logger)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	svc := analysis.NewService(guard, executor, store, chart.NewEngine(profiler), analysis.Options{
		MaxRows:      cfg.MaxRows,
		QueryTimeout: cfg.QueryTimeout,
		CacheTTL:     cfg.CacheTTL,
		ClampLimit:   cfg.ClampLimit,
		QueryLogging: cfg.QueryLogging,
		Limiter:      limiter,
	}, logger)

	logger.Info("pipeline ready", "dialect", dialect, "cache", cacheKind(cfg.CacheURL), "profiler", cfg.ChartProfiler, "max_rows", cfg.MaxRows, "timeout", cfg.QueryTimeout)

	return &App{
		Analysis: svc,
		Schema:   schema.NewProvider(extractor, store, cfg.DatabaseURL, cfg.CacheTTL, cfg.SchemaCachePermanent, logger),
		Guard:    guard,
		Executor: executor,
		Cache:    store,
		DB:       pool,
		Dialect:  dialect,
		logger:   logger,
	}, nil
}

// Close releases the cache connection, then the database pool.
func (a *App) Close() error {
	return errors.Join(a.Cache.Close(), a.DB.Close())
}

func cacheKind(url string) string {
	if url == "" || url == config.DefaultCacheURL {
		return "memory"
	}
	return "redis"
}
