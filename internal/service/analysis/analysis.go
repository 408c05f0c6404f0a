// Package analysis runs the plan-to-chart pipeline: compile, gate, cache,
// execute, classify.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"insightql/internal/cache"
	"insightql/internal/chart"
	"insightql/internal/domain"
	"insightql/internal/plansql"
	"insightql/internal/sqlguard"
)

// maxLoggedSQL is how much of a statement is written to the query log.
const maxLoggedSQL = 200

// Options tunes the pipeline.
type Options struct {
	MaxRows      int
	QueryTimeout time.Duration
	CacheTTL     time.Duration
	// ClampLimit lowers an explicit trailing LIMIT above MaxRows.
	ClampLimit   bool
	QueryLogging bool
	// Limiter bounds how often queries reach the database. Nil means unlimited.
	Limiter *rate.Limiter
}

// Service executes analysis plans and raw SQL through the safety gate.
type Service struct {
	guard    *sqlguard.Guard
	executor domain.QueryExecutor
	cache    domain.Cache
	charts   *chart.Engine
	opts     Options
	logger   *slog.Logger
}

// NewService creates a Service. cache may be nil to disable result caching.
func NewService(guard *sqlguard.Guard, executor domain.QueryExecutor, c domain.Cache, charts *chart.Engine, opts Options, logger *slog.Logger) *Service {
	return &Service{
		guard:    guard,
		executor: executor,
		cache:    c,
		charts:   charts,
		opts:     opts,
		logger:   logger.With("component", "analysis"),
	}
}

// Compile turns a plan into the SQL that Run would execute, including the
// gate and the row limit, without touching the database.
func (s *Service) Compile(plan *domain.AnalysisPlan) (string, error) {
	sql, err := plansql.Compile(plan, s.opts.MaxRows)
	if err != nil {
		return "", err
	}
	return s.gate(sql)
}

// Run compiles the plan, executes it (or reuses a cached result) and picks a
// chart for the result. The plan's recommended chart is honored when its
// rule matches the result shape.
func (s *Service) Run(ctx context.Context, plan *domain.AnalysisPlan) (*domain.AnalysisResult, error) {
	runID := domain.NewID()
	logger := s.logger.With("run_id", runID, "table", plan.Table)
	start := time.Now()

	sql, err := s.Compile(plan)
	if err != nil {
		logger.Info("plan rejected", "kind", domain.ErrorKind(err), "error", err)
		return nil, err
	}

	res, cached, err := s.execute(ctx, logger, sql)
	if err != nil {
		return nil, err
	}

	out := &domain.AnalysisResult{
		RunID:      runID,
		Plan:       plan,
		SQL:        sql,
		Data:       res,
		Chart:      s.charts.ClassifyWithHint(res, plan.RecommendedChart),
		Cached:     cached,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if rc := domain.ChartType(plan.RecommendedChart); rc.IsValid() {
		out.RecommendedChart = rc
	}
	logger.Info("analysis complete", "rows", res.RowCount, "chart", out.Chart.Type, "cached", cached, "duration_ms", out.DurationMs)
	return out, nil
}

// RunSQL executes caller-supplied SQL. It passes the same gate, limit, cache
// and classification steps as Run.
func (s *Service) RunSQL(ctx context.Context, query string) (*domain.AnalysisResult, error) {
	runID := domain.NewID()
	logger := s.logger.With("run_id", runID)
	start := time.Now()

	sql, err := s.gate(query)
	if err != nil {
		logger.Info("sql rejected", "kind", domain.ErrorKind(err), "error", err)
		return nil, err
	}

	res, cached, err := s.execute(ctx, logger, sql)
	if err != nil {
		return nil, err
	}
	return &domain.AnalysisResult{
		RunID:      runID,
		SQL:        sql,
		Data:       res,
		Chart:      s.charts.Classify(res),
		Cached:     cached,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

// ClearCache removes cached query results, or every entry under prefix when
// prefix is not empty.
func (s *Service) ClearCache(ctx context.Context, prefix string) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	if prefix == "" {
		prefix = cache.PrefixSQLResult + ":"
	}
	n, err := s.cache.DeletePrefix(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	s.logger.Info("cache cleared", "prefix", prefix, "deleted", n)
	return n, nil
}

// gate validates sql and applies the row limit.
func (s *Service) gate(sql string) (string, error) {
	if err := s.guard.Validate(sql); err != nil {
		return "", err
	}
	if s.opts.ClampLimit {
		sql = sqlguard.ClampLimit(sql, s.opts.MaxRows)
	}
	return sqlguard.EnsureLimit(sql, s.opts.MaxRows), nil
}

// execute returns the cached result for sql or runs it and caches the result.
func (s *Service) execute(ctx context.Context, logger *slog.Logger, sql string) (*domain.QueryResult, bool, error) {
	key := cache.Key(cache.PrefixSQLResult, sql)

	if res, ok := s.lookup(ctx, logger, key); ok {
		logger.Debug("result cache hit", "key", key)
		return res, true, nil
	}

	if s.opts.Limiter != nil {
		if err := s.opts.Limiter.Wait(ctx); err != nil {
			return nil, false, fmt.Errorf("wait for query slot: %w", err)
		}
	}

	if s.opts.QueryLogging {
		logger.Info("executing query", "sql", truncate(sql, maxLoggedSQL))
	}
	start := time.Now()
	res, err := s.executor.Execute(ctx, sql, s.opts.QueryTimeout)
	if err != nil {
		var timeoutErr *domain.ExecutionTimeout
		if errors.As(err, &timeoutErr) {
			logger.Warn("query timed out", "timeout", timeoutErr.Timeout)
		} else {
			logger.Warn("query failed", "kind", domain.ErrorKind(err), "error", err)
		}
		return nil, false, err
	}
	logger.Debug("query executed", "rows", res.RowCount, "duration", time.Since(start))

	s.store(ctx, logger, key, res)
	return res, false, nil
}

func (s *Service) lookup(ctx context.Context, logger *slog.Logger, key string) (*domain.QueryResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("result cache read failed", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	res, err := cache.DecodeResult(raw)
	if err != nil {
		logger.Warn("discarding undecodable cached result", "error", err)
		return nil, false
	}
	return res, true
}

func (s *Service) store(ctx context.Context, logger *slog.Logger, key string, res *domain.QueryResult) {
	if s.cache == nil {
		return
	}
	raw, err := cache.EncodeResult(res)
	if err != nil {
		logger.Warn("encode result for cache", "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.opts.CacheTTL); err != nil {
		logger.Warn("result cache write failed", "error", err)
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
