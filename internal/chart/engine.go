package chart

import (
	"fmt"

	"insightql/internal/domain"
)

// Profiler names accepted by ProfilerByName.
const (
	ProfilerFirstRow     = "first_row"
	ProfilerFirstNonNull = "first_non_null"
)

// ProfilerByName returns the profiler registered under name. An empty name
// selects FirstRowProfiler.
func ProfilerByName(name string) (domain.Profiler, error) {
	switch name {
	case "", ProfilerFirstRow:
		return FirstRowProfiler{}, nil
	case ProfilerFirstNonNull:
		return FirstNonNullProfiler{}, nil
	default:
		return nil, fmt.Errorf("unknown chart profiler %q (want %s or %s)", name, ProfilerFirstRow, ProfilerFirstNonNull)
	}
}

// Engine classifies results with a swappable profiler.
type Engine struct {
	profiler domain.Profiler
}

// NewEngine creates an Engine. A nil profiler defaults to FirstRowProfiler.
func NewEngine(p domain.Profiler) *Engine {
	if p == nil {
		p = FirstRowProfiler{}
	}
	return &Engine{profiler: p}
}

// Shape profiles a result.
func (e *Engine) Shape(res *domain.QueryResult) domain.DataShape {
	return e.profiler.Profile(res.Columns, res.Rows)
}

// Classify profiles res, selects a chart type and builds its config.
func (e *Engine) Classify(res *domain.QueryResult) *domain.ChartConfig {
	shape := e.Shape(res)
	return BuildConfig(SelectType(shape), res, shape)
}

// ClassifyWithHint is Classify, except that hint replaces the cascade's pick
// when hint names a chart type whose rule also matches the shape. Unknown or
// ineligible hints are ignored.
func (e *Engine) ClassifyWithHint(res *domain.QueryResult, hint string) *domain.ChartConfig {
	shape := e.Shape(res)
	chart := SelectType(shape)
	if h := domain.ChartType(hint); h.IsValid() && IsEligible(shape, h) {
		chart = h
	}
	return BuildConfig(chart, res, shape)
}
