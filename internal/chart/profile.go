// Package chart classifies query results into a visualization type.
//
// Classification has three steps: profile the result into a DataShape, pick a
// chart type with an ordered rule cascade, and attach type-specific fields.
// The profiler is pluggable; the cascade is not.
package chart

import (
	"encoding/json"
	"strings"

	"insightql/internal/domain"
)

// Column name fragments that mark a string column as a date.
var dateHints = []string{"date", "time", "year", "month", "day"}

// Column name fragments that mark a result as aggregated.
var aggregateHints = []string{"sum", "avg", "count", "min", "max"}

// Compile-time checks.
var (
	_ domain.Profiler = FirstRowProfiler{}
	_ domain.Profiler = FirstNonNullProfiler{}
)

// FirstRowProfiler types every column from the first row only. Columns whose
// first value is null are left unclassified, as are values that are neither
// numbers nor strings.
type FirstRowProfiler struct{}

// Profile implements domain.Profiler.
func (FirstRowProfiler) Profile(columns []string, rows []map[string]any) domain.DataShape {
	if len(rows) == 0 {
		return emptyShape(columns)
	}
	return buildShape(columns, len(rows), func(col string) any { return rows[0][col] })
}

// FirstNonNullProfiler types each column from its first non-null value, so a
// leading null does not hide a column from chart selection.
type FirstNonNullProfiler struct{}

// Profile implements domain.Profiler.
func (FirstNonNullProfiler) Profile(columns []string, rows []map[string]any) domain.DataShape {
	if len(rows) == 0 {
		return emptyShape(columns)
	}
	return buildShape(columns, len(rows), func(col string) any {
		for _, row := range rows {
			if v := row[col]; v != nil {
				return v
			}
		}
		return nil
	})
}

func emptyShape(columns []string) domain.DataShape {
	return domain.DataShape{
		NumColumns:     len(columns),
		NumericColumns: []string{},
		TextColumns:    []string{},
		DateColumns:    []string{},
	}
}

func buildShape(columns []string, numRows int, sample func(col string) any) domain.DataShape {
	shape := emptyShape(columns)
	shape.NumRows = numRows

	for _, col := range columns {
		switch kind := classify(col, sample(col)); kind {
		case kindNumeric:
			shape.NumericColumns = append(shape.NumericColumns, col)
		case kindDate:
			shape.DateColumns = append(shape.DateColumns, col)
		case kindText:
			shape.TextColumns = append(shape.TextColumns, col)
		}
	}

	for _, col := range columns {
		if containsAny(col, aggregateHints) {
			shape.IsAggregated = true
			break
		}
	}
	shape.HasTimeSeries = len(shape.DateColumns) > 0 && len(shape.NumericColumns) > 0
	return shape
}

type valueKind int

const (
	kindNone valueKind = iota
	kindNumeric
	kindDate
	kindText
)

func classify(col string, v any) valueKind {
	switch v.(type) {
	case nil:
		return kindNone
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return kindNumeric
	case string:
		if containsAny(col, dateHints) {
			return kindDate
		}
		return kindText
	default:
		return kindNone
	}
}

func containsAny(col string, fragments []string) bool {
	lower := strings.ToLower(col)
	for _, f := range fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
