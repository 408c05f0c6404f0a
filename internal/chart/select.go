package chart

import "insightql/internal/domain"

type rule struct {
	chart domain.ChartType
	match func(s domain.DataShape) bool
}

// cascade is evaluated top to bottom; the first match wins.
var cascade = []rule{
	{domain.ChartKPI, func(s domain.DataShape) bool {
		return s.NumColumns == 1 && s.NumRows == 1
	}},
	{domain.ChartLine, func(s domain.DataShape) bool {
		return s.HasTimeSeries && len(s.NumericColumns) >= 1
	}},
	{domain.ChartBar, func(s domain.DataShape) bool {
		return len(s.TextColumns) >= 1 && len(s.NumericColumns) >= 1
	}},
	{domain.ChartScatter, func(s domain.DataShape) bool {
		return len(s.NumericColumns) >= 2 && len(s.TextColumns) == 0
	}},
	{domain.ChartPie, func(s domain.DataShape) bool {
		return s.NumRows <= 10 && len(s.TextColumns) == 1 && len(s.NumericColumns) == 1
	}},
}

// SelectType returns the first chart type in the cascade whose rule matches,
// or table.
func SelectType(shape domain.DataShape) domain.ChartType {
	for _, r := range cascade {
		if r.match(shape) {
			return r.chart
		}
	}
	return domain.ChartTable
}

// Eligible returns every chart type whose rule matches the shape, in cascade
// order. Table is always last.
func Eligible(shape domain.DataShape) []domain.ChartType {
	var out []domain.ChartType
	for _, r := range cascade {
		if r.match(shape) {
			out = append(out, r.chart)
		}
	}
	return append(out, domain.ChartTable)
}

// IsEligible reports whether chart's rule matches the shape.
func IsEligible(shape domain.DataShape, chart domain.ChartType) bool {
	for _, c := range Eligible(shape) {
		if c == chart {
			return true
		}
	}
	return false
}
