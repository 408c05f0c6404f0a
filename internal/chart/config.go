package chart

import "insightql/internal/domain"

// BuildConfig attaches the fields specific to chart to the result's data.
func BuildConfig(chart domain.ChartType, res *domain.QueryResult, shape domain.DataShape) *domain.ChartConfig {
	cols := res.Columns
	cfg := &domain.ChartConfig{
		Type:    chart,
		Data:    res.Rows,
		Columns: cols,
	}
	if len(cols) == 0 {
		return cfg
	}
	last := cols[len(cols)-1]

	switch chart {
	case domain.ChartKPI:
		if len(res.Rows) > 0 {
			cfg.Metric = &domain.KPIMetric{Label: cols[0], Value: res.Rows[0][cols[0]]}
		}
	case domain.ChartLine:
		cfg.XAxis = firstOr(shape.DateColumns, cols[0])
		cfg.YAxis = append([]string{}, shape.NumericColumns...)
	case domain.ChartBar:
		cfg.XAxis = firstOr(shape.TextColumns, cols[0])
		cfg.YAxis = firstOr(shape.NumericColumns, last)
	case domain.ChartPie:
		cfg.LabelColumn = firstOr(shape.TextColumns, cols[0])
		cfg.ValueColumn = firstOr(shape.NumericColumns, last)
	case domain.ChartScatter:
		cfg.XAxis = firstOr(shape.NumericColumns, cols[0])
		switch {
		case len(shape.NumericColumns) > 1:
			cfg.YAxis = shape.NumericColumns[1]
		case len(cols) > 1:
			cfg.YAxis = cols[1]
		default:
			cfg.YAxis = cols[0]
		}
	}
	return cfg
}

func firstOr(cols []string, fallback string) string {
	if len(cols) > 0 {
		return cols[0]
	}
	return fallback
}
