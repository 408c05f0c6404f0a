package domain

// QueryResult holds the materialized output of one query execution.
// It is built once per execution and not mutated afterwards.
type QueryResult struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// ChartType is the visualization selected for a result.
type ChartType string

// Chart types, in the order the selection cascade tries them.
const (
	ChartKPI     ChartType = "kpi"
	ChartLine    ChartType = "line"
	ChartBar     ChartType = "bar"
	ChartScatter ChartType = "scatter"
	ChartPie     ChartType = "pie"
	ChartTable   ChartType = "table"
)

// IsValid reports whether t is a known chart type.
func (t ChartType) IsValid() bool {
	switch t {
	case ChartKPI, ChartLine, ChartBar, ChartScatter, ChartPie, ChartTable:
		return true
	}
	return false
}

// DataShape is the derived profile of a result used to pick a chart.
type DataShape struct {
	NumColumns     int      `json:"num_columns"`
	NumRows        int      `json:"num_rows"`
	HasTimeSeries  bool     `json:"has_time_series"`
	NumericColumns []string `json:"numeric_columns"`
	TextColumns    []string `json:"text_columns"`
	DateColumns    []string `json:"date_columns"`
	IsAggregated   bool     `json:"is_aggregated"`
}

// KPIMetric is the single value shown by a kpi chart.
type KPIMetric struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// ChartConfig describes how the presentation layer should render a result.
//
// YAxis is a []string for line charts (every numeric column) and a single
// column name for bar and scatter charts.
type ChartConfig struct {
	Type        ChartType        `json:"type"`
	Data        []map[string]any `json:"data"`
	Columns     []string         `json:"columns"`
	Metric      *KPIMetric       `json:"metric,omitempty"`
	XAxis       string           `json:"xAxis,omitempty"`
	YAxis       any              `json:"yAxis,omitempty"`
	LabelColumn string           `json:"labelColumn,omitempty"`
	ValueColumn string           `json:"valueColumn,omitempty"`
}

// AnalysisResult is everything the pipeline hands to the presentation layer.
type AnalysisResult struct {
	RunID            string        `json:"run_id"`
	Plan             *AnalysisPlan `json:"plan,omitempty"`
	SQL              string        `json:"sql"`
	Data             *QueryResult  `json:"data"`
	Chart            *ChartConfig  `json:"chart"`
	RecommendedChart ChartType     `json:"recommended_chart,omitempty"`
	Cached           bool          `json:"cached"`
	DurationMs       int64         `json:"duration_ms"`
}
