// Package plansql compiles analysis plans into a single read-only SELECT statement.
//
// Compilation is pure text assembly: dimensions, columns and table names are
// emitted verbatim and string filter values are single-quoted without escaping.
// Every statement produced here must still pass through the sqlguard gate
// before it reaches a database.
package plansql

import (
	"fmt"
	"strconv"
	"strings"

	"insightql/internal/domain"
)

// Compile renders plan as SQL. Clauses are joined with a newline and absent
// clauses are omitted. The output is byte-identical for identical input.
func Compile(plan *domain.AnalysisPlan, rowLimit int) (string, error) {
	if err := plan.Validate(); err != nil {
		return "", err
	}
	if err := checkLimit(rowLimit); err != nil {
		return "", err
	}

	clauses := []string{
		"SELECT " + projection(plan),
		"FROM " + plan.Table,
	}
	for _, j := range plan.Joins {
		clauses = append(clauses, fmt.Sprintf("JOIN %s ON %s.%s = %s.%s",
			j.Table, j.JoinFrom, j.FromColumn, j.Table, j.OnColumn))
	}
	if where := whereClause(plan.Filters); where != "" {
		clauses = append(clauses, where)
	}
	if len(plan.Metrics) > 0 {
		if len(plan.Dimensions) > 0 {
			clauses = append(clauses, "GROUP BY "+strings.Join(plan.Dimensions, ", "))
		}
		clauses = append(clauses, "ORDER BY "+MetricAlias(plan.Metrics[0])+" DESC")
	}
	clauses = append(clauses, "LIMIT "+strconv.Itoa(rowLimit))

	return strings.Join(clauses, "\n"), nil
}

// CompileSimple renders a plain `SELECT columns FROM table [WHERE ...] LIMIT n`
// with no joins or aggregation. An empty column list selects `*`.
func CompileSimple(table string, columns []string, filters []domain.Filter, rowLimit int) (string, error) {
	plan := &domain.AnalysisPlan{Table: table, Dimensions: columns, Filters: filters}
	if err := plan.Validate(); err != nil {
		return "", err
	}
	if err := checkLimit(rowLimit); err != nil {
		return "", err
	}

	clauses := []string{"SELECT " + selectList(columns), "FROM " + table}
	if where := whereClause(filters); where != "" {
		clauses = append(clauses, where)
	}
	clauses = append(clauses, "LIMIT "+strconv.Itoa(rowLimit))
	return strings.Join(clauses, "\n"), nil
}

// MetricAlias returns the output column name of a metric:
// the last dotted segment of the column, an underscore, and the lowercased aggregation.
func MetricAlias(m domain.Metric) string {
	col := m.Column
	if i := strings.LastIndex(col, "."); i >= 0 {
		col = col[i+1:]
	}
	return col + "_" + strings.ToLower(string(m.Aggregation))
}

func projection(plan *domain.AnalysisPlan) string {
	// Without metrics this is a simple select of the dimensions.
	if len(plan.Metrics) == 0 {
		return selectList(plan.Dimensions)
	}

	parts := make([]string, 0, len(plan.Dimensions)+len(plan.Metrics))
	parts = append(parts, plan.Dimensions...)
	for _, m := range plan.Metrics {
		parts = append(parts, fmt.Sprintf("%s(%s) AS %s", m.Aggregation, metricRef(plan, m), MetricAlias(m)))
	}
	return strings.Join(parts, ", ")
}

// metricRef qualifies a bare metric column with its table once joins make
// bare names ambiguous.
func metricRef(plan *domain.AnalysisPlan, m domain.Metric) string {
	if len(plan.Joins) == 0 || strings.Contains(m.Column, ".") {
		return m.Column
	}
	table := m.Table
	if table == "" {
		table = plan.Table
	}
	return table + "." + m.Column
}

func selectList(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	return strings.Join(columns, ", ")
}

func whereClause(filters []domain.Filter) string {
	if len(filters) == 0 {
		return ""
	}
	terms := make([]string, len(filters))
	for i, f := range filters {
		terms[i] = fmt.Sprintf("%s %s %s", f.Column, f.Operator, f.Value.Literal())
	}
	return "WHERE " + strings.Join(terms, " AND ")
}

func checkLimit(rowLimit int) error {
	if rowLimit <= 0 {
		return domain.ErrPlan("limit", "row limit must be positive, got %d", rowLimit)
	}
	return nil
}
