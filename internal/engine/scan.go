package engine

import (
	"database/sql"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/duckdb/duckdb-go/v2"

	"insightql/internal/domain"
)

// scanRows materializes rows into a QueryResult. Column names are made
// unique and values are normalized to JSON-friendly scalars.
func scanRows(rows *sql.Rows) (*domain.QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	cols = uniqueColumns(cols)

	decimal := make([]bool, len(cols))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			decimal[i] = isDecimalType(ct.DatabaseTypeName())
		}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, v := range vals {
			v = normalizeValue(v)
			if decimal[i] {
				v = parseDecimal(v)
			}
			row[cols[i]] = v
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.QueryResult{
		Columns:  cols,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// uniqueColumns suffixes repeated names with _2, _3, ... in order of appearance.
func uniqueColumns(cols []string) []string {
	out := make([]string, len(cols))
	used := make(map[string]bool, len(cols))
	for i, c := range cols {
		name := c
		for n := 2; used[name]; n++ {
			name = c + "_" + strconv.Itoa(n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// isDecimalType reports whether a driver type name is an exact numeric type.
// pgx and go-sql-driver/mysql hand these values back as text.
func isDecimalType(name string) bool {
	switch strings.ToUpper(name) {
	case "NUMERIC", "DECIMAL", "NEWDECIMAL":
		return true
	}
	return false
}

// parseDecimal converts the textual form of a decimal to float64. Values that
// do not parse, and NaN or infinities which JSON cannot carry, are returned
// unchanged.
func parseDecimal(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return v
	}
	return f
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case *big.Int:
		if x.IsInt64() {
			return x.Int64()
		}
		return x.String()
	case duckdb.Decimal:
		return x.Float64()
	case interface{ Float64() (float64, error) }:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return v
	default:
		return v
	}
}
