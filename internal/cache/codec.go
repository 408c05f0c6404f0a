package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"insightql/internal/domain"
)

// EncodeResult serializes a query result for storage.
func EncodeResult(res *domain.QueryResult) ([]byte, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return data, nil
}

// DecodeResult restores a query result. Integral numbers come back as int64
// and all other numbers as float64, matching what the executor produces.
func DecodeResult(data []byte) (*domain.QueryResult, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var res domain.QueryResult
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if res.Rows == nil {
		res.Rows = []map[string]any{}
	}
	for _, row := range res.Rows {
		for k, v := range row {
			row[k] = restoreNumbers(v)
		}
	}
	res.RowCount = len(res.Rows)
	return &res, nil
}

func restoreNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if n, err := x.Int64(); err == nil {
				return n
			}
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return s
	case []any:
		for i := range x {
			x[i] = restoreNumbers(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = restoreNumbers(x[k])
		}
		return x
	default:
		return v
	}
}
