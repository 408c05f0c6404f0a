package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const salesByDayPlan = `{
  "table": "sales",
  "metrics": [{"column": "total_amount", "aggregation": "SUM"}],
  "dimensions": ["sale_date"],
  "filters": [{"column": "sale_date", "operator": "<", "value": "2024-01-15"}]
}`

const salesByDaySQL = "SELECT sale_date, SUM(total_amount) AS total_amount_sum\n" +
	"FROM sales\n" +
	"WHERE sale_date < '2024-01-15'\n" +
	"GROUP BY sale_date\n" +
	"ORDER BY total_amount_sum DESC\n" +
	"LIMIT 10000"

func decodeJSON(t *testing.T, s string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &out), s)
	return out
}

func TestVersion(t *testing.T) {
	stdout, _, code := execCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "insightql version dev")

	stdout, _, code = execCLI(t, "version", "-o", "json")
	assert.Equal(t, 0, code)
	assert.Equal(t, "dev", decodeJSON(t, stdout)["version"])
}

func TestOutputFlag_Rejected(t *testing.T) {
	_, stderr, code := execCLI(t, "version", "-o", "xml")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unsupported output format")
}

func TestCompile(t *testing.T) {
	t.Setenv("MAX_ROWS", "")
	t.Setenv("SQL_FORBIDDEN_KEYWORDS", "")

	jsonPlan := writeFile(t, "plan.json", salesByDayPlan)
	yamlPlan := writeFile(t, "plan.yaml", `
table: sales
metrics:
  - column: total_amount
    aggregation: SUM
dimensions: [sale_date]
filters:
  - column: sale_date
    operator: "<"
    value: "2024-01-15"
`)

	tests := []struct {
		name string
		args []string
		want func(t *testing.T, stdout string)
	}{
		{
			name: "json plan as text",
			args: []string{"compile", "--plan", jsonPlan},
			want: func(t *testing.T, stdout string) {
				assert.Equal(t, salesByDaySQL+"\n", stdout)
			},
		},
		{
			name: "yaml plan as text",
			args: []string{"compile", "--plan", yamlPlan},
			want: func(t *testing.T, stdout string) {
				assert.Equal(t, salesByDaySQL+"\n", stdout)
			},
		},
		{
			name: "json output",
			args: []string{"compile", "--plan", jsonPlan, "-o", "json"},
			want: func(t *testing.T, stdout string) {
				assert.Equal(t, salesByDaySQL, decodeJSON(t, stdout)["sql"])
			},
		},
		{
			name: "yaml output",
			args: []string{"compile", "--plan", jsonPlan, "-o", "yaml"},
			want: func(t *testing.T, stdout string) {
				var out map[string]string
				require.NoError(t, yaml.Unmarshal([]byte(stdout), &out))
				assert.Equal(t, salesByDaySQL, out["sql"])
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stdout, stderr, code := execCLI(t, tc.args...)
			require.Equal(t, 0, code, stderr)
			tc.want(t, stdout)
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		plan     string
		wantKind string
	}{
		{name: "missing table", plan: `{"metrics": [{"column": "x", "aggregation": "SUM"}]}`, wantKind: "plan_error"},
		{name: "unknown aggregation", plan: `{"table": "t", "metrics": [{"column": "x", "aggregation": "MEDIAN"}]}`, wantKind: "plan_error"},
		{name: "injected keyword", plan: `{"table": "t", "filters": [{"column": "c", "operator": "=", "value": "x'; DROP TABLE t; --"}]}`, wantKind: "safety_violation"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "plan.json", tc.plan)
			stdout, _, code := execCLI(t, "compile", "--plan", path, "-o", "json")
			assert.Equal(t, 1, code)
			assert.Equal(t, tc.wantKind, decodeJSON(t, stdout)["kind"])
		})
	}
}

func TestCheck(t *testing.T) {
	t.Setenv("SQL_FORBIDDEN_KEYWORDS", "")

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{name: "safe select", args: []string{"--sql", "SELECT * FROM sales"}, wantCode: 0, wantOut: "✓ safe"},
		{name: "keyword", args: []string{"--sql", "DROP TABLE sales"}, wantCode: 1, wantOut: "✗ rejected (keyword)"},
		{name: "comment", args: []string{"--sql", "SELECT 1 -- hi"}, wantCode: 1, wantOut: "✗ rejected (comment)"},
		{name: "stacked", args: []string{"--sql", "SELECT 1; SELECT 2"}, wantCode: 1, wantOut: "✗ rejected (multi_statement)"},
		{name: "substring is fine", args: []string{"--sql", "SELECT updated_at FROM sales"}, wantCode: 0, wantOut: "✓ safe"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stdout, _, code := execCLI(t, append([]string{"check"}, tc.args...)...)
			assert.Equal(t, tc.wantCode, code)
			assert.Contains(t, stdout, tc.wantOut)
		})
	}
}

func TestCheck_JSONVerdict(t *testing.T) {
	t.Setenv("SQL_FORBIDDEN_KEYWORDS", "")
	path := writeFile(t, "q.sql", "delete from sales")

	stdout, stderr, code := execCLI(t, "check", "--file", path, "-o", "json")
	assert.Equal(t, 1, code)
	assert.Empty(t, stderr)

	verdict := decodeJSON(t, stdout)
	assert.Equal(t, false, verdict["safe"])
	assert.Equal(t, "keyword", verdict["rule"])
	assert.Equal(t, "DELETE", verdict["keyword"])
	assert.NotContains(t, verdict, "error")
}

func TestCheck_NeedsExactlyOneSource(t *testing.T) {
	stdout, _, code := execCLI(t, "check", "-o", "json")
	assert.Equal(t, 1, code)
	assert.Equal(t, "validation_error", decodeJSON(t, stdout)["kind"])
}

func TestRun(t *testing.T) {
	useSampleDatabase(t)
	path := writeFile(t, "plan.json", salesByDayPlan)

	stdout, stderr, code := execCLI(t, "run", "--plan", path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "SQL:\n  SELECT sale_date, SUM(total_amount) AS total_amount_sum")
	assert.Contains(t, stdout, "Chart: line (x=sale_date, y=total_amount_sum)")

	stdout, stderr, code = execCLI(t, "run", "--plan", path, "-o", "json")
	require.Equal(t, 0, code, stderr)
	res := decodeJSON(t, stdout)
	assert.Equal(t, salesByDaySQL, res["sql"])
	assert.Equal(t, "line", res["chart"].(map[string]any)["type"])
	assert.NotEmpty(t, res["run_id"])
}

func TestQuery(t *testing.T) {
	useSampleDatabase(t)

	stdout, stderr, code := execCLI(t, "query", "--sql", "SELECT COUNT(*) AS sale_count FROM sales", "-o", "json")
	require.Equal(t, 0, code, stderr)
	res := decodeJSON(t, stdout)
	assert.Equal(t, "SELECT COUNT(*) AS sale_count FROM sales LIMIT 10000", res["sql"])
	rows := res["data"].(map[string]any)["rows"].([]any)
	assert.InDelta(t, 120, rows[0].(map[string]any)["sale_count"], 0)
	chart := res["chart"].(map[string]any)
	assert.Equal(t, "kpi", chart["type"])

	stdout, _, code = execCLI(t, "query", "--sql", "UPDATE sales SET quantity = 0", "-o", "json")
	assert.Equal(t, 1, code)
	assert.Equal(t, "safety_violation", decodeJSON(t, stdout)["kind"])

	stdout, _, code = execCLI(t, "query", "--sql", "SELECT nope FROM sales", "-o", "json")
	assert.Equal(t, 1, code)
	assert.Equal(t, "execution_error", decodeJSON(t, stdout)["kind"])
}

func TestPreview(t *testing.T) {
	useSampleDatabase(t)

	stdout, stderr, code := execCLI(t, "preview", "products", "--columns", "product_name, category", "--limit", "3", "-o", "json")
	require.Equal(t, 0, code, stderr)
	res := decodeJSON(t, stdout)
	assert.Equal(t, "SELECT product_name, category\nFROM products\nLIMIT 3", res["sql"])
	assert.InDelta(t, 3, res["data"].(map[string]any)["row_count"], 0)

	stdout, stderr, code = execCLI(t, "preview", "regions")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "region_name")
	assert.Contains(t, stdout, "North")
	assert.Contains(t, stdout, "4 rows")
}

func TestSchema(t *testing.T) {
	useSampleDatabase(t)

	stdout, stderr, code := execCLI(t, "schema")
	require.Equal(t, 0, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "Database Schema:\n"))
	assert.Contains(t, stdout, "Table: sales")
	assert.Contains(t, stdout, "  - customer_id -> customers.customer_id")

	for _, args := range [][]string{{"schema", "-o", "json"}, {"schema", "--format", "json", "--refresh"}} {
		stdout, stderr, code = execCLI(t, args...)
		require.Equal(t, 0, code, stderr)
		tables := decodeJSON(t, stdout)["tables"].([]any)
		assert.Len(t, tables, 4)
	}

	_, _, code = execCLI(t, "schema", "--format", "xml")
	assert.Equal(t, 1, code)
}

func TestSeed(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	url := "sqlite://" + filepath.Join(t.TempDir(), "fresh.db")

	stdout, stderr, code := execCLI(t, "seed", "--db", url)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "2 migrations applied")

	stdout, _, code = execCLI(t, "seed", "--db", url, "-o", "json")
	require.Equal(t, 0, code)
	assert.InDelta(t, 0, decodeJSON(t, stdout)["migrations_applied"], 0)

	t.Setenv("DATABASE_URL", url)
	stdout, stderr, code = execCLI(t, "query", "--sql", "SELECT COUNT(*) AS n FROM regions")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Chart: kpi (n = 4)")
}

func TestCacheClear_Redis(t *testing.T) {
	useSampleDatabase(t)
	mr := miniredis.RunT(t)
	t.Setenv("CACHE_URL", "redis://"+mr.Addr())

	for _, sql := range []string{"SELECT 1 AS a", "SELECT 2 AS a"} {
		_, stderr, code := execCLI(t, "query", "--sql", sql)
		require.Equal(t, 0, code, stderr)
	}
	_, stderr, code := execCLI(t, "schema")
	require.Equal(t, 0, code, stderr)
	require.Len(t, mr.Keys(), 3)

	stdout, stderr, code := execCLI(t, "cache", "clear", "-o", "json")
	require.Equal(t, 0, code, stderr)
	assert.InDelta(t, 2, decodeJSON(t, stdout)["deleted"], 0)
	assert.Len(t, mr.Keys(), 1)

	stdout, stderr, code = execCLI(t, "cache", "clear", "--prefix", "schema:")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "Deleted 1 cache entries\n", stdout)
	assert.Empty(t, mr.Keys())
}

func TestMissingDatabase(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DATABASE_URL", "sqlite://"+filepath.Join(t.TempDir(), "absent.db"))

	stdout, _, code := execCLI(t, "query", "--sql", "SELECT 1", "-o", "json")
	assert.Equal(t, 1, code)
	assert.Equal(t, "not_found", decodeJSON(t, stdout)["kind"])
}
