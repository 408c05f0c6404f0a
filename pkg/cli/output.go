package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"insightql/internal/domain"
)

// outputFormat is a pflag.Value restricted to the supported formats.
type outputFormat string

var _ pflag.Value = (*outputFormat)(nil)

const (
	outputText outputFormat = "text"
	outputJSON outputFormat = "json"
	outputYAML outputFormat = "yaml"
)

func (o *outputFormat) String() string { return string(*o) }

func (o *outputFormat) Set(v string) error {
	switch outputFormat(strings.ToLower(v)) {
	case outputText, "table":
		*o = outputText
	case outputJSON:
		*o = outputJSON
	case outputYAML, "yml":
		*o = outputYAML
	default:
		return fmt.Errorf("unsupported output format %q: use 'text', 'json' or 'yaml'", v)
	}
	return nil
}

func (o *outputFormat) Type() string { return "format" }

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printYAML renders v as YAML using its JSON field names.
func printYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// printStructured writes v as JSON or YAML and reports whether it did.
func printStructured(w io.Writer, format outputFormat, v any) (bool, error) {
	switch format {
	case outputJSON:
		return true, printJSON(w, v)
	case outputYAML:
		return true, printYAML(w, v)
	default:
		return false, nil
	}
}

// printTable renders rows under the given columns.
func printTable(w io.Writer, columns []string, rows []map[string]any) error {
	if len(columns) == 0 {
		return nil
	}
	data := pterm.TableData{columns}
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = formatCell(row[c])
		}
		data = append(data, cells)
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

// printAnalysis writes a pipeline result in the requested format.
func printAnalysis(w io.Writer, format outputFormat, res *domain.AnalysisResult) error {
	if ok, err := printStructured(w, format, res); ok {
		return err
	}

	_, _ = fmt.Fprintf(w, "Run: %s\n\nSQL:\n%s\n\n", res.RunID, indent(res.SQL))
	if err := printTable(w, res.Data.Columns, res.Data.Rows); err != nil {
		return err
	}
	cached := ""
	if res.Cached {
		cached = ", cached"
	}
	_, _ = fmt.Fprintf(w, "\n%d rows (%d ms%s)\n", res.Data.RowCount, res.DurationMs, cached)
	_, err := fmt.Fprintf(w, "Chart: %s\n", describeChart(res.Chart))
	return err
}

func describeChart(c *domain.ChartConfig) string {
	var parts []string
	if c.Metric != nil {
		parts = append(parts, fmt.Sprintf("%s = %s", c.Metric.Label, formatCell(c.Metric.Value)))
	}
	if c.XAxis != "" {
		parts = append(parts, "x="+c.XAxis)
	}
	switch y := c.YAxis.(type) {
	case string:
		parts = append(parts, "y="+y)
	case []string:
		parts = append(parts, "y="+strings.Join(y, ","))
	}
	if c.LabelColumn != "" {
		parts = append(parts, "label="+c.LabelColumn, "value="+c.ValueColumn)
	}
	if len(parts) == 0 {
		return string(c.Type)
	}
	return fmt.Sprintf("%s (%s)", c.Type, strings.Join(parts, ", "))
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
