package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Aggregation is the aggregate function applied to a metric column.
type Aggregation string

// Supported aggregations. Anything else is rejected by AnalysisPlan.Validate.
const (
	AggSum   Aggregation = "SUM"
	AggAvg   Aggregation = "AVG"
	AggCount Aggregation = "COUNT"
	AggMin   Aggregation = "MIN"
	AggMax   Aggregation = "MAX"
)

// IsValid reports whether a is one of the supported aggregations.
func (a Aggregation) IsValid() bool {
	switch a {
	case AggSum, AggAvg, AggCount, AggMin, AggMax:
		return true
	}
	return false
}

// Operator is a filter comparison operator.
type Operator string

// Supported filter operators. There is no LIKE, IN or sub-expression form.
const (
	OpEq Operator = "="
	OpGt Operator = ">"
	OpLt Operator = "<"
	OpGe Operator = ">="
	OpLe Operator = "<="
	OpNe Operator = "!="
)

// IsValid reports whether o is one of the supported operators.
func (o Operator) IsValid() bool {
	switch o {
	case OpEq, OpGt, OpLt, OpGe, OpLe, OpNe:
		return true
	}
	return false
}

// AnalysisPlan is a structured, schema-bound description of a query intent.
// It contains no SQL syntax; the SQL compiler turns it into a statement.
type AnalysisPlan struct {
	Table            string   `json:"table" yaml:"table"`
	Joins            []Join   `json:"joins,omitempty" yaml:"joins,omitempty"`
	Metrics          []Metric `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Dimensions       []string `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	Filters          []Filter `json:"filters,omitempty" yaml:"filters,omitempty"`
	RecommendedChart string   `json:"recommended_chart,omitempty" yaml:"recommended_chart,omitempty"`
}

// Join denotes `JOIN Table ON JoinFrom.FromColumn = Table.OnColumn`.
type Join struct {
	Table      string `json:"table" yaml:"table"`
	OnColumn   string `json:"on_column" yaml:"on_column"`
	FromColumn string `json:"from_column" yaml:"from_column"`
	JoinFrom   string `json:"join_from" yaml:"join_from"`
}

// Metric is an aggregated column. Table defaults to the plan's root table.
type Metric struct {
	Column      string      `json:"column" yaml:"column"`
	Aggregation Aggregation `json:"aggregation" yaml:"aggregation"`
	Table       string      `json:"table,omitempty" yaml:"table,omitempty"`
}

// Filter is a single `column operator value` predicate.
type Filter struct {
	Column   string      `json:"column" yaml:"column"`
	Operator Operator    `json:"operator" yaml:"operator"`
	Value    FilterValue `json:"value" yaml:"value"`
}

type filterValueKind int

const (
	filterValueNone filterValueKind = iota
	filterValueString
	filterValueNumber
)

// FilterValue holds either a string or a number. Numbers keep the literal text
// they were decoded from so rendering is byte-stable.
type FilterValue struct {
	kind filterValueKind
	text string
}

// StringValue returns a string filter value.
func StringValue(s string) FilterValue {
	return FilterValue{kind: filterValueString, text: s}
}

// NumberValue returns a numeric filter value.
func NumberValue(f float64) FilterValue {
	return FilterValue{kind: filterValueNumber, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// IntValue returns an integer filter value.
func IntValue(n int64) FilterValue {
	return FilterValue{kind: filterValueNumber, text: strconv.FormatInt(n, 10)}
}

// IsZero reports whether no value was set.
func (v FilterValue) IsZero() bool { return v.kind == filterValueNone }

// IsString reports whether the value is a string.
func (v FilterValue) IsString() bool { return v.kind == filterValueString }

// IsNumber reports whether the value is a number.
func (v FilterValue) IsNumber() bool { return v.kind == filterValueNumber }

// Text returns the raw string or the numeric literal.
func (v FilterValue) Text() string { return v.text }

// Literal renders the value as a SQL literal: strings are wrapped in single
// quotes verbatim (no escaping), numbers are emitted as-is.
func (v FilterValue) Literal() string {
	if v.kind == filterValueString {
		return "'" + v.text + "'"
	}
	return v.text
}

// MarshalJSON implements json.Marshaler.
func (v FilterValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case filterValueString:
		return json.Marshal(v.text)
	case filterValueNumber:
		return []byte(v.text), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Only strings and numbers are accepted.
func (v *FilterValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("filter value is empty")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = FilterValue{kind: filterValueNumber, text: n.String()}
		return nil
	default:
		return fmt.Errorf("filter value must be a string or a number, got %s", data)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (v FilterValue) MarshalYAML() (interface{}, error) {
	switch v.kind {
	case filterValueString:
		return v.text, nil
	case filterValueNumber:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: v.text}, nil
	default:
		return nil, nil
	}
}

// UnmarshalYAML implements yaml.Unmarshaler. Only string and numeric scalars are accepted.
func (v *FilterValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: filter value must be a scalar", node.Line)
	}
	switch node.Tag {
	case "!!str":
		*v = StringValue(node.Value)
	case "!!int", "!!float":
		*v = FilterValue{kind: filterValueNumber, text: node.Value}
	default:
		return fmt.Errorf("line %d: filter value must be a string or a number, got %s", node.Line, node.Tag)
	}
	return nil
}

// Validate checks the structural well-formedness of the plan. It does not
// check tables or columns against a schema; the plan producer owns that.
func (p *AnalysisPlan) Validate() error {
	if p == nil {
		return ErrPlan("", "plan is required")
	}
	if strings.TrimSpace(p.Table) == "" {
		return ErrPlan("table", "table is required")
	}

	// Joins form a tree rooted at Table: each join may only hang off the
	// root or a table joined before it.
	known := map[string]bool{p.Table: true}
	for i, j := range p.Joins {
		field := fmt.Sprintf("joins[%d]", i)
		switch {
		case j.Table == "":
			return ErrPlan(field+".table", "join table is required")
		case j.OnColumn == "":
			return ErrPlan(field+".on_column", "join on_column is required")
		case j.FromColumn == "":
			return ErrPlan(field+".from_column", "join from_column is required")
		case j.JoinFrom == "":
			return ErrPlan(field+".join_from", "join join_from is required")
		}
		if !known[j.JoinFrom] {
			return ErrPlan(field+".join_from", "%q is neither the root table %q nor an earlier joined table", j.JoinFrom, p.Table)
		}
		known[j.Table] = true
	}

	for i, m := range p.Metrics {
		field := fmt.Sprintf("metrics[%d]", i)
		if m.Column == "" {
			return ErrPlan(field+".column", "metric column is required")
		}
		if m.Aggregation == "" {
			return ErrPlan(field+".aggregation", "aggregation is required")
		}
		if !m.Aggregation.IsValid() {
			return ErrPlan(field+".aggregation", "unknown aggregation %q (want SUM, AVG, COUNT, MIN or MAX)", m.Aggregation)
		}
	}

	for i, d := range p.Dimensions {
		if strings.TrimSpace(d) == "" {
			return ErrPlan(fmt.Sprintf("dimensions[%d]", i), "dimension is empty")
		}
	}

	for i, f := range p.Filters {
		field := fmt.Sprintf("filters[%d]", i)
		if f.Column == "" {
			return ErrPlan(field+".column", "filter column is required")
		}
		if !f.Operator.IsValid() {
			return ErrPlan(field+".operator", "unknown operator %q (want =, >, <, >=, <= or !=)", f.Operator)
		}
		if f.Value.IsZero() {
			return ErrPlan(field+".value", "filter value is required")
		}
	}
	return nil
}

// ParsePlan decodes a JSON analysis plan and validates it.
func ParsePlan(data []byte) (*AnalysisPlan, error) {
	var p AnalysisPlan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, ErrPlan("", "decode plan: %v", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ParsePlanYAML decodes a YAML analysis plan and validates it.
func ParsePlanYAML(data []byte) (*AnalysisPlan, error) {
	var p AnalysisPlan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, ErrPlan("", "decode plan: %v", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadPlanFile reads a plan from disk. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON.
func LoadPlanFile(path string) (*AnalysisPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParsePlanYAML(data)
	default:
		return ParsePlan(data)
	}
}
