package domain

// Schema is the extracted structure of the analysed database. The plan
// producer consumes it; the pipeline itself does not re-check plans against it.
type Schema struct {
	Tables       []SchemaTable `json:"tables"`
	DatabaseHash string        `json:"database_hash"`
}

// SchemaTable describes one table.
type SchemaTable struct {
	Name        string         `json:"name"`
	Columns     []SchemaColumn `json:"columns"`
	ForeignKeys []ForeignKey   `json:"foreign_keys"`
}

// SchemaColumn describes one column.
type SchemaColumn struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	Default  *string `json:"default,omitempty"`
}

// ForeignKey is a relationship from ConstrainedColumns to ReferredTable.ReferredColumns.
type ForeignKey struct {
	ConstrainedColumns []string `json:"constrained_columns"`
	ReferredTable      string   `json:"referred_table"`
	ReferredColumns    []string `json:"referred_columns"`
}

// TableNames returns the table names in schema order.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

// Table returns the named table or nil.
func (s *Schema) Table(name string) *SchemaTable {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// ColumnNames returns the column names of a table, or nil if the table is unknown.
func (s *Schema) ColumnNames(table string) []string {
	t := s.Table(table)
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// HasTable reports whether the schema contains the table.
func (s *Schema) HasTable(table string) bool {
	return s.Table(table) != nil
}

// HasColumn reports whether the table exists and has the column.
func (s *Schema) HasColumn(table, column string) bool {
	for _, c := range s.ColumnNames(table) {
		if c == column {
			return true
		}
	}
	return false
}
