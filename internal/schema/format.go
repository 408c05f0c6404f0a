package schema

import (
	"strings"

	"insightql/internal/domain"
)

// Format renders the schema as compact text:
//
//	Database Schema:
//
//	Table: sales
//	Columns:
//	  - sale_id (INTEGER) NOT NULL
//	Relationships:
//	  - customer_id -> customers.customer_id
func Format(s *domain.Schema) string {
	var b strings.Builder
	b.WriteString("Database Schema:\n")

	for _, t := range s.Tables {
		b.WriteString("\nTable: ")
		b.WriteString(t.Name)
		b.WriteString("\nColumns:\n")
		for _, c := range t.Columns {
			b.WriteString("  - ")
			b.WriteString(c.Name)
			b.WriteString(" (")
			b.WriteString(c.Type)
			b.WriteString(") ")
			if c.Nullable {
				b.WriteString("NULL")
			} else {
				b.WriteString("NOT NULL")
			}
			b.WriteString("\n")
		}
		if len(t.ForeignKeys) == 0 {
			continue
		}
		b.WriteString("Relationships:\n")
		for _, fk := range t.ForeignKeys {
			b.WriteString("  - ")
			b.WriteString(strings.Join(fk.ConstrainedColumns, ", "))
			b.WriteString(" -> ")
			b.WriteString(fk.ReferredTable)
			b.WriteString(".")
			b.WriteString(strings.Join(fk.ReferredColumns, ", "))
			b.WriteString("\n")
		}
	}
	return b.String()
}
