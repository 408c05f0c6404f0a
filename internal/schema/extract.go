// Package schema extracts table structure from the analysed database, caches
// it, and renders it as compact text for plan producers.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"insightql/internal/db"
	"insightql/internal/domain"
)

// extractParallelism bounds concurrent per-table introspection queries.
const extractParallelism = 8

// Compile-time checks.
var (
	_ domain.SchemaExtractor = (*SQLiteExtractor)(nil)
	_ domain.SchemaExtractor = (*InformationSchemaExtractor)(nil)
)

// ForDialect returns the extractor for the dialect of an opened pool.
func ForDialect(pool *sql.DB, dialect db.Dialect) (domain.SchemaExtractor, error) {
	switch dialect {
	case db.DialectSQLite:
		return NewSQLiteExtractor(pool), nil
	case db.DialectPostgres:
		return newInformationSchemaExtractor(pool, postgresQueries), nil
	case db.DialectMySQL:
		return newInformationSchemaExtractor(pool, mysqlQueries), nil
	case db.DialectDuckDB:
		return newInformationSchemaExtractor(pool, duckdbQueries), nil
	case db.DialectSnowflake:
		return newInformationSchemaExtractor(pool, snowflakeQueries), nil
	default:
		return nil, domain.ErrValidation("schema extraction is not supported for %q", dialect)
	}
}

// extractTables runs describe for every table with bounded parallelism and
// keeps the input order.
func extractTables(ctx context.Context, names []string, describe func(context.Context, string) (domain.SchemaTable, error)) ([]domain.SchemaTable, error) {
	tables := make([]domain.SchemaTable, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(extractParallelism)
	for i, name := range names {
		g.Go(func() error {
			t, err := describe(gctx, name)
			if err != nil {
				return fmt.Errorf("table %s: %w", name, err)
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// === SQLite ===

// SQLiteExtractor reads structure from sqlite_master and the table_info and
// foreign_key_list pragmas.
type SQLiteExtractor struct {
	db *sql.DB
}

// NewSQLiteExtractor creates a SQLiteExtractor.
func NewSQLiteExtractor(db *sql.DB) *SQLiteExtractor {
	return &SQLiteExtractor{db: db}
}

// Extract returns every user table. Internal sqlite_ tables and the migration
// bookkeeping table are skipped.
func (e *SQLiteExtractor) Extract(ctx context.Context) (*domain.Schema, error) {
	names, err := queryStrings(ctx, e.db, `
		SELECT name FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		  AND name != 'goose_db_version'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables, err := extractTables(ctx, names, e.describe)
	if err != nil {
		return nil, err
	}
	return &domain.Schema{Tables: tables}, nil
}

func (e *SQLiteExtractor) describe(ctx context.Context, table string) (domain.SchemaTable, error) {
	t := domain.SchemaTable{Name: table, Columns: []domain.SchemaColumn{}, ForeignKeys: []domain.ForeignKey{}}
	quoted := quoteIdent(table)

	rows, err := e.db.QueryContext(ctx, "PRAGMA table_info("+quoted+")")
	if err != nil {
		return t, fmt.Errorf("table_info: %w", err)
	}
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			_ = rows.Close()
			return t, fmt.Errorf("scan column: %w", err)
		}
		t.Columns = append(t.Columns, domain.SchemaColumn{
			Name:     name,
			Type:     typ,
			Nullable: notNull == 0 && pk == 0,
			Default:  nullString(dflt),
		})
	}
	if err := closeRows(rows); err != nil {
		return t, err
	}

	rows, err = e.db.QueryContext(ctx, "PRAGMA foreign_key_list("+quoted+")")
	if err != nil {
		return t, fmt.Errorf("foreign_key_list: %w", err)
	}
	byID := map[int]int{}
	for rows.Next() {
		var (
			id, seq                                    int
			refTable, from, onUpdate, onDelete, match string
			to                                         sql.NullString
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			_ = rows.Close()
			return t, fmt.Errorf("scan foreign key: %w", err)
		}
		idx, ok := byID[id]
		if !ok {
			idx = len(t.ForeignKeys)
			byID[id] = idx
			t.ForeignKeys = append(t.ForeignKeys, domain.ForeignKey{ReferredTable: refTable})
		}
		fk := &t.ForeignKeys[idx]
		fk.ConstrainedColumns = append(fk.ConstrainedColumns, from)
		fk.ReferredColumns = append(fk.ReferredColumns, to.String)
	}
	if err := closeRows(rows); err != nil {
		return t, err
	}
	return t, nil
}

// === information_schema ===

// informationSchemaQueries holds the dialect-specific introspection SQL.
// Each query takes the table name as its only parameter, except tables.
type informationSchemaQueries struct {
	name        string
	tables      string
	columns     string
	foreignKeys string // empty when the engine exposes no usable FK metadata
}

var postgresQueries = informationSchemaQueries{
	name: "postgres",
	tables: `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`,
	columns: `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`,
	foreignKeys: `
		SELECT tc.constraint_name, kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = current_schema() AND tc.table_name = $1
		ORDER BY tc.constraint_name, kcu.ordinal_position`,
}

var mysqlQueries = informationSchemaQueries{
	name: "mysql",
	tables: `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name`,
	columns: `
		SELECT column_name, column_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`,
	foreignKeys: `
		SELECT constraint_name, column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE() AND table_name = ?
		  AND referenced_table_name IS NOT NULL
		ORDER BY constraint_name, ordinal_position`,
}

var duckdbQueries = informationSchemaQueries{
	name: "duckdb",
	tables: `
		SELECT table_name FROM information_schema.tables
		WHERE table_catalog = current_database() AND table_schema = current_schema()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`,
	columns: `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_catalog = current_database() AND table_schema = current_schema()
		  AND table_name = ?
		ORDER BY ordinal_position`,
	foreignKeys: `
		SELECT constraint_name, unnest(constraint_column_names), referenced_table, unnest(referenced_column_names)
		FROM duckdb_constraints()
		WHERE constraint_type = 'FOREIGN KEY'
		  AND database_name = current_database() AND schema_name = current_schema()
		  AND table_name = ?
		ORDER BY constraint_index`,
}

var snowflakeQueries = informationSchemaQueries{
	name: "snowflake",
	tables: `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`,
	columns: `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = ?
		ORDER BY ordinal_position`,
}

// InformationSchemaExtractor reads structure from the ANSI information_schema
// views of Postgres, MySQL, DuckDB and Snowflake.
type InformationSchemaExtractor struct {
	db *sql.DB
	q  informationSchemaQueries
}

// newInformationSchemaExtractor creates an extractor using the given query set.
func newInformationSchemaExtractor(db *sql.DB, q informationSchemaQueries) *InformationSchemaExtractor {
	return &InformationSchemaExtractor{db: db, q: q}
}

// Extract returns every base table of the current schema.
func (e *InformationSchemaExtractor) Extract(ctx context.Context) (*domain.Schema, error) {
	names, err := queryStrings(ctx, e.db, e.q.tables)
	if err != nil {
		return nil, fmt.Errorf("list %s tables: %w", e.q.name, err)
	}

	tables, err := extractTables(ctx, names, e.describe)
	if err != nil {
		return nil, err
	}
	return &domain.Schema{Tables: tables}, nil
}

func (e *InformationSchemaExtractor) describe(ctx context.Context, table string) (domain.SchemaTable, error) {
	t := domain.SchemaTable{Name: table, Columns: []domain.SchemaColumn{}, ForeignKeys: []domain.ForeignKey{}}

	rows, err := e.db.QueryContext(ctx, e.q.columns, table)
	if err != nil {
		return t, fmt.Errorf("columns: %w", err)
	}
	for rows.Next() {
		var (
			name, typ, nullable string
			dflt                sql.NullString
		)
		if err := rows.Scan(&name, &typ, &nullable, &dflt); err != nil {
			_ = rows.Close()
			return t, fmt.Errorf("scan column: %w", err)
		}
		t.Columns = append(t.Columns, domain.SchemaColumn{
			Name:     name,
			Type:     typ,
			Nullable: strings.EqualFold(nullable, "YES"),
			Default:  nullString(dflt),
		})
	}
	if err := closeRows(rows); err != nil {
		return t, err
	}

	if e.q.foreignKeys == "" {
		return t, nil
	}
	rows, err = e.db.QueryContext(ctx, e.q.foreignKeys, table)
	if err != nil {
		return t, fmt.Errorf("foreign keys: %w", err)
	}
	byName := map[string]int{}
	for rows.Next() {
		var constraint, column, refTable, refColumn string
		if err := rows.Scan(&constraint, &column, &refTable, &refColumn); err != nil {
			_ = rows.Close()
			return t, fmt.Errorf("scan foreign key: %w", err)
		}
		idx, ok := byName[constraint]
		if !ok {
			idx = len(t.ForeignKeys)
			byName[constraint] = idx
			t.ForeignKeys = append(t.ForeignKeys, domain.ForeignKey{ReferredTable: refTable})
		}
		fk := &t.ForeignKeys[idx]
		fk.ConstrainedColumns = append(fk.ConstrainedColumns, column)
		fk.ReferredColumns = append(fk.ReferredColumns, refColumn)
	}
	if err := closeRows(rows); err != nil {
		return t, err
	}
	return t, nil
}

// === helpers ===

func queryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	return rows.Close()
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// quoteIdent double-quotes a SQLite identifier for use in a PRAGMA argument.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
