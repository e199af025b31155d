// Package schema holds the declared table/column allow-list: the single
// source of truth both the Guard and the Planner's prompt are built from.
package schema

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"
)

// Table is one declared, fully-qualified table and its allow-listed
// columns, as loaded from the declaration asset.
type Table struct {
	Name            string            `yaml:"name"`
	Description     string            `yaml:"description"`
	PrimaryKey      []string          `yaml:"primary_key"`
	Columns         map[string]string `yaml:"columns"`
	FractionColumns []string          `yaml:"fraction_columns"`
}

type declaration struct {
	Tables []Table `yaml:"tables"`
}

// Querier is the minimal surface Load needs against the live database to
// verify the declaration. *pgxpool.Pool satisfies it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Registry is the immutable, process-wide allow-list: which tables and
// columns a guarded statement may reference, and the schema document
// shown to the LLM.
type Registry struct {
	order           []string
	tables          map[string]struct{}
	colsByTable     map[string]map[string]struct{}
	fractionColumns map[string]struct{}
	doc             string
}

// SchemaMismatchError reports a declared table/column absent from the live
// database.
type SchemaMismatchError struct {
	Table  string
	Column string
}

func (e *SchemaMismatchError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema mismatch: %s.%s is declared but not present in information_schema.columns", e.Table, e.Column)
	}
	return fmt.Sprintf("schema mismatch: %s is declared but has no columns in information_schema.columns", e.Table)
}

// LoadFile reads and parses the YAML declaration asset at path, then
// verifies it against the live database via db.
func LoadFile(ctx context.Context, path string, db Querier) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema declaration: %w", err)
	}
	return Load(ctx, raw, db)
}

// Load parses a YAML declaration from raw bytes and verifies it against
// the live database via db. db may be nil, in which case verification is
// skipped (used in tests that don't stand up a real Postgres instance).
func Load(ctx context.Context, raw []byte, db Querier) (*Registry, error) {
	var decl declaration
	if err := yaml.Unmarshal(raw, &decl); err != nil {
		return nil, fmt.Errorf("parsing schema declaration: %w", err)
	}

	reg := &Registry{
		tables:          make(map[string]struct{}),
		colsByTable:     make(map[string]map[string]struct{}),
		fractionColumns: make(map[string]struct{}),
	}

	for _, t := range decl.Tables {
		fqtn := strings.ToLower(strings.TrimSpace(t.Name))
		if fqtn == "" {
			continue
		}
		reg.order = append(reg.order, fqtn)
		reg.tables[fqtn] = struct{}{}

		cols := make(map[string]struct{}, len(t.Columns))
		for col := range t.Columns {
			cols[strings.ToLower(col)] = struct{}{}
		}
		reg.colsByTable[fqtn] = cols

		for _, fc := range t.FractionColumns {
			reg.fractionColumns[strings.ToLower(fc)] = struct{}{}
		}

		if db != nil {
			if err := verifyTable(ctx, db, fqtn, cols); err != nil {
				return nil, err
			}
		}
	}

	reg.doc = renderDoc(decl.Tables, reg.order)
	return reg, nil
}

func verifyTable(ctx context.Context, db Querier, fqtn string, declaredCols map[string]struct{}) error {
	schemaName, tableName, ok := splitFQTN(fqtn)
	if !ok {
		return &SchemaMismatchError{Table: fqtn}
	}

	rows, err := db.Query(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2`,
		schemaName, tableName)
	if err != nil {
		return fmt.Errorf("querying information_schema.columns for %s: %w", fqtn, err)
	}
	defer rows.Close()

	liveCols := make(map[string]struct{})
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return fmt.Errorf("scanning information_schema.columns for %s: %w", fqtn, err)
		}
		liveCols[strings.ToLower(col)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(liveCols) == 0 {
		return &SchemaMismatchError{Table: fqtn}
	}
	for col := range declaredCols {
		if _, ok := liveCols[col]; !ok {
			return &SchemaMismatchError{Table: fqtn, Column: col}
		}
	}
	return nil
}

func splitFQTN(fqtn string) (schemaName, tableName string, ok bool) {
	parts := strings.SplitN(fqtn, ".", 2)
	if len(parts) == 2 {
		return parts[0], parts[1], true
	}
	return "public", fqtn, true
}

// TablesAllowed returns the set of declared, fully-qualified table names.
func (r *Registry) TablesAllowed() map[string]struct{} {
	return r.tables
}

// HasTable reports whether fqtn is declared.
func (r *Registry) HasTable(fqtn string) bool {
	_, ok := r.tables[strings.ToLower(fqtn)]
	return ok
}

// ColumnsAllowed returns the declared column set for fqtn. The second
// return value is false if fqtn isn't declared at all.
func (r *Registry) ColumnsAllowed(fqtn string) (map[string]struct{}, bool) {
	cols, ok := r.colsByTable[strings.ToLower(fqtn)]
	return cols, ok
}

// ColumnsByTable returns the full table->column allow-list, the shape the
// Guard consumes directly.
func (r *Registry) ColumnsByTable() map[string]map[string]struct{} {
	return r.colsByTable
}

// IsFractionColumn reports whether col is known to hold a value in [0,1],
// per the declaration's fraction_columns list. Used by the HeuristicRewriter.
func (r *Registry) IsFractionColumn(col string) bool {
	_, ok := r.fractionColumns[strings.ToLower(col)]
	return ok
}

// Doc returns the stable textual schema rendering shown to the LLM.
func (r *Registry) Doc() string {
	return r.doc
}

func renderDoc(tables []Table, order []string) string {
	var b strings.Builder
	for _, t := range tables {
		fqtn := strings.ToLower(strings.TrimSpace(t.Name))
		if fqtn == "" {
			continue
		}
		fmt.Fprintf(&b, "%s — %s\n", fqtn, t.Description)
		b.WriteString("columns:\n")

		cols := make([]string, 0, len(t.Columns))
		for col := range t.Columns {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		for _, col := range cols {
			fmt.Fprintf(&b, "- %s: %s\n", col, t.Columns[col])
		}

		if len(t.PrimaryKey) > 0 {
			fmt.Fprintf(&b, "primary_key: [%s]\n", strings.Join(t.PrimaryKey, ", "))
		}
		b.WriteString("\n")
	}
	_ = order
	return b.String()
}
