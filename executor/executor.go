// Package executor runs a single Guard-approved statement against the
// pooled connection and returns its rows, translating driver failures into
// the service's ExecutionError taxonomy.
package executor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Pool is the minimal capability Execute needs: acquire-and-run a query,
// applying statement_timeout and releasing the connection on every exit
// path. *pgpool.Pool satisfies this.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Row is one result row: column label to scalar value.
type Row map[string]any

// Error reports that a guarded statement failed to execute — on timeout,
// connection loss, or any other driver-reported failure.
type Error struct {
	Message string
	SQL     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("executor: %s", e.Message)
}

// Execute runs sql against pool and materializes every row. ctx should
// already carry the request's deadline; the pool itself additionally
// enforces statement_timeout on the acquired connection.
func Execute(ctx context.Context, pool Pool, sql string) ([]Row, error) {
	rows, err := pool.Query(ctx, sql)
	if err != nil {
		return nil, &Error{Message: err.Error(), SQL: sql}
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f.Name)
	}

	var out []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, &Error{Message: err.Error(), SQL: sql}
		}
		row := make(Row, len(names))
		for i, name := range names {
			if i < len(values) {
				row[name] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Message: err.Error(), SQL: sql}
	}
	return out, nil
}
