package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultRowLimit caps statements that carry no LIMIT of their own.
const DefaultRowLimit = 1000

// ErrBadRequest marks statements rejected before reaching the store.
var ErrBadRequest = errors.New("bad request")

// Result holds the outcome of a SELECT. Columns preserves the column order
// of the first row and is empty when no rows matched.
type Result struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// ExecuteSelect runs a read-only statement against the store. Anything whose
// first keyword is not SELECT is rejected with ErrBadRequest, trailing
// semicolons are stripped, and a LIMIT is appended when the statement has
// none so a runaway query cannot flood the caller.
func (d *Database) ExecuteSelect(ctx context.Context, query string, args []any, limit int) (*Result, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty query", ErrBadRequest)
	}

	fields := strings.Fields(trimmed)
	if !strings.EqualFold(fields[0], "select") {
		return nil, fmt.Errorf("%w: only SELECT queries are allowed", ErrBadRequest)
	}

	if limit <= 0 {
		limit = DefaultRowLimit
	}

	trimmed = strings.TrimRight(trimmed, "; \t\n")
	if !strings.Contains(strings.ToLower(trimmed), "limit") {
		trimmed = fmt.Sprintf("%s LIMIT %d", trimmed, limit)
	}

	rows, err := d.db.QueryContext(ctx, trimmed, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &Result{Columns: []string{}, Rows: []map[string]any{}}
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(result.Rows) > 0 {
		result.Columns = columns
	}
	return result, nil
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
