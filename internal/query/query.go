// Package query forwards user-supplied SQL to the embedded SQLite engine.
// The working table is registered under a fixed name and the query result
// replaces it; the engine does all the work and its error text is passed
// through verbatim. On any failure the input table is left untouched.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/lanelab/frameview/internal/table"
)

// TableName is the SQL name the working table is registered under.
const TableName = "current_df"

// Run loads t into an in-memory database as current_df, executes the
// query, and returns the result as a new table. The input table is never
// modified. Engine errors (bad syntax, unknown columns, type mismatches)
// come back as-is so the UI can surface them.
func Run(ctx context.Context, t *table.Table, query string) (*table.Table, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty SQL query")
	}
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open query engine: %v", err)
	}
	defer db.Close()

	if err := register(ctx, db, t); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := table.New(cols)
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// register creates the current_df table and bulk-loads t into it. Numeric
// columns are declared REAL so arithmetic in user queries behaves; all
// other columns are TEXT.
func register(ctx context.Context, db *sql.DB, t *table.Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("working table has no columns")
	}
	defs := make([]string, len(t.Columns))
	numeric := make([]bool, len(t.Columns))
	for i, col := range t.Columns {
		numeric[i] = t.IsNumeric(col)
		typ := "TEXT"
		if numeric[i] {
			typ = "REAL"
		}
		defs[i] = quoteIdent(col) + " " + typ
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", TableName, strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to register working table: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(t.Columns)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", TableName, placeholders))
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, row := range t.Rows {
		args := make([]any, len(t.Columns))
		for i := range t.Columns {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			if numeric[i] && cell != "" {
				f, _ := strconv.ParseFloat(cell, 64)
				args[i] = f
			} else if cell == "" && numeric[i] {
				args[i] = nil
			} else {
				args[i] = cell
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to load working table: %v", err)
		}
	}
	return tx.Commit()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// formatValue renders a scanned SQL value back into a cell string.
// Floats use the shortest round-trip representation so integral values
// print without a trailing ".0" mismatch against the source CSV.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprintf("%v", x)
	}
}
