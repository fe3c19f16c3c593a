package tabular

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Engine runs SQL queries over named in-memory result sets. It implements
// the query-runner contract consumed by the replay engine. The zero value
// is ready to use.
type Engine struct{}

// NewEngine returns an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Run loads tables into an in-memory SQLite database, executes query, and
// returns the result rows. Query failures come back as errors with the
// engine's message; they never panic.
func (e *Engine) Run(ctx context.Context, tables map[string][]map[string]any, query string) ([]map[string]any, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}
	defer db.Close()
	// In-memory databases vanish per connection; keep exactly one.
	db.SetMaxOpenConns(1)

	for name, rows := range tables {
		if err := loadTable(ctx, db, name, rows); err != nil {
			return nil, err
		}
	}

	result, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer result.Close()

	return scanRows(result)
}

func loadTable(ctx context.Context, db *sql.DB, name string, rows []map[string]any) error {
	columns := columnSet(rows)
	if len(columns) == 0 {
		columns = []string{"value"}
	}

	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = quoteIdent(col)
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(name), placeholders)
	stmt, err := db.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", name, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]any, len(columns))
		for i, col := range columns {
			args[i] = cellValue(row[col])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", name, err)
		}
	}
	return nil
}

// columnSet is the sorted union of keys across all rows, so ragged rows
// still load with NULLs in the gaps.
func columnSet(rows []map[string]any) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for col := range row {
			seen[col] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for col := range seen {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

// cellValue maps a cell to a SQLite-storable value. Nested structures
// become JSON text so json_extract and json_each can reach into them.
func cellValue(v any) any {
	switch t := v.(type) {
	case nil, string, int, int64, float64:
		return t
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(encoded)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func scanRows(result *sql.Rows) ([]map[string]any, error) {
	columns, err := result.Columns()
	if err != nil {
		return nil, err
	}

	out := []map[string]any{}
	for result.Next() {
		cells := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := result.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := cells[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = cells[i]
			}
		}
		out = append(out, row)
	}
	return out, result.Err()
}
