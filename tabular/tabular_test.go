package tabular

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

func TestEngineRun(t *testing.T) {
	tables := map[string][]map[string]any{
		"bookings": {
			{"id": "b1", "city": "berlin", "price": 120},
			{"id": "b2", "city": "berlin", "price": 340},
			{"id": "b3", "city": "paris", "price": 95},
		},
	}

	rows, err := NewEngine().Run(context.Background(), tables,
		"SELECT city, COUNT(*) AS n FROM bookings GROUP BY city ORDER BY city")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows: %v", rows)
	}
	if rows[0]["city"] != "berlin" || rows[0]["n"] != int64(2) {
		t.Errorf("first row: %v", rows[0])
	}
}

func TestEngineRunJoinsTables(t *testing.T) {
	tables := map[string][]map[string]any{
		"users":  {{"id": "u1", "name": "ada"}},
		"orders": {{"user_id": "u1", "total": 10}, {"user_id": "u1", "total": 5}},
	}

	rows, err := NewEngine().Run(context.Background(), tables,
		`SELECT u.name, SUM(o.total) AS spent FROM users u JOIN orders o ON o.user_id = u.id GROUP BY u.name`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rows) != 1 || rows[0]["spent"] != int64(15) {
		t.Errorf("rows: %v", rows)
	}
}

func TestEngineRunRaggedRows(t *testing.T) {
	tables := map[string][]map[string]any{
		"t": {
			{"a": 1},
			{"a": 2, "b": "x"},
		},
	}

	rows, err := NewEngine().Run(context.Background(), tables, "SELECT a, b FROM t ORDER BY a")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rows[0]["b"] != nil {
		t.Errorf("missing cell not NULL: %v", rows[0])
	}
	if rows[1]["b"] != "x" {
		t.Errorf("second row: %v", rows[1])
	}
}

func TestEngineRunNestedValuesAsJSON(t *testing.T) {
	tables := map[string][]map[string]any{
		"t": {{"id": 1, "meta": map[string]any{"tag": "vip"}}},
	}

	rows, err := NewEngine().Run(context.Background(), tables,
		`SELECT json_extract(meta, '$.tag') AS tag FROM t`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rows[0]["tag"] != "vip" {
		t.Errorf("rows: %v", rows)
	}
}

func TestEngineRunBoolColumns(t *testing.T) {
	tables := map[string][]map[string]any{
		"t": {{"active": true}, {"active": false}},
	}

	rows, err := NewEngine().Run(context.Background(), tables,
		"SELECT COUNT(*) AS n FROM t WHERE active = 1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rows[0]["n"] != int64(1) {
		t.Errorf("rows: %v", rows)
	}
}

func TestEngineRunQueryError(t *testing.T) {
	_, err := NewEngine().Run(context.Background(), nil, "SELECT * FROM missing_table")
	if err == nil {
		t.Fatal("query against missing table succeeded")
	}
}

func TestEngineRunEmptyTable(t *testing.T) {
	tables := map[string][]map[string]any{"empty": {}}
	rows, err := NewEngine().Run(context.Background(), tables, "SELECT COUNT(*) AS n FROM empty")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rows[0]["n"] != int64(0) {
		t.Errorf("rows: %v", rows)
	}
}

func TestExtractTables(t *testing.T) {
	tests := []struct {
		name string
		data any
		want map[string][]map[string]any
	}{
		{
			name: "list becomes table under name",
			data: []any{map[string]any{"id": 1}, map[string]any{"id": 2}},
			want: map[string][]map[string]any{
				"data": {{"id": 1}, {"id": 2}},
			},
		},
		{
			name: "object contributes per list field",
			data: map[string]any{
				"users": []any{map[string]any{"id": 1}},
				"total": 1,
			},
			want: map[string][]map[string]any{
				"users": {{"id": 1}},
			},
		},
		{
			name: "object without lists is single row",
			data: map[string]any{"id": 7, "name": "x"},
			want: map[string][]map[string]any{
				"data": {{"id": 7, "name": "x"}},
			},
		},
		{
			name: "nil becomes empty table",
			data: nil,
			want: map[string][]map[string]any{"data": {}},
		},
		{
			name: "scalar becomes value row",
			data: 42,
			want: map[string][]map[string]any{"data": {{"value": 42}}},
		},
		{
			name: "scalar list elements get value column",
			data: []any{"a", "b"},
			want: map[string][]map[string]any{
				"data": {{"value": "a"}, {"value": "b"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTables(tt.data, "data")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestToCSV(t *testing.T) {
	rows := []map[string]any{
		{"name": "ada", "age": 36, "meta": map[string]any{"x": 1}},
		{"name": "bob", "active": true},
	}

	got := ToCSV(rows)
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv: %q", got)
	}
	if lines[0] != "active,age,meta,name" {
		t.Errorf("header: %q", lines[0])
	}
	if !strings.Contains(lines[1], `"{""x"":1}"`) {
		t.Errorf("nested value row: %q", lines[1])
	}
	if !strings.Contains(lines[2], "true") {
		t.Errorf("bool row: %q", lines[2])
	}

	if ToCSV(nil) != "" {
		t.Error("empty rows should render empty string")
	}
}

func TestRowsOf(t *testing.T) {
	if got := RowsOf(nil); got != nil {
		t.Errorf("nil: %v", got)
	}
	if got := RowsOf([]map[string]any{{"a": 1}}); len(got) != 1 {
		t.Errorf("row slice: %v", got)
	}
	if got := RowsOf([]any{map[string]any{"a": 1}, "x"}); len(got) != 2 || got[1]["value"] != "x" {
		t.Errorf("any slice: %v", got)
	}
	if got := RowsOf(map[string]any{"a": 1}); len(got) != 1 {
		t.Errorf("map: %v", got)
	}
	if got := RowsOf(7); got[0]["value"] != 7 {
		t.Errorf("scalar: %v", got)
	}
}
