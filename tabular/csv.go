package tabular

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
)

// ToCSV renders rows as CSV with a header of the sorted column union.
// Nested values serialize as JSON. Empty input renders as an empty string.
func ToCSV(rows []map[string]any) string {
	if len(rows) == 0 {
		return ""
	}
	columns := columnSet(rows)

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	_ = w.Write(columns)
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = cellText(row[col])
		}
		_ = w.Write(record)
	}
	w.Flush()
	return buf.String()
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64, int, int64:
		return fmt.Sprintf("%v", t)
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(encoded)
	}
}

// RowsOf coerces an arbitrary last-result value into a row set for CSV
// output: row slices pass through, anything else becomes a single row.
func RowsOf(v any) []map[string]any {
	switch t := v.(type) {
	case nil:
		return nil
	case []map[string]any:
		return t
	case []any:
		return normalizeRows(t)
	case map[string]any:
		return []map[string]any{t}
	default:
		return []map[string]any{{"value": t}}
	}
}
