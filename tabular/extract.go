package tabular

// ExtractTables converts an API response into named row sets. A list
// response becomes one table under name. An object response contributes
// one table per list-valued field, keyed by field name; an object with no
// list fields becomes a single-row table under name. Scalar responses
// become a one-row, one-column table.
func ExtractTables(data any, name string) map[string][]map[string]any {
	out := make(map[string][]map[string]any)
	switch t := data.(type) {
	case []any:
		out[name] = normalizeRows(t)
	case map[string]any:
		for key, value := range t {
			if list, ok := value.([]any); ok {
				out[key] = normalizeRows(list)
			}
		}
		if len(out) == 0 {
			out[name] = []map[string]any{t}
		}
	case nil:
		out[name] = []map[string]any{}
	default:
		out[name] = []map[string]any{{"value": t}}
	}
	return out
}

// normalizeRows coerces list elements to row maps; scalar elements land in
// a "value" column.
func normalizeRows(list []any) []map[string]any {
	rows := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
			continue
		}
		rows = append(rows, map[string]any{"value": item})
	}
	return rows
}
