package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// introspectionQuery is the standard GraphQL introspection query, trimmed
// to the depth the compact summary needs.
const introspectionQuery = `query IntrospectionQuery {
  __schema {
    queryType { name }
    mutationType { name }
    types {
      kind
      name
      description
      fields(includeDeprecated: false) {
        name
        args { name type { ...TypeRef } }
        type { ...TypeRef }
      }
    }
  }
}
fragment TypeRef on __Type {
  kind
  name
  ofType { kind name ofType { kind name ofType { kind name } } }
}`

type gqlTypeRef struct {
	Kind   string      `json:"kind"`
	Name   string      `json:"name"`
	OfType *gqlTypeRef `json:"ofType"`
}

type gqlField struct {
	Name string `json:"name"`
	Args []struct {
		Name string     `json:"name"`
		Type gqlTypeRef `json:"type"`
	} `json:"args"`
	Type gqlTypeRef `json:"type"`
}

type gqlType struct {
	Kind   string     `json:"kind"`
	Name   string     `json:"name"`
	Fields []gqlField `json:"fields"`
}

type introspectionResult struct {
	Data struct {
		Schema struct {
			QueryType    *struct{ Name string } `json:"queryType"`
			MutationType *struct{ Name string } `json:"mutationType"`
			Types        []gqlType              `json:"types"`
		} `json:"__schema"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchGraphQL runs the introspection query against endpoint and builds a
// compact type summary. On failure the returned Context carries an empty
// raw blob; the error is informational only.
func FetchGraphQL(ctx context.Context, client *http.Client, endpoint string, headers map[string]string) (Context, error) {
	payload, err := json.Marshal(map[string]any{"query": introspectionQuery})
	if err != nil {
		return Context{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Context{}, fmt.Errorf("build introspection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Context{}, fmt.Errorf("introspection: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Context{}, fmt.Errorf("read introspection: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Context{}, fmt.Errorf("introspection: HTTP %d", resp.StatusCode)
	}

	var result introspectionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return Context{}, fmt.Errorf("decode introspection: %w", err)
	}
	if len(result.Errors) > 0 {
		return Context{}, fmt.Errorf("introspection: %s", result.Errors[0].Message)
	}
	if len(result.Data.Schema.Types) == 0 {
		return Context{}, fmt.Errorf("introspection returned no types")
	}

	return Context{
		Compact: compactGraphQL(result),
		Raw:     raw,
	}, nil
}

func compactGraphQL(result introspectionResult) string {
	var b strings.Builder
	if qt := result.Data.Schema.QueryType; qt != nil {
		fmt.Fprintf(&b, "query root: %s\n", qt.Name)
	}
	if mt := result.Data.Schema.MutationType; mt != nil {
		fmt.Fprintf(&b, "mutation root: %s\n", mt.Name)
	}

	types := make([]gqlType, 0, len(result.Data.Schema.Types))
	for _, t := range result.Data.Schema.Types {
		if t.Kind != "OBJECT" || strings.HasPrefix(t.Name, "__") {
			continue
		}
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })

	for _, t := range types {
		fmt.Fprintf(&b, "\ntype %s {\n", t.Name)
		for _, f := range t.Fields {
			if len(f.Args) == 0 {
				fmt.Fprintf(&b, "  %s: %s\n", f.Name, typeRefText(f.Type))
				continue
			}
			args := make([]string, len(f.Args))
			for i, a := range f.Args {
				args[i] = a.Name + ": " + typeRefText(a.Type)
			}
			fmt.Fprintf(&b, "  %s(%s): %s\n", f.Name, strings.Join(args, ", "), typeRefText(f.Type))
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func typeRefText(ref gqlTypeRef) string {
	switch ref.Kind {
	case "NON_NULL":
		if ref.OfType != nil {
			return typeRefText(*ref.OfType) + "!"
		}
		return "!"
	case "LIST":
		if ref.OfType != nil {
			return "[" + typeRefText(*ref.OfType) + "]"
		}
		return "[]"
	default:
		return ref.Name
	}
}
