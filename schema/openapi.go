package schema

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Context is a fetched schema: the compact text shown to callers, the
// resolved base URL (REST only), and the raw machine-readable blob used
// for fingerprinting and line search.
type Context struct {
	Compact string
	BaseURL string
	Raw     []byte
}

// FetchOpenAPI loads an OpenAPI 3.x document from specURL and builds a
// compact operation summary. On failure the returned Context carries an
// empty raw blob; the error is informational only.
func FetchOpenAPI(ctx context.Context, client *http.Client, specURL string, headers map[string]string) (Context, error) {
	raw, err := fetchRaw(ctx, client, specURL, headers)
	if err != nil {
		return Context{}, err
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return Context{}, fmt.Errorf("parse OpenAPI spec: %w", err)
	}

	base := baseURLFromSpec(doc, specURL)
	return Context{
		Compact: compactOpenAPI(doc, base),
		BaseURL: base,
		Raw:     raw,
	}, nil
}

func fetchRaw(ctx context.Context, client *http.Client, target string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build schema request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch schema: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch schema: HTTP %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return raw, nil
}

// baseURLFromSpec prefers the spec's first server entry, falling back to
// the spec URL's origin.
func baseURLFromSpec(doc *openapi3.T, specURL string) string {
	for _, server := range doc.Servers {
		if server != nil && server.URL != "" {
			return server.URL
		}
	}
	if parsed, err := url.Parse(specURL); err == nil && parsed.Host != "" {
		return parsed.Scheme + "://" + parsed.Host
	}
	return ""
}

func compactOpenAPI(doc *openapi3.T, base string) string {
	var b strings.Builder
	if doc.Info != nil {
		fmt.Fprintf(&b, "API: %s %s\n", doc.Info.Title, doc.Info.Version)
	}
	if base != "" {
		fmt.Fprintf(&b, "Base URL: %s\n", base)
	}

	if doc.Paths == nil {
		return b.String()
	}
	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		item := pathMap[p]
		if item == nil {
			continue
		}
		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for m := range ops {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		for _, method := range methods {
			op := ops[method]
			b.WriteString("\n")
			fmt.Fprintf(&b, "%s %s", method, p)
			if op.OperationID != "" {
				fmt.Fprintf(&b, " (%s)", op.OperationID)
			}
			if op.Summary != "" {
				fmt.Fprintf(&b, ": %s", op.Summary)
			}
			b.WriteString("\n")
			writeParams(&b, op)
		}
	}
	return b.String()
}

func writeParams(b *strings.Builder, op *openapi3.Operation) {
	grouped := make(map[string][]string)
	for _, ref := range op.Parameters {
		if ref == nil || ref.Value == nil {
			continue
		}
		p := ref.Value
		desc := p.Name
		if t := schemaTypeName(p.Schema); t != "" {
			desc += " (" + t + ")"
		}
		if p.Required {
			desc += " required"
		}
		grouped[p.In] = append(grouped[p.In], desc)
	}
	for _, in := range []string{"path", "query", "header"} {
		if list := grouped[in]; len(list) > 0 {
			sort.Strings(list)
			fmt.Fprintf(b, "  %s: %s\n", in, strings.Join(list, ", "))
		}
	}
	if op.RequestBody != nil && op.RequestBody.Value != nil {
		fmt.Fprintf(b, "  body: required=%t\n", op.RequestBody.Value.Required)
	}
}

func schemaTypeName(ref *openapi3.SchemaRef) string {
	if ref == nil || ref.Value == nil || ref.Value.Type == nil {
		return ""
	}
	types := ref.Value.Type.Slice()
	if len(types) == 0 {
		return ""
	}
	return types[0]
}
