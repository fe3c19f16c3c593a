package registry

import (
	"context"

	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolHandler executes a tool with the given arguments.
// It receives the per-request context parsed from transport headers and a
// map of arguments from the MCP request, and returns the result as any
// (typically a map) and an error if execution fails.
type ToolHandler func(ctx context.Context, rc *ReqContext, args map[string]any) (any, error)

func buildTool(name, description string, inputSchema map[string]any, tags ...string) model.Tool {
	return model.Tool{
		Tool: mcp.Tool{
			Name:        name,
			Description: description,
			InputSchema: inputSchema,
		},
		Namespace: "recipecache",
		Tags:      model.NormalizeTags(tags),
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
