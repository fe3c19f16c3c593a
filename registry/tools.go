package registry

import (
	"fmt"
	"sort"

	"github.com/jonwraymond/recipecache/schema"
	"github.com/jonwraymond/recipecache/store"
	"github.com/jonwraymond/toolfoundation/model"
)

// Fixed tool names.
const (
	ToolExecute        = "execute"
	ToolSearchSchema   = "search_schema"
	ToolSuggestRecipes = "suggest_recipes"
	ToolRunRecipe      = "run_recipe"
	ToolRunPipeline    = "run_pipeline"
)

func (r *Registry) fixedTools() []model.Tool {
	return []model.Tool{
		buildTool(ToolExecute,
			"Execute one live API call against the target. GraphQL targets take a query; REST targets take method, path, and optional path_params, query_params, and body objects.",
			objectSchema(map[string]any{
				"query":        map[string]any{"type": "string", "description": "GraphQL query (graphql targets)"},
				"method":       map[string]any{"type": "string", "description": "HTTP method (rest targets, default GET)"},
				"path":         map[string]any{"type": "string", "description": "Endpoint path (rest targets)"},
				"path_params":  map[string]any{"type": "object"},
				"query_params": map[string]any{"type": "object"},
				"body":         map[string]any{"type": "object"},
			}),
			"api", "execute"),
		buildTool(ToolSearchSchema,
			"Search the target's schema. Pass pattern for a case-insensitive regex over schema lines with surrounding context, or query for ranked full-text section matches.",
			objectSchema(map[string]any{
				"pattern": map[string]any{"type": "string", "description": "regex matched per line"},
				"query":   map[string]any{"type": "string", "description": "keyword query, ranked"},
				"context": map[string]any{"type": "integer", "description": "lines of context around each regex match"},
				"before":  map[string]any{"type": "integer"},
				"after":   map[string]any{"type": "integer"},
				"offset":  map[string]any{"type": "integer", "description": "matches to skip, for pagination"},
				"limit":   map[string]any{"type": "integer", "description": "ranked sections to return"},
			}),
			"schema", "search"),
		buildTool(ToolSuggestRecipes,
			"Find cached recipes whose original questions are similar to a natural-language question. Returns ranked matches with scores and parameter specs, never recipe bodies.",
			objectSchema(map[string]any{
				"question": map[string]any{"type": "string"},
				"k":        map[string]any{"type": "integer", "description": "max suggestions"},
			}, "question"),
			"recipe", "search"),
		buildTool(ToolRunRecipe,
			"Replay a cached recipe by id or tool name with parameter values. Parameters without declared defaults are required. Returns the pipeline's final result.",
			objectSchema(map[string]any{
				"recipe_id": map[string]any{"type": "string"},
				"tool_name": map[string]any{"type": "string"},
				"params":    map[string]any{"type": "object"},
				"format":    map[string]any{"type": "string", "enum": []string{"json", "csv"}},
			}),
			"recipe", "execute"),
		buildTool(ToolRunPipeline,
			"Execute a sequence of API calls followed by SQL queries over the collected results. On success the pipeline may be cached as a reusable recipe for the given question.",
			objectSchema(map[string]any{
				"question": map[string]any{"type": "string", "description": "what this pipeline answers, used for recipe caching"},
				"steps": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "object"},
					"description": "API calls: {query} for graphql, {method, path, path_params, query_params, body} for rest; each may set name for its result table",
				},
				"sql": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "SQL run in order over the collected tables",
				},
				"format": map[string]any{"type": "string", "enum": []string{"json", "csv"}},
			}, "steps"),
			"api", "execute"),
	}
}

func (r *Registry) fixedHandlers() map[string]ToolHandler {
	return map[string]ToolHandler{
		ToolExecute:        r.handleExecute,
		ToolSearchSchema:   r.handleSearchSchema,
		ToolSuggestRecipes: r.handleSuggestRecipes,
		ToolRunRecipe:      r.handleRunRecipe,
		ToolRunPipeline:    r.handleRunPipeline,
	}
}

// recipeTool pairs a listed tool with the cached recipe it invokes.
type recipeTool struct {
	tool     model.Tool
	recipeID string
}

// recipeTools lists one tool per cached recipe for this request's API and
// schema version. Listing order follows the store's (stable) order, so
// name deduplication is deterministic across calls.
func (r *Registry) recipeTools(rc *ReqContext, sc schema.Context) []recipeTool {
	apiID := rc.APIID(sc.BaseURL)
	records := r.store.List(apiID, schema.Fingerprint(sc.Raw))

	seen := make(map[string]struct{}, len(records))
	tools := make([]recipeTool, 0, len(records))
	for _, record := range records {
		base := store.SanitizeToolName(record.ToolName)
		if len(base) > toolSlugMaxLen {
			base = base[:toolSlugMaxLen]
		}
		name := store.DeduplicateToolName(base, seen)
		tools = append(tools, recipeTool{
			tool:     buildTool(name, recipeDescription(record), recipeInputSchema(record), "recipe", "cached"),
			recipeID: record.RecipeID,
		})
	}
	return tools
}

func recipeDescription(record *store.Record) string {
	return fmt.Sprintf("Cached pipeline (%d API steps, %d SQL steps) answering: %s",
		len(record.Recipe.Steps), len(record.Recipe.SQLSteps), record.Question)
}

// recipeInputSchema derives a JSON Schema from the recipe's parameter
// specs. Parameters without a declared default are required.
func recipeInputSchema(record *store.Record) map[string]any {
	properties := make(map[string]any, len(record.Recipe.Params))
	var required []string
	for name, spec := range record.Recipe.Params {
		prop := map[string]any{"type": jsonType(spec.Type)}
		if spec.HasDefault {
			prop["default"] = spec.Default
		} else {
			required = append(required, name)
		}
		properties[name] = prop
	}
	sort.Strings(required)
	return objectSchema(properties, required...)
}

func jsonType(paramType string) string {
	switch paramType {
	case "int":
		return "integer"
	case "float":
		return "number"
	case "bool":
		return "boolean"
	default:
		return "string"
	}
}
