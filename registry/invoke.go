package registry

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonwraymond/recipecache/apicall"
	"github.com/jonwraymond/recipecache/engine"
	"github.com/jonwraymond/recipecache/recipe"
	"github.com/jonwraymond/recipecache/schema"
	"github.com/jonwraymond/recipecache/tabular"
)

func (r *Registry) handleExecute(ctx context.Context, rc *ReqContext, args map[string]any) (any, error) {
	if rc == nil {
		return nil, ErrMissingHeader
	}

	var res apicall.Result
	if rc.APIType == recipe.APITypeGraphQL {
		query := argString(args, "query")
		if query == "" {
			return nil, fmt.Errorf("%w: query is required for graphql targets", ErrInvalidRequest)
		}
		res = r.client.GraphQL(ctx, query, nil, rc.TargetURL, rc.TargetHeaders)
	} else {
		p := argString(args, "path")
		if p == "" {
			return nil, fmt.Errorf("%w: path is required for rest targets", ErrInvalidRequest)
		}
		sc, err := r.schemaContext(ctx, rc)
		if err != nil {
			return nil, err
		}
		res = r.client.REST(ctx, apicall.RESTCall{
			Method:           strings.ToUpper(argString(args, "method")),
			Path:             p,
			PathParams:       argObject(args, "path_params"),
			QueryParams:      argObject(args, "query_params"),
			Body:             argObject(args, "body"),
			BaseURL:          sc.BaseURL,
			Headers:          rc.TargetHeaders,
			AllowUnsafePaths: rc.AllowUnsafePaths,
		})
	}

	out := map[string]any{"success": res.Success}
	if res.Success {
		out["data"] = res.Data
	} else {
		out["error"] = res.Error
	}
	return out, nil
}

func (r *Registry) handleSearchSchema(ctx context.Context, rc *ReqContext, args map[string]any) (any, error) {
	if rc == nil {
		return nil, ErrMissingHeader
	}
	sc, err := r.schemaContext(ctx, rc)
	if err != nil {
		return nil, err
	}

	if pattern := argString(args, "pattern"); pattern != "" {
		text, err := schema.SearchLines(sc.Compact, pattern, schema.SearchOptions{
			Context:  argInt(args, "context", 0),
			Before:   argInt(args, "before", 0),
			After:    argInt(args, "after", 0),
			Offset:   argInt(args, "offset", 0),
			MaxChars: r.config.maxResponseChars,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return map[string]any{"matches": text}, nil
	}

	query := argString(args, "query")
	if query == "" {
		return nil, fmt.Errorf("%w: pattern or query is required", ErrInvalidRequest)
	}
	sections, err := r.searcher.Search(sc.Compact, schema.Fingerprint(sc.Raw), query, argInt(args, "limit", 5))
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(sections))
	for _, section := range sections {
		out = append(out, map[string]any{"text": section.Text, "score": section.Score})
	}
	return map[string]any{"sections": out}, nil
}

func (r *Registry) handleSuggestRecipes(ctx context.Context, rc *ReqContext, args map[string]any) (any, error) {
	if rc == nil {
		return nil, ErrMissingHeader
	}
	if r.store == nil {
		return nil, fmt.Errorf("%w: no recipe store configured", ErrInvalidRequest)
	}
	question := argString(args, "question")
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidRequest)
	}

	sc, err := r.schemaContext(ctx, rc)
	if err != nil {
		return nil, err
	}

	k := argInt(args, "k", r.config.suggestLimit)
	suggestions := r.store.Suggest(rc.APIID(sc.BaseURL), schema.Fingerprint(sc.Raw), question, k)

	out := make([]map[string]any, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, map[string]any{
			"recipe_id": s.RecipeID,
			"score":     s.Score,
			"question":  s.Question,
			"tool_name": s.ToolName,
			"params":    s.Params,
		})
	}
	return map[string]any{"suggestions": out}, nil
}

func (r *Registry) handleRunRecipe(ctx context.Context, rc *ReqContext, args map[string]any) (any, error) {
	if rc == nil {
		return nil, ErrMissingHeader
	}
	if r.store == nil {
		return nil, fmt.Errorf("%w: no recipe store configured", ErrInvalidRequest)
	}
	sc, err := r.schemaContext(ctx, rc)
	if err != nil {
		return nil, err
	}
	apiID := rc.APIID(sc.BaseURL)
	schemaHash := schema.Fingerprint(sc.Raw)

	var recipeID string
	switch {
	case argString(args, "recipe_id") != "":
		recipeID = argString(args, "recipe_id")
	case argString(args, "tool_name") != "":
		record := r.store.FindByToolSlug(apiID, schemaHash, argString(args, "tool_name"), toolSlugMaxLen)
		if record == nil {
			return nil, fmt.Errorf("%w: no recipe with tool name %q", ErrRecipeNotFound, argString(args, "tool_name"))
		}
		recipeID = record.RecipeID
	default:
		return nil, fmt.Errorf("%w: recipe_id or tool_name is required", ErrInvalidRequest)
	}

	return r.runStored(ctx, rc, sc, apiID, schemaHash, recipeID, argObject(args, "params"), argString(args, "format"))
}

// invokeRecipe runs a dynamically listed recipe tool; the tool's arguments
// are the recipe's parameter values directly.
func (r *Registry) invokeRecipe(ctx context.Context, rc *ReqContext, sc schema.Context, recipeID string, args map[string]any) (any, error) {
	format := ""
	params := args
	if f, ok := args["format"].(string); ok {
		format = f
		params = make(map[string]any, len(args))
		for k, v := range args {
			if k != "format" {
				params[k] = v
			}
		}
	}
	return r.runStored(ctx, rc, sc, rc.APIID(sc.BaseURL), schema.Fingerprint(sc.Raw), recipeID, params, format)
}

// runStored replays a cached recipe after the safety guard: the recipe
// must have been extracted against this exact API and schema version.
func (r *Registry) runStored(ctx context.Context, rc *ReqContext, sc schema.Context, apiID, schemaHash, recipeID string, params map[string]any, format string) (any, error) {
	meta := r.store.GetMeta(recipeID)
	if meta == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecipeNotFound, recipeID)
	}
	if meta.APIID != apiID || meta.SchemaHash != schemaHash {
		return nil, fmt.Errorf("%w: recipe %s was extracted against a different API or schema version", ErrSchemaMismatch, recipeID)
	}
	rec := r.store.Get(recipeID)
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecipeNotFound, recipeID)
	}

	if missing := recipe.MissingRequired(rec.Params, params); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required parameters: %s", recipe.ErrMissingParam, strings.Join(missing, ", "))
	}
	bound := recipe.EffectiveParams(rec.Params, params)

	r.log.Debug("replaying recipe",
		zap.String("recipe_id", recipeID),
		zap.Int("steps", len(rec.Steps)),
		zap.Int("sql_steps", len(rec.SQLSteps)),
	)
	return r.runPipeline(ctx, rc, sc, rec, bound, format), nil
}

func (r *Registry) handleRunPipeline(ctx context.Context, rc *ReqContext, args map[string]any) (any, error) {
	if rc == nil {
		return nil, ErrMissingHeader
	}
	sc, err := r.schemaContext(ctx, rc)
	if err != nil {
		return nil, err
	}

	rawSteps, ok := args["steps"].([]any)
	if !ok || len(rawSteps) == 0 {
		return nil, fmt.Errorf("%w: steps must be a non-empty array", ErrInvalidRequest)
	}
	rec := &recipe.Recipe{Params: map[string]recipe.ParamSpec{}, SQLSteps: []string{}}
	for i, raw := range rawSteps {
		stepArgs, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: step %d is not an object", ErrInvalidRequest, i)
		}
		step, err := pipelineStep(rc.APIType, stepArgs)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ErrInvalidRequest, i, err)
		}
		rec.Steps = append(rec.Steps, step)
	}
	if rawSQL, ok := args["sql"].([]any); ok {
		for i, q := range rawSQL {
			query, ok := q.(string)
			if !ok {
				return nil, fmt.Errorf("%w: sql %d is not a string", ErrInvalidRequest, i)
			}
			rec.SQLSteps = append(rec.SQLSteps, query)
		}
	}

	out := r.runPipeline(ctx, rc, sc, rec, map[string]any{}, argString(args, "format"))

	if r.extractor != nil {
		success, _ := out["success"].(bool)
		if success {
			r.extractor.MaybeExtractAndSave(ctx, rc.APIType, rc.APIID(sc.BaseURL),
				argString(args, "question"), pipelineTrace(rc.APIType, rec), rec.SQLSteps, sc.Raw, false)
		}
	}
	return out, nil
}

// runPipeline executes a recipe's API and SQL phases and shapes the
// response. Step failures surface as an unsuccessful result, not an error.
func (r *Registry) runPipeline(ctx context.Context, rc *ReqContext, sc schema.Context, rec *recipe.Recipe, params map[string]any, format string) map[string]any {
	var exec engine.StepExecutor
	if rc.APIType == recipe.APITypeGraphQL {
		exec = engine.NewGraphQLStepExecutor(r.client, engine.GraphQLTarget{
			Endpoint: rc.TargetURL,
			Headers:  rc.TargetHeaders,
		})
	} else {
		exec = engine.NewRESTStepExecutor(r.client, engine.RESTTarget{
			BaseURL:          sc.BaseURL,
			Headers:          rc.TargetHeaders,
			AllowUnsafePaths: rc.AllowUnsafePaths,
		})
	}

	result := engine.Run(ctx, rec, params, engine.NewState(), exec, r.sql)

	out := map[string]any{
		"success":      result.Success,
		"executed":     result.Executed,
		"executed_sql": result.ExecutedSQL,
	}
	if !result.Success {
		out["error"] = result.Err
		return out
	}

	rows := tabular.RowsOf(result.LastData)
	out["row_count"] = len(rows)
	// The raw row set goes out only when the caller opted in; the default
	// response carries a size-capped CSV rendering instead.
	if format == "csv" || !rc.IncludeResult {
		out["data"] = truncateText(tabular.ToCSV(rows), r.config.maxResponseChars)
	} else {
		out["data"] = result.LastData
	}
	return out
}

// pipelineStep builds one literal recipe step from tool arguments.
func pipelineStep(apiType string, args map[string]any) (recipe.Step, error) {
	name := argString(args, "name")
	if apiType == recipe.APITypeGraphQL {
		query := argString(args, "query")
		if query == "" {
			return recipe.Step{}, fmt.Errorf("query is required")
		}
		return recipe.Step{Kind: recipe.KindGraphQL, Name: name, QueryTemplate: query}, nil
	}

	p := argString(args, "path")
	if p == "" {
		return recipe.Step{}, fmt.Errorf("path is required")
	}
	return recipe.Step{
		Kind:        recipe.KindREST,
		Name:        name,
		Method:      strings.ToUpper(argString(args, "method")),
		Path:        p,
		PathParams:  argObject(args, "path_params"),
		QueryParams: argObject(args, "query_params"),
		Body:        argObject(args, "body"),
	}, nil
}

// pipelineTrace converts a literal pipeline into the trace form extraction
// validates against. The pipeline ran with no parameters, so templates and
// executed values coincide.
func pipelineTrace(apiType string, rec *recipe.Recipe) []recipe.TraceStep {
	trace := make([]recipe.TraceStep, len(rec.Steps))
	for i, step := range rec.Steps {
		ts := recipe.TraceStep{Kind: step.Kind, Name: step.Name}
		if apiType == recipe.APITypeGraphQL {
			ts.Query = step.QueryTemplate
		} else {
			ts.Method = step.Method
			ts.Path = step.Path
			ts.PathParams = step.PathParams
			ts.QueryParams = step.QueryParams
			ts.Body = step.Body
		}
		trace[i] = ts
	}
	return trace
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func argInt(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func argObject(args map[string]any, key string) map[string]any {
	m, _ := args[key].(map[string]any)
	return m
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "\n... (truncated)"
}
