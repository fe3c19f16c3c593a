package engine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonwraymond/recipecache/apicall"
	"github.com/jonwraymond/recipecache/recipe"
	"github.com/jonwraymond/recipecache/tabular"
)

// GraphQLTarget describes where a GraphQL step executor sends queries.
type GraphQLTarget struct {
	Endpoint string
	Headers  map[string]string
}

// NewGraphQLStepExecutor returns a StepExecutor that renders each step's
// query template, executes it against the target, and merges the response
// tables into state under the step's output name. The executed query text
// is the step's call record.
func NewGraphQLStepExecutor(client *apicall.Client, target GraphQLTarget) StepExecutor {
	return func(ctx context.Context, index int, step recipe.Step, params map[string]any, state *State) Outcome {
		if step.Kind != recipe.KindGraphQL || step.QueryTemplate == "" {
			return Outcome{Err: ErrBadStep.Error()}
		}

		name := step.Name
		if name == "" {
			name = "data"
		}

		query, err := recipe.RenderText(step.QueryTemplate, params)
		if err != nil {
			return Outcome{Err: err.Error()}
		}

		res := client.GraphQL(ctx, query, nil, target.Endpoint, target.Headers)
		if !res.Success {
			return Outcome{Err: res.Error}
		}

		tables := tabular.ExtractTables(res.Data, name)
		state.MergeTables(tables)
		return Outcome{OK: true, Data: tables[name], Record: query}
	}
}

// RESTTarget describes where a REST step executor sends requests.
type RESTTarget struct {
	BaseURL          string
	Headers          map[string]string
	AllowUnsafePaths []string
}

// RESTCallRecord reports one executed REST call back to the caller.
// Parameter objects serialize as JSON strings so records stay flat.
type RESTCallRecord struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	PathParams  string `json:"path_params,omitempty"`
	QueryParams string `json:"query_params,omitempty"`
	Body        string `json:"body,omitempty"`
	Name        string `json:"name"`
	Success     bool   `json:"success"`
}

// NewRESTStepExecutor returns a StepExecutor that renders each step's
// structured parameter objects, executes the request, and merges the
// response tables into state under the step's output name.
func NewRESTStepExecutor(client *apicall.Client, target RESTTarget) StepExecutor {
	return func(ctx context.Context, index int, step recipe.Step, params map[string]any, state *State) Outcome {
		if step.Kind != recipe.KindREST || step.Path == "" {
			return Outcome{Err: ErrBadStep.Error()}
		}

		method := strings.ToUpper(step.Method)
		if method == "" {
			method = "GET"
		}
		name := step.Name
		if name == "" {
			name = "data"
		}

		pathParams, err := renderObject(step.PathParams, params)
		if err != nil {
			return Outcome{Err: err.Error()}
		}
		queryParams, err := renderObject(step.QueryParams, params)
		if err != nil {
			return Outcome{Err: err.Error()}
		}
		body, err := renderObject(step.Body, params)
		if err != nil {
			return Outcome{Err: err.Error()}
		}

		res := client.REST(ctx, apicall.RESTCall{
			Method:           method,
			Path:             step.Path,
			PathParams:       pathParams,
			QueryParams:      queryParams,
			Body:             body,
			BaseURL:          target.BaseURL,
			Headers:          target.Headers,
			AllowUnsafePaths: target.AllowUnsafePaths,
		})
		if !res.Success {
			return Outcome{Err: res.Error}
		}

		tables := tabular.ExtractTables(res.Data, name)
		state.MergeTables(tables)

		record := RESTCallRecord{
			Method:      method,
			Path:        step.Path,
			PathParams:  objectJSON(pathParams),
			QueryParams: objectJSON(queryParams),
			Body:        objectJSON(body),
			Name:        name,
			Success:     true,
		}
		return Outcome{OK: true, Data: tables[name], Record: record}
	}
}

func renderObject(obj map[string]any, params map[string]any) (map[string]any, error) {
	if obj == nil {
		return nil, nil
	}
	rendered, err := recipe.RenderRefs(obj, params)
	if err != nil {
		return nil, err
	}
	m, ok := rendered.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

func objectJSON(obj map[string]any) string {
	if len(obj) == 0 {
		return ""
	}
	encoded, err := json.Marshal(obj)
	if err != nil {
		return ""
	}
	return string(encoded)
}
