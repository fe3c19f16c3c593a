package extract

import (
	"context"

	"github.com/jonwraymond/recipecache/recipe"
	"github.com/jonwraymond/recipecache/store"
)

// LiteralExtractor turns a trace into a parameterless recipe: every
// template is the originally executed value verbatim. It is the default
// when no generative extractor is configured; replays reproduce the
// original pipeline exactly, with no knobs. Its output still goes through
// the same validation as everything else.
type LiteralExtractor struct{}

// Extract implements Extractor.
func (LiteralExtractor) Extract(_ context.Context, apiType, question string, steps []recipe.TraceStep, sqlSteps []string) (*recipe.Recipe, error) {
	rec := &recipe.Recipe{
		ToolName: literalToolName(question),
		Params:   map[string]recipe.ParamSpec{},
		Steps:    make([]recipe.Step, len(steps)),
		SQLSteps: append([]string{}, sqlSteps...),
	}

	for i, trace := range steps {
		step := recipe.Step{
			Kind: trace.Kind,
			Name: trace.Name,
		}
		if apiType == recipe.APITypeGraphQL {
			step.QueryTemplate = trace.Query
		} else {
			step.Method = trace.Method
			step.Path = trace.Path
			step.PathParams = trace.PathParams
			step.QueryParams = trace.QueryParams
			step.Body = trace.Body
		}
		rec.Steps[i] = step
	}
	return rec, nil
}

// literalToolName slugs the question into a valid tool name, capped at 40
// characters.
func literalToolName(question string) string {
	name := store.SanitizeToolName(question)
	if len(name) > 40 {
		name = name[:40]
	}
	return name
}
