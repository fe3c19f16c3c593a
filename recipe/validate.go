package recipe

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidateEquivalence proves a candidate recipe re-renders to the original
// execution trace using only its declared defaults. Step counts and kind
// sequences must match exactly; text is compared after whitespace
// normalization, structured values by canonical value equality with nil
// normalized to an empty object. A single mismatch invalidates the whole
// candidate.
//
// This is a per-example proof: it certifies the templates for the default
// values only, not for every future parameter binding.
func ValidateEquivalence(apiType string, origSteps []TraceStep, origSQL []string, rec *Recipe) bool {
	if rec == nil {
		return false
	}
	params := EffectiveParams(rec.Params, nil)

	if len(rec.Steps) != len(origSteps) || len(rec.SQLSteps) != len(origSQL) {
		return false
	}

	for i, orig := range origSteps {
		step := rec.Steps[i]
		if step.Kind != orig.Kind {
			return false
		}
		var ok bool
		if apiType == APITypeGraphQL {
			ok = equivalentGraphQL(orig, step, params)
		} else {
			ok = equivalentREST(orig, step, params)
		}
		if !ok {
			return false
		}
	}

	for i, origQuery := range origSQL {
		rendered, err := RenderText(rec.SQLSteps[i], params)
		if err != nil {
			return false
		}
		if NormalizeSpace(rendered) != NormalizeSpace(origQuery) {
			return false
		}
	}

	return true
}

func equivalentGraphQL(orig TraceStep, step Step, params map[string]any) bool {
	if step.Name != orig.Name {
		return false
	}
	rendered, err := RenderText(step.QueryTemplate, params)
	if err != nil {
		return false
	}
	return NormalizeSpace(rendered) == NormalizeSpace(orig.Query)
}

func equivalentREST(orig TraceStep, step Step, params map[string]any) bool {
	if step.Name != orig.Name {
		return false
	}
	if !strings.EqualFold(step.Method, orig.Method) {
		return false
	}
	if step.Path != orig.Path {
		return false
	}
	pairs := []struct{ tmpl, orig map[string]any }{
		{step.PathParams, orig.PathParams},
		{step.QueryParams, orig.QueryParams},
		{step.Body, orig.Body},
	}
	for _, p := range pairs {
		rendered, err := RenderRefs(canonObj(p.tmpl), params)
		if err != nil {
			return false
		}
		if !valuesEqual(rendered, canonObj(p.orig)) {
			return false
		}
	}
	return true
}

// canonObj normalizes an absent object to the empty container, so a step
// that omitted a field entirely and one that passed {} compare equal.
func canonObj(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// valuesEqual compares two structured values by canonical JSON form, which
// makes int and float encodings of the same number equal and is
// insensitive to map iteration order.
func valuesEqual(a, b any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aj) == string(bj)
}

// CheckParamUsage enforces consistency between declared parameters and the
// parameter names actually referenced across every template. It returns a
// copy of the recipe with unreferenced declarations pruned, or an error:
//
//   - declared parameters with no reference anywhere in any template mean
//     the generator failed to parameterize; the candidate is rejected;
//   - a referenced name that was never declared would fail to render later
//     and is rejected now.
func CheckParamUsage(rec *Recipe, apiType string) (*Recipe, error) {
	used := usedParams(rec, apiType)

	if len(rec.Params) > 0 && len(used) == 0 {
		return nil, fmt.Errorf("%w: params declared but none referenced", ErrInvalid)
	}
	for name := range used {
		if _, ok := rec.Params[name]; !ok {
			return nil, fmt.Errorf("%w: template references undeclared param %q", ErrInvalid, name)
		}
	}

	out := rec.Clone()
	for name := range out.Params {
		if _, ok := used[name]; !ok {
			delete(out.Params, name)
		}
	}
	return out, nil
}

// usedParams collects every parameter name referenced across sql_steps and,
// per step kind, the query template or the three structured objects.
func usedParams(rec *Recipe, apiType string) map[string]struct{} {
	used := make(map[string]struct{})
	for _, sql := range rec.SQLSteps {
		for _, name := range TextRefs(sql) {
			used[name] = struct{}{}
		}
	}
	for _, step := range rec.Steps {
		if apiType == APITypeGraphQL {
			for _, name := range TextRefs(step.QueryTemplate) {
				used[name] = struct{}{}
			}
			continue
		}
		RefNames(step.PathParams, used)
		RefNames(step.QueryParams, used)
		RefNames(step.Body, used)
	}
	return used
}
