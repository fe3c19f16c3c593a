package recipe

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
)

// Step kinds. A step's kind must match the transport it was recorded from.
const (
	KindGraphQL = "graphql"
	KindREST    = "rest"
)

// API types accepted by validators and executors.
const (
	APITypeGraphQL = "graphql"
	APITypeREST    = "rest"
)

// toolNameRe matches a lowercase-start identifier of at most 40 characters.
var toolNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,39}$`)

// ParamSpec describes one recipe parameter. Type is one of "str", "int",
// "float", or "bool". A parameter without a declared default is required at
// invocation time; one with a default (including an explicit null) is
// optional and falls back to that value.
type ParamSpec struct {
	Type       string
	Default    any
	HasDefault bool
}

// MarshalJSON emits {"type": ...} and includes "default" only when one was
// declared, so an explicit null default survives a round trip.
func (p ParamSpec) MarshalJSON() ([]byte, error) {
	m := map[string]any{"type": p.Type}
	if p.HasDefault {
		m["default"] = p.Default
	}
	return json.Marshal(m)
}

// UnmarshalJSON records whether the "default" key was present, which is
// what distinguishes a required parameter from an optional one whose
// default happens to be null.
func (p *ParamSpec) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Type = "str"
	if t, ok := raw["type"]; ok {
		if err := json.Unmarshal(t, &p.Type); err != nil {
			return err
		}
	}
	if d, ok := raw["default"]; ok {
		p.HasDefault = true
		if err := json.Unmarshal(d, &p.Default); err != nil {
			return err
		}
	}
	return nil
}

// Step is one API call within a recipe, templated over parameters.
// GraphQL steps use QueryTemplate (free-text grammar); REST steps use
// Method/Path plus the three structured objects (reference grammar).
type Step struct {
	Kind          string         `json:"kind"`
	Name          string         `json:"name"`
	QueryTemplate string         `json:"query_template,omitempty"`
	Method        string         `json:"method,omitempty"`
	Path          string         `json:"path,omitempty"`
	PathParams    map[string]any `json:"path_params,omitempty"`
	QueryParams   map[string]any `json:"query_params,omitempty"`
	Body          map[string]any `json:"body,omitempty"`
}

// Recipe is a reusable, parameterized API-call + SQL pipeline template.
type Recipe struct {
	ToolName string               `json:"tool_name"`
	Params   map[string]ParamSpec `json:"params"`
	Steps    []Step               `json:"steps"`
	SQLSteps []string             `json:"sql_steps"`
}

// TraceStep is one originally executed API call, with concrete values
// rather than templates. Traces are what candidates are validated against.
type TraceStep struct {
	Kind        string         `json:"kind"`
	Name        string         `json:"name"`
	Query       string         `json:"query,omitempty"`
	Method      string         `json:"method,omitempty"`
	Path        string         `json:"path,omitempty"`
	PathParams  map[string]any `json:"path_params,omitempty"`
	QueryParams map[string]any `json:"query_params,omitempty"`
	Body        map[string]any `json:"body,omitempty"`
}

// ValidateToolName checks that name is a usable tool identifier:
// lowercase start, letters/digits/underscores, at most 40 characters.
func ValidateToolName(name string) error {
	if !toolNameRe.MatchString(name) {
		return fmt.Errorf("%w: bad tool name %q", ErrInvalid, name)
	}
	return nil
}

// Clone returns a deep copy. Stored recipes are cloned on every read so
// callers can mutate the result freely.
func (r *Recipe) Clone() *Recipe {
	if r == nil {
		return nil
	}
	out := &Recipe{
		ToolName: r.ToolName,
		SQLSteps: append([]string(nil), r.SQLSteps...),
	}
	if r.Params != nil {
		out.Params = make(map[string]ParamSpec, len(r.Params))
		for k, v := range r.Params {
			v.Default = cloneValue(v.Default)
			out.Params[k] = v
		}
	}
	out.Steps = make([]Step, len(r.Steps))
	for i, s := range r.Steps {
		s.PathParams = cloneMap(s.PathParams)
		s.QueryParams = cloneMap(s.QueryParams)
		s.Body = cloneMap(s.Body)
		out.Steps[i] = s
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// EffectiveParams overlays caller-provided values on top of declared
// defaults. Parameters without a declared default contribute nothing, so a
// missing required value surfaces later as a render failure rather than a
// silent default.
func EffectiveParams(spec map[string]ParamSpec, provided map[string]any) map[string]any {
	out := make(map[string]any, len(spec)+len(provided))
	for name, ps := range spec {
		if ps.HasDefault {
			out[name] = ps.Default
		}
	}
	for name, v := range provided {
		out[name] = v
	}
	return out
}

// MissingRequired returns the names of declared parameters that have no
// default and were not provided, in sorted order.
func MissingRequired(spec map[string]ParamSpec, provided map[string]any) []string {
	var missing []string
	for name, ps := range spec {
		if ps.HasDefault {
			continue
		}
		if _, ok := provided[name]; !ok {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)
	return missing
}
