package recipe

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	placeholderRe = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\}\}`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// NormalizeSpace collapses consecutive whitespace to single spaces and
// trims the result. Equivalence checks compare normalized text so harmless
// formatting differences do not fail validation.
func NormalizeSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// RenderText substitutes {{name}} placeholders in a free-text template
// using raw string insertion; the template carries its own quoting.
// Booleans render as true/false, nil as null, everything else in its plain
// string form. Returns [ErrMissingParam] if a referenced name is absent.
func RenderText(template string, params map[string]any) (string, error) {
	var missing string
	out := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		name := m[2 : len(m)-2]
		v, ok := params[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return m
		}
		return valueText(v)
	})
	if missing != "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, missing)
	}
	return out, nil
}

// TextRefs returns the parameter names referenced by {{name}} placeholders
// in a free-text template.
func TextRefs(template string) []string {
	matches := placeholderRe.FindAllStringSubmatch(template, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

func valueText(v any) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "true"
		}
		return "false"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// RenderRefs recursively walks a tree of maps, slices, and scalars,
// replacing every {"$param": "name"} node wholesale with the named
// parameter value. All other maps and slices are walked with substitution
// applied to their children; scalars pass through unchanged. Returns
// [ErrMissingParam] if a referenced name is absent.
func RenderRefs(node any, params map[string]any) (any, error) {
	switch t := node.(type) {
	case map[string]any:
		if name, ok := paramRef(t); ok {
			v, present := params[name]
			if !present {
				return nil, fmt.Errorf("%w: %s", ErrMissingParam, name)
			}
			return v, nil
		}
		out := make(map[string]any, len(t))
		for k, v := range t {
			rendered, err := RenderRefs(v, params)
			if err != nil {
				return nil, err
			}
			out[k] = rendered
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			rendered, err := RenderRefs(v, params)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil
	default:
		return node, nil
	}
}

// RefNames collects every {"$param": "name"} reference in a structured
// value into found.
func RefNames(node any, found map[string]struct{}) {
	switch t := node.(type) {
	case map[string]any:
		if name, ok := paramRef(t); ok {
			found[name] = struct{}{}
			return
		}
		for _, v := range t {
			RefNames(v, found)
		}
	case []any:
		for _, v := range t {
			RefNames(v, found)
		}
	}
}

// paramRef reports whether m is exactly {"$param": <string>}. A $param key
// alongside other keys, or with a non-string value, is literal data.
func paramRef(m map[string]any) (string, bool) {
	if len(m) != 1 {
		return "", false
	}
	v, ok := m["$param"]
	if !ok {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}
