package recipe

import (
	"errors"
	"reflect"
	"testing"
)

func TestRenderText(t *testing.T) {
	tests := []struct {
		name     string
		template string
		params   map[string]any
		want     string
		wantErr  bool
	}{
		{
			name:     "string substitution",
			template: `query { city(name: "{{city}}") }`,
			params:   map[string]any{"city": "berlin"},
			want:     `query { city(name: "berlin") }`,
		},
		{
			name:     "numbers render plainly",
			template: "LIMIT {{limit}} OFFSET {{offset}}",
			params:   map[string]any{"limit": 10, "offset": 2.5},
			want:     "LIMIT 10 OFFSET 2.5",
		},
		{
			name:     "bool renders lowercase",
			template: "active = {{flag}} AND hidden = {{other}}",
			params:   map[string]any{"flag": true, "other": false},
			want:     "active = true AND hidden = false",
		},
		{
			name:     "nil renders null",
			template: "x = {{v}}",
			params:   map[string]any{"v": nil},
			want:     "x = null",
		},
		{
			name:     "repeated placeholder",
			template: "{{a}}-{{a}}",
			params:   map[string]any{"a": "x"},
			want:     "x-x",
		},
		{
			name:     "no placeholders",
			template: "SELECT 1",
			params:   nil,
			want:     "SELECT 1",
		},
		{
			name:     "malformed braces left alone",
			template: "{{not closed and {single}",
			params:   nil,
			want:     "{{not closed and {single}",
		},
		{
			name:     "missing param fails",
			template: "x = {{missing}}",
			params:   map[string]any{},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderText(tt.template, tt.params)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				if !errors.Is(err, ErrMissingParam) {
					t.Errorf("want ErrMissingParam, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderTextNilParamDistinctFromMissing(t *testing.T) {
	// A key present with a nil value renders as null; an absent key fails.
	got, err := RenderText("{{v}}", map[string]any{"v": nil})
	if err != nil || got != "null" {
		t.Fatalf("present nil: got %q, %v", got, err)
	}
	if _, err := RenderText("{{v}}", map[string]any{}); err == nil {
		t.Fatal("absent key should fail")
	}
}

func TestRenderRefs(t *testing.T) {
	params := map[string]any{
		"city":  "berlin",
		"limit": 10,
		"tags":  []any{"a", "b"},
	}

	tests := []struct {
		name string
		node any
		want any
	}{
		{
			name: "ref replaced wholesale",
			node: map[string]any{"$param": "limit"},
			want: 10,
		},
		{
			name: "ref to non-scalar value",
			node: map[string]any{"$param": "tags"},
			want: []any{"a", "b"},
		},
		{
			name: "nested refs",
			node: map[string]any{
				"filter": map[string]any{"city": map[string]any{"$param": "city"}},
				"page":   map[string]any{"size": map[string]any{"$param": "limit"}},
			},
			want: map[string]any{
				"filter": map[string]any{"city": "berlin"},
				"page":   map[string]any{"size": 10},
			},
		},
		{
			name: "refs inside arrays",
			node: []any{map[string]any{"$param": "city"}, "literal"},
			want: []any{"berlin", "literal"},
		},
		{
			name: "dollar key with siblings is literal",
			node: map[string]any{"$param": "city", "other": 1},
			want: map[string]any{"$param": "city", "other": 1},
		},
		{
			name: "dollar key with non-string value is literal",
			node: map[string]any{"$param": 42},
			want: map[string]any{"$param": 42},
		},
		{
			name: "scalar passes through",
			node: "plain",
			want: "plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderRefs(tt.node, params)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestRenderRefsMissingParam(t *testing.T) {
	node := map[string]any{"q": map[string]any{"$param": "nope"}}
	if _, err := RenderRefs(node, map[string]any{}); !errors.Is(err, ErrMissingParam) {
		t.Fatalf("want ErrMissingParam, got %v", err)
	}
}

func TestNormalizeSpace(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  a   b\n\tc  ", "a b c"},
		{"already normal", "already normal"},
		{"", ""},
		{"\n\n", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSpace(tt.in); got != tt.want {
			t.Errorf("NormalizeSpace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextRefs(t *testing.T) {
	refs := TextRefs("a {{x}} b {{y}} c {{x}}")
	want := []string{"x", "y", "x"}
	if !reflect.DeepEqual(refs, want) {
		t.Errorf("got %v, want %v", refs, want)
	}
}
