package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonwraymond/recipecache/apicall"
	"github.com/jonwraymond/recipecache/recipe"
)

func TestGraphQLStepExecutor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"cities": [{"name": "berlin"}, {"name": "paris"}]}}`))
	}))
	defer server.Close()

	exec := NewGraphQLStepExecutor(apicall.NewClient(), GraphQLTarget{Endpoint: server.URL})
	state := NewState()

	step := recipe.Step{
		Kind:          recipe.KindGraphQL,
		Name:          "cities",
		QueryTemplate: `query { cities(limit: {{limit}}) { name } }`,
	}
	outcome := exec(context.Background(), 0, step, map[string]any{"limit": 2}, state)

	if !outcome.OK {
		t.Fatalf("step failed: %s", outcome.Err)
	}
	if outcome.Record != `query { cities(limit: 2) { name } }` {
		t.Errorf("record %v", outcome.Record)
	}
	rows := state.Table("cities")
	if len(rows) != 2 || rows[0]["name"] != "berlin" {
		t.Errorf("table rows %v", rows)
	}
}

func TestGraphQLStepExecutorRejectsBadStep(t *testing.T) {
	exec := NewGraphQLStepExecutor(apicall.NewClient(), GraphQLTarget{Endpoint: "http://unused"})

	outcome := exec(context.Background(), 0, recipe.Step{Kind: recipe.KindREST, Path: "/x"}, nil, NewState())
	if outcome.OK {
		t.Fatal("rest step accepted by graphql executor")
	}

	outcome = exec(context.Background(), 0, recipe.Step{Kind: recipe.KindGraphQL}, nil, NewState())
	if outcome.OK {
		t.Fatal("step without query template accepted")
	}
}

func TestGraphQLStepExecutorMissingParam(t *testing.T) {
	exec := NewGraphQLStepExecutor(apicall.NewClient(), GraphQLTarget{Endpoint: "http://unused"})
	step := recipe.Step{Kind: recipe.KindGraphQL, Name: "q", QueryTemplate: "query {{absent}}"}

	outcome := exec(context.Background(), 0, step, map[string]any{}, NewState())
	if outcome.OK {
		t.Fatal("missing param did not fail the step")
	}
}

func TestRESTStepExecutor(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"items": [{"id": "a"}], "total": 1}`))
	}))
	defer server.Close()

	exec := NewRESTStepExecutor(apicall.NewClient(), RESTTarget{BaseURL: server.URL})
	state := NewState()

	step := recipe.Step{
		Kind:        recipe.KindREST,
		Name:        "orders",
		Method:      "get",
		Path:        "/users/{uid}/orders",
		PathParams:  map[string]any{"uid": map[string]any{"$param": "uid"}},
		QueryParams: map[string]any{"limit": map[string]any{"$param": "limit"}},
	}
	outcome := exec(context.Background(), 0, step, map[string]any{"uid": "u7", "limit": 3}, state)

	if !outcome.OK {
		t.Fatalf("step failed: %s", outcome.Err)
	}
	if gotPath != "/users/u7/orders" {
		t.Errorf("path %q", gotPath)
	}

	// Object responses contribute one table per list-valued field, keyed
	// by field name rather than step name.
	rows := state.Table("items")
	if len(rows) != 1 || rows[0]["id"] != "a" {
		t.Errorf("table rows %v", rows)
	}

	record, ok := outcome.Record.(RESTCallRecord)
	if !ok {
		t.Fatalf("record %T", outcome.Record)
	}
	if record.Method != "GET" || record.Path != "/users/{uid}/orders" || !record.Success {
		t.Errorf("record %+v", record)
	}
	if record.PathParams == "" || record.QueryParams == "" {
		t.Errorf("rendered params missing from record: %+v", record)
	}
}

func TestRESTStepExecutorFailurePropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	exec := NewRESTStepExecutor(apicall.NewClient(), RESTTarget{BaseURL: server.URL})
	step := recipe.Step{Kind: recipe.KindREST, Name: "x", Path: "/x"}

	outcome := exec(context.Background(), 0, step, map[string]any{}, NewState())
	if outcome.OK {
		t.Fatal("HTTP 403 step reported OK")
	}
}
