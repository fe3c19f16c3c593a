package schema

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("schema v1"))
	b := Fingerprint([]byte("schema v1"))
	c := Fingerprint([]byte("schema v2"))

	if a != b {
		t.Error("same blob produced different fingerprints")
	}
	if a == c {
		t.Error("different blobs collided")
	}
	if len(a) != 64 {
		t.Errorf("fingerprint %q has length %d", a, len(a))
	}
}

const searchBlob = `type Query {
  hotels(city: String): [Hotel]
  users: [User]
}

type Hotel {
  name: String
  price: Int
}

type User {
  name: String
}`

func TestSearchLines(t *testing.T) {
	t.Run("matches with line numbers", func(t *testing.T) {
		got, err := SearchLines(searchBlob, "hotel", SearchOptions{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if !strings.Contains(got, "2:  hotels(city: String): [Hotel]") {
			t.Errorf("got:\n%s", got)
		}
		// Case-insensitive: "Hotel" type lines match too.
		if !strings.Contains(got, "6:type Hotel {") {
			t.Errorf("got:\n%s", got)
		}
	})

	t.Run("context lines marked with dash", func(t *testing.T) {
		got, err := SearchLines(searchBlob, "price", SearchOptions{Context: 1})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if !strings.Contains(got, "8:  price: Int") {
			t.Errorf("got:\n%s", got)
		}
		if !strings.Contains(got, "7-  name: String") {
			t.Errorf("context line missing:\n%s", got)
		}
	})

	t.Run("separator between discontiguous blocks", func(t *testing.T) {
		got, err := SearchLines(searchBlob, `^type`, SearchOptions{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if !strings.Contains(got, "--") {
			t.Errorf("no block separator:\n%s", got)
		}
	})

	t.Run("offset paginates", func(t *testing.T) {
		all, _ := SearchLines(searchBlob, "name", SearchOptions{})
		page, err := SearchLines(searchBlob, "name", SearchOptions{Offset: 1})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if page == all {
			t.Error("offset had no effect")
		}
		if strings.Contains(page, "7:") {
			t.Errorf("skipped match still present:\n%s", page)
		}
	})

	t.Run("offset past total reports counts", func(t *testing.T) {
		got, err := SearchLines(searchBlob, "price", SearchOptions{Offset: 10})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if !strings.Contains(got, "no matches at offset 10") {
			t.Errorf("got %q", got)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		got, err := SearchLines(searchBlob, "nonexistent_zz", SearchOptions{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if got != "no matches" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("max chars truncates", func(t *testing.T) {
		got, err := SearchLines(searchBlob, "name", SearchOptions{MaxChars: 20})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if !strings.Contains(got, "truncated") {
			t.Errorf("got %q", got)
		}
	})

	t.Run("bad pattern errors", func(t *testing.T) {
		if _, err := SearchLines(searchBlob, "(unclosed", SearchOptions{}); err == nil {
			t.Error("bad regex accepted")
		}
	})

	t.Run("empty schema errors", func(t *testing.T) {
		if _, err := SearchLines("  ", "x", SearchOptions{}); err == nil {
			t.Error("empty blob accepted")
		}
	})
}

const introspectionJSON = `{
  "data": {
    "__schema": {
      "queryType": {"name": "Query"},
      "mutationType": null,
      "types": [
        {
          "kind": "OBJECT",
          "name": "Query",
          "fields": [
            {
              "name": "hotels",
              "args": [{"name": "city", "type": {"kind": "SCALAR", "name": "String"}}],
              "type": {"kind": "LIST", "ofType": {"kind": "OBJECT", "name": "Hotel"}}
            }
          ]
        },
        {
          "kind": "OBJECT",
          "name": "Hotel",
          "fields": [
            {"name": "name", "args": [], "type": {"kind": "NON_NULL", "ofType": {"kind": "SCALAR", "name": "String"}}}
          ]
        },
        {"kind": "OBJECT", "name": "__Schema", "fields": []},
        {"kind": "SCALAR", "name": "String"}
      ]
    }
  }
}`

func TestFetchGraphQL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(introspectionJSON))
	}))
	defer server.Close()

	sc, err := FetchGraphQL(context.Background(), server.Client(), server.URL, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(sc.Raw) == 0 {
		t.Error("raw blob empty")
	}
	if !strings.Contains(sc.Compact, "query root: Query") {
		t.Errorf("compact:\n%s", sc.Compact)
	}
	if !strings.Contains(sc.Compact, "hotels(city: String): [Hotel]") {
		t.Errorf("compact:\n%s", sc.Compact)
	}
	if !strings.Contains(sc.Compact, "name: String!") {
		t.Errorf("non-null not rendered:\n%s", sc.Compact)
	}
	if strings.Contains(sc.Compact, "__Schema") {
		t.Errorf("introspection type leaked:\n%s", sc.Compact)
	}
}

func TestFetchGraphQLErrors(t *testing.T) {
	t.Run("graphql errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"errors": [{"message": "introspection disabled"}]}`))
		}))
		defer server.Close()
		if _, err := FetchGraphQL(context.Background(), server.Client(), server.URL, nil); err == nil {
			t.Error("error response accepted")
		}
	})

	t.Run("no types", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data": {"__schema": {"types": []}}}`))
		}))
		defer server.Close()
		if _, err := FetchGraphQL(context.Background(), server.Client(), server.URL, nil); err == nil {
			t.Error("empty schema accepted")
		}
	})
}

const openAPIJSON = `{
  "openapi": "3.0.0",
  "info": {"title": "Test API", "version": "1.0.0"},
  "servers": [{"url": "https://api.example.com/v2"}],
  "paths": {
    "/users": {
      "get": {
        "operationId": "listUsers",
        "summary": "List users",
        "parameters": [
          {"name": "limit", "in": "query", "schema": {"type": "integer"}}
        ]
      }
    },
    "/users/{id}": {
      "get": {
        "operationId": "getUser",
        "summary": "Get one user",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}
        ]
      }
    }
  }
}`

func TestFetchOpenAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(openAPIJSON))
	}))
	defer server.Close()

	sc, err := FetchOpenAPI(context.Background(), server.Client(), server.URL, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if sc.BaseURL != "https://api.example.com/v2" {
		t.Errorf("base url %q", sc.BaseURL)
	}
	if !strings.Contains(sc.Compact, "GET /users (listUsers): List users") {
		t.Errorf("compact:\n%s", sc.Compact)
	}
	if !strings.Contains(sc.Compact, "GET /users/{id} (getUser)") {
		t.Errorf("compact:\n%s", sc.Compact)
	}
	if !strings.Contains(sc.Compact, "limit") {
		t.Errorf("query param missing:\n%s", sc.Compact)
	}
}

func TestFetchOpenAPIBaseURLFallback(t *testing.T) {
	noServers := strings.Replace(openAPIJSON,
		`"servers": [{"url": "https://api.example.com/v2"}],`, "", 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(noServers))
	}))
	defer server.Close()

	sc, err := FetchOpenAPI(context.Background(), server.Client(), server.URL, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.HasPrefix(sc.BaseURL, "http://127.0.0.1") {
		t.Errorf("base url %q, want spec origin", sc.BaseURL)
	}
}

func TestSearcher(t *testing.T) {
	compact := `type Hotel {
  name: String
  price: Int
}

type Booking {
  hotel: Hotel
  nights: Int
}

type User {
  email: String
}`
	fp := Fingerprint([]byte(compact))
	s := NewSearcher()

	sections, err := s.Search(compact, fp, "hotel price", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(sections) == 0 {
		t.Fatal("no sections returned")
	}
	if !strings.Contains(sections[0].Text, "Hotel") {
		t.Errorf("top section:\n%s", sections[0].Text)
	}
	if sections[0].Score <= 0 {
		t.Errorf("score %v", sections[0].Score)
	}

	// Same fingerprint reuses the index; a changed schema rebuilds it.
	if _, err := s.Search(compact, fp, "email", 1); err != nil {
		t.Fatalf("repeat search: %v", err)
	}
	changed := compact + "\n\ntype Review {\n  stars: Int\n}"
	got, err := s.Search(changed, Fingerprint([]byte(changed)), "review stars", 1)
	if err != nil {
		t.Fatalf("search after drift: %v", err)
	}
	if len(got) == 0 || !strings.Contains(got[0].Text, "Review") {
		t.Errorf("drifted schema not reindexed: %+v", got)
	}
}

func TestSearcherZeroLimit(t *testing.T) {
	s := NewSearcher()
	got, err := s.Search("type A {}", "fp", "a", 0)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}
