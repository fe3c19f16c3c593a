// Package registry exposes the recipe subsystem as an MCP server.
//
// The tool surface has two layers. A fixed set of tools covers live API
// execution, schema search, recipe suggestion, and replay; on top of that,
// every cached recipe for the request's API and schema version is listed
// as its own tool, named by a slugged, deduplicated form of its tool name,
// with an input schema derived from the recipe's parameter specs. Calling
// a listed recipe tool is a uniform generic replay, not per-recipe code.
//
// Per-target state is never ambient: each request carries its target in
// X-Target-URL / X-API-Type (plus optional auth and safety headers), and
// the stdio transport supplies the same headers from static config.
//
// Example usage:
//
//	reg := registry.New(registry.Config{
//	    ServerInfo: registry.ServerInfo{Name: "recipecache", Version: "1.0.0"},
//	    Store:      store.New(store.Config{}),
//	})
//
//	http.ListenAndServe(":8080", registry.ServeHTTP(reg))
package registry
