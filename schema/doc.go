// Package schema fetches target API schemas and makes them searchable.
//
// Two fetchers cover the two supported API kinds: FetchOpenAPI loads an
// OpenAPI 3.x document and produces a compact textual summary, the
// resolved base URL, and the raw machine-readable blob; FetchGraphQL runs
// the standard introspection query and produces a compact type summary
// plus the raw introspection JSON. Both return an empty raw blob on
// failure rather than erroring into the core.
//
// The raw blob is the unit of identity: Fingerprint hashes it, and recipes
// are retrievable only under the exact fingerprint they were extracted
// against, so schema drift invalidates matching instead of serving stale
// templates.
//
// SearchLines gives grep-like access to the raw blob; Searcher ranks
// compact-schema sections by keyword relevance, caching its index by
// fingerprint and rebuilding only when the schema changes.
package schema
