// Package store provides the process-wide, bounded recipe cache.
//
// Recipes are indexed under their (api_id, schema_hash) pair and are
// retrievable only under that exact pair: schema drift fails closed rather
// than serving stale templates. Retrieval by natural-language question uses
// the similarity scoring in package match.
//
// # Bounds and Eviction
//
// The store never exceeds its configured capacity (default 64). Eviction
// is strict LRU: Save and Get touch recency, Suggest and List do not.
//
// # Thread Safety
//
// A single store-wide mutex serializes every operation that touches the
// record table or LRU ordering. The lock is held only for in-memory
// bookkeeping, never across a network call, and reads copy data out so
// callers may mutate results freely.
package store
