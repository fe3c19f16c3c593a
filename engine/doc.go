// Package engine replays stored recipes against live parameter values.
//
// Execution is two-phase. The API phase iterates recipe steps in order,
// delegating each to an injected [StepExecutor] so the same engine drives
// both GraphQL and REST without knowing transport details. The SQL phase
// runs only if the API phase fully succeeded: each SQL step is rendered
// with the free-text grammar and executed over the named result sets the
// API phase accumulated, overwriting the single last-result slot so later
// steps and the final return see the freshly computed table.
//
// The first failure at either phase aborts the remaining pipeline. Steps
// already executed are not rolled back: there is no distributed-transaction
// guarantee, and partial external side effects persist. Already-executed
// step records are still returned alongside the error so partial progress
// stays visible.
//
// Steps run strictly sequentially; later steps may depend on earlier
// steps' output tables. Cancellation takes effect only between steps.
//
// All per-request mutable state lives in a [State], constructed fresh at
// request start and passed by reference into every step. Nested goroutines
// spawned within one request share the same State and see each other's
// mutations; nothing request-scoped is ambient.
package engine
