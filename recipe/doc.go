// Package recipe defines the recipe data model and the template machinery
// that makes recipes trustworthy: rendering, normalization, and validation.
//
// A recipe is a parameterized template for re-running a previously
// successful multi-step API + SQL pipeline. It carries ordered API steps
// (GraphQL queries or REST calls), ordered SQL steps run over the result
// tables the API steps produce, and a parameter specification with types
// and defaults.
//
// # Substitution Grammars
//
// Two independent grammars substitute parameter values into templates:
//
//   - Free text: {{name}} placeholders inside GraphQL query templates and
//     SQL step strings, replaced by a type-aware string form
//     (see [RenderText]).
//   - Structured references: a map consisting of exactly one "$param" key
//     with a string value is replaced wholesale by the named parameter
//     value, anywhere inside path_params, query_params, or body
//     (see [RenderRefs]).
//
// Both grammars have an exact inverse contract: rendering a validated
// recipe's templates with its declared defaults reproduces the original
// execution, modulo whitespace normalization for text and
// empty-container normalization for structured values.
//
// # Validation
//
// Candidate recipes come from an untrusted generative process and are
// never stored as-is. [CheckParamUsage] enforces that declared and
// referenced parameter sets agree (pruning harmless orphan declarations),
// and [ValidateEquivalence] proves the candidate re-renders to the
// original execution trace byte-for-whitespace. A single mismatch rejects
// the whole candidate.
package recipe
