// Package tabular runs SQL over named in-memory result sets and converts
// row sets to CSV.
//
// Each Run loads the named tables into a fresh in-memory SQLite database
// and executes one query against them. Scalar cells map to native SQLite
// types; nested objects and arrays are stored as JSON text so queries can
// reach into them with SQLite's json_extract and json_each. The exact SQL
// dialect is the engine's concern, not the caller's.
//
// ExtractTables turns an arbitrary API response into named row sets so
// every step's output is queryable under the step's output name.
package tabular
