package registry

import "errors"

// Sentinel errors for consistent error handling.
var (
	ErrToolNotFound   = errors.New("tool not found")
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrSchemaFetch    = errors.New("schema fetch failed")
	ErrMissingHeader  = errors.New("missing request header")
	ErrInvalidRequest = errors.New("invalid request")
)

// JSON-RPC 2.0 error codes, plus the MCP tool-level extensions.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
	ErrCodeToolNotFound   = -32001
	ErrCodeToolExecFailed = -32002
)
