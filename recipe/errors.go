package recipe

import "errors"

// Sentinel errors for consistent error handling.
var (
	// ErrMissingParam reports a template reference to a parameter absent
	// from the effective parameter map. Always fatal to the current render;
	// defaults are resolved before rendering, never during it.
	ErrMissingParam = errors.New("missing param")

	// ErrInvalid reports a structural or consistency failure in a candidate
	// recipe. Fatal to that extraction attempt only.
	ErrInvalid = errors.New("invalid recipe")
)
