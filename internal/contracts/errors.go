package contracts

import "errors"

// Pipeline error kinds. Callers branch on these instead of inspecting
// messages: invalid input is a caller bug, insufficient data is a
// legitimate business outcome, upstream unavailable means the data
// provider failed and nothing can be concluded about the symbol.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInsufficientData = errors.New("insufficient data")
	ErrUpstream         = errors.New("upstream unavailable")
)
