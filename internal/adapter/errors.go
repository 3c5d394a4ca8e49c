package adapter

import "errors"

// Normalized link errors.
var (
	ErrInvalidRange = errors.New("INVALID_RANGE")
	ErrUnavailable  = errors.New("UNAVAILABLE")
	ErrInternal     = errors.New("INTERNAL")
)
