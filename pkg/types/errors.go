package types

import "errors"

// Domain errors for entity validation
var (
	ErrEmptyText        = errors.New("chunk text cannot be empty")
	ErrEmptyID          = errors.New("chunk id cannot be empty")
	ErrMissingEntityID  = errors.New("entity id is required")
	ErrNegativePrice    = errors.New("price must be non-negative")
	ErrInvalidSpecValue = errors.New("invalid specification value")
	ErrEmptyQueryText   = errors.New("query text cannot be empty")
)
