package model

import "errors"

var (
	// ErrStoreUnavailable wraps knowledge-store connection and query failures
	ErrStoreUnavailable = errors.New("knowledge store unavailable")

	// ErrModelUnavailable wraps encoder, classifier and NLI server failures
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrDimensionMismatch means encoder output and stored vectors disagree
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNotFound is returned by admin operations on unknown claim IDs
	ErrNotFound = errors.New("claim not found")
)
