package types

import "errors"

var (
	// ErrMalformedInput is returned when the query is empty after normalization.
	ErrMalformedInput = errors.New("malformed input")
	// ErrEmbedding wraps failures of the embedding service or index construction.
	ErrEmbedding = errors.New("embedding error")
	// ErrGeneration wraps failures of the text-generation service.
	ErrGeneration = errors.New("generation error")
)
