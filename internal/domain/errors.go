package domain

import "errors"

var (
	// ErrInvalidQuery signals unusable caller input: no query modality,
	// or an out-of-range weight, threshold, radius or limit.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrQuery signals that the store could not evaluate a requested
	// predicate (for example a missing geo index). Not retried.
	ErrQuery = errors.New("query failed")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrAlertNotFound signals a missing alert.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrVectorDimMismatch signals a stored embedding whose length does
	// not match the query embedding.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
