package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input, such as an
	// ingest record with no resolvable source identity.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBusy indicates the exclusive write lock could not be acquired
	// within the configured timeout. Callers should retry with backoff.
	ErrBusy = errors.New("store busy: write lock timeout")

	// ErrSearchUnavailable indicates the lexical index is not available.
	// Happens when the store is running on the degraded bootstrap schema.
	ErrSearchUnavailable = errors.New("lexical search unavailable")

	// ErrEmbeddingUnavailable indicates no embedding service is configured.
	// Semantic search is disabled without one.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrProviderUnavailable indicates the embedding backend could not be
	// reached. A failed embedding attempt leaves the chunk in the backlog.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
)
