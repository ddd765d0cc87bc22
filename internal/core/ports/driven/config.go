package driven

// RetrievalParams are the score-fusion tunables. The two weights are
// expected to sum to 1.0; this is documented usage, not enforced.
// The numeric defaults are a starting point, not an optimum - treat them
// as configuration.
type RetrievalParams struct {
	// BM25Weight scales the normalised lexical score.
	BM25Weight float64

	// EmbeddingWeight scales the semantic score.
	EmbeddingWeight float64

	// RelevanceFloor drops semantic matches below this cosine similarity.
	// Low-similarity matches are noise in a personal corpus, so the default
	// bar is high.
	RelevanceFloor float64
}

// ChunkingParams control the fixed-size overlapping chunk policy.
type ChunkingParams struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int
}

// ConfigSource supplies live tunables to core services. Implementations may
// reload from disk, so callers fetch per operation rather than caching.
type ConfigSource interface {
	// Retrieval returns the current score-fusion parameters.
	Retrieval() RetrievalParams

	// Chunking returns the current chunking policy.
	Chunking() ChunkingParams
}
