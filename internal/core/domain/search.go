package domain

// SearchOptions configures a retrieval query.
type SearchOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// Types filters results to specific document types. Empty means all.
	Types []DocumentType
}

// SearchResult is a single ranked, deduplicated hit. It carries all three
// scores so callers can audit why a result ranked where it did.
type SearchResult struct {
	// DocumentID is the matched document.
	DocumentID string

	// Type is the document's coarse category.
	Type DocumentType

	// Title is the document title.
	Title string

	// Snippet is a short excerpt around the best-matching span, with match
	// markers for lexical hits.
	Snippet string

	// LexicalScore is the BM25-family score normalised to [0,1].
	// Zero when the document did not appear in the lexical candidate set.
	LexicalScore float64

	// SemanticScore is the best cosine similarity across the document's
	// chunks. Zero when no chunk embedding matched.
	SemanticScore float64

	// CombinedScore is the weighted fusion of the two signals.
	CombinedScore float64
}

// SearchResponse is the full answer to a retrieval query.
type SearchResponse struct {
	// Results is the ranked, deduplicated hit list.
	Results []SearchResult

	// SemanticDegraded is true when semantic search was unavailable for this
	// query (embedding provider down, no model configured) and the results
	// are lexical-only. It distinguishes "no semantic matches" from
	// "semantic search did not run".
	SemanticDegraded bool

	// DegradedReason explains the degradation when SemanticDegraded is set.
	DegradedReason string
}

// LexicalHit is a raw hit from the store's BM25 index, before fusion.
type LexicalHit struct {
	// DocumentID is the matched document.
	DocumentID string

	// Type is the document's coarse category.
	Type DocumentType

	// Title is the document title.
	Title string

	// Snippet is the index-generated excerpt with match markers.
	Snippet string

	// Score is the raw BM25-family score (higher is better).
	Score float64
}

// SemanticCandidate is a stored chunk vector joined with enough document
// context to rank and filter without further lookups.
type SemanticCandidate struct {
	// ChunkID is the owning chunk.
	ChunkID string

	// DocumentID is the chunk's document.
	DocumentID string

	// Type is the document's coarse category.
	Type DocumentType

	// Title is the document title.
	Title string

	// Vector is the stored embedding.
	Vector []float32
}

// ModelCoverage is per-model embedding completeness.
type ModelCoverage struct {
	// EmbeddedChunks counts chunks with a vector for this model.
	EmbeddedChunks int

	// CoverageRatio is EmbeddedChunks over the total live chunk count.
	CoverageRatio float64
}

// EmbeddingCoverage is the operational signal for whether semantic search
// is fully available yet.
type EmbeddingCoverage struct {
	// TotalChunks counts chunks belonging to non-deleted documents.
	TotalChunks int

	// EmbeddedChunks counts chunks with at least one embedding.
	EmbeddedChunks int

	// CoverageRatio is EmbeddedChunks over TotalChunks (1.0 when no chunks).
	CoverageRatio float64

	// ByModel breaks coverage down per embedding model.
	ByModel map[string]ModelCoverage
}
