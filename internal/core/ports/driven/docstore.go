package driven

import (
	"context"
	"time"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
)

// DocumentStore persists documents, chunks and embeddings, and keeps the
// BM25 lexical index in sync with document content. Backed by SQLite.
//
// Mutating operations serialise on an exclusive, timeout-bounded write lock
// inside the store handle and return domain.ErrBusy on contention. Reads
// proceed concurrently with a writer.
type DocumentStore interface {
	// UpsertDocument resolves whether the record is new, unchanged or
	// updated by its (source_system, source_id) identity and content hash,
	// then inserts or updates the row atomically. On a content change the
	// document's stale chunk set is removed in the same transaction.
	UpsertDocument(ctx context.Context, rec domain.IngestRecord) (*domain.UpsertResult, error)

	// GetDocument retrieves a document by id, tombstoned or not.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetBySourceIdentity retrieves the non-deleted document with the given
	// (source_system, source_id) pair.
	GetBySourceIdentity(ctx context.Context, sourceSystem, sourceID string) (*domain.Document, error)

	// LatestForSource returns the most recently touched non-deleted document
	// from a source system. Used as the best-effort owner-resolution repair.
	LatestForSource(ctx context.Context, sourceSystem string) (*domain.Document, error)

	// Tombstone soft-deletes a document, excluding it and its chunks from
	// active search without removing history.
	Tombstone(ctx context.Context, id string) error

	// TombstoneStale tombstones every document of a source system whose
	// last_seen_at predates the cutoff. Returns the number tombstoned.
	TombstoneStale(ctx context.Context, sourceSystem string, cutoff time.Time) (int, error)

	// SearchLexical runs a BM25-family query over title and content of
	// non-deleted documents. Returns domain.ErrSearchUnavailable when the
	// store is running on the degraded bootstrap schema.
	SearchLexical(ctx context.Context, query string, limit int) ([]domain.LexicalHit, error)

	// SaveChunks stores a freshly generated chunk set.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunks retrieves a document's chunks ordered by chunk index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a single chunk by id.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// ListUnembedded returns chunks of non-deleted documents that have no
	// embedding row for the given model, up to limit.
	ListUnembedded(ctx context.Context, model string, limit int) ([]domain.Chunk, error)

	// SaveEmbedding persists a vector for a (chunk, model) pair, replacing
	// any previous vector for the same pair.
	SaveEmbedding(ctx context.Context, chunkID, model string, vector []float32) error

	// SemanticCandidates returns every stored vector for the model that
	// belongs to a non-deleted document, joined with document context.
	SemanticCandidates(ctx context.Context, model string) ([]domain.SemanticCandidate, error)

	// EmbeddingCoverage reports embedding completeness overall and per model.
	EmbeddingCoverage(ctx context.Context) (*domain.EmbeddingCoverage, error)

	// AddRelationship records a typed, directed edge between two documents.
	AddRelationship(ctx context.Context, rel *domain.Relationship) error

	// ListRelated returns outgoing edges from a document, strongest first.
	ListRelated(ctx context.Context, documentID string) ([]domain.Relationship, error)

	// Health reports the store's schema health.
	Health() domain.Health

	// Close releases the underlying database handle.
	Close() error
}
