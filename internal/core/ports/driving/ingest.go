package driving

import (
	"context"
	"time"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
)

// IngestService is the document-ingestion interface consumed by source
// adapters. Repeated ingestion of the same logical item is idempotent.
type IngestService interface {
	// UpsertDocument inserts or updates a single document by its source
	// identity, chunking its content when it changed. Records without a
	// resolvable identity are rejected with domain.ErrInvalidInput.
	UpsertDocument(ctx context.Context, rec domain.IngestRecord) (*domain.UpsertResult, error)

	// IngestBatch upserts a batch of records. Each record is its own unit
	// of work; one slow or failing record never blocks or rolls back the
	// others. The per-record outcomes and aggregate counters are returned
	// together with a nil error unless the batch could not run at all.
	IngestBatch(ctx context.Context, recs []domain.IngestRecord) ([]domain.BatchItemResult, *domain.IngestStats, error)

	// ResolveDocumentID resolves a source identity to its owning document id
	// for dependent records. When the expected row is missing it falls back
	// to the most recently touched document from the same source system and
	// flags the repair so callers can detect the upstream ordering bug.
	ResolveDocumentID(ctx context.Context, sourceSystem, sourceID string) (*domain.ResolvedDocument, error)

	// TombstoneStale tombstones documents of a source system not seen since
	// the cutoff. Used after a full sync pass to drop vanished items.
	TombstoneStale(ctx context.Context, sourceSystem string, cutoff time.Time) (int, error)

	// Stats returns counters accumulated since the service was created.
	Stats() domain.IngestStats
}
