package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tessera-labs/corpus-cli/internal/chunker"
	"github.com/tessera-labs/corpus-cli/internal/core/domain"
	"github.com/tessera-labs/corpus-cli/internal/core/ports/driven"
	"github.com/tessera-labs/corpus-cli/internal/core/ports/driving"
	"github.com/tessera-labs/corpus-cli/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService pushes normalised records through the upsert engine and
// keeps the chunk sets of changed documents fresh.
type IngestService struct {
	store  driven.DocumentStore
	config driven.ConfigSource

	statsMu sync.Mutex
	stats   domain.IngestStats
}

// NewIngestService creates an ingest service. The config source supplies the
// live chunking policy; it may be nil, in which case the chunker defaults
// apply.
func NewIngestService(store driven.DocumentStore, config driven.ConfigSource) *IngestService {
	return &IngestService{
		store:  store,
		config: config,
	}
}

// UpsertDocument inserts or updates a single document by its source
// identity. When content changed, the chunk set is regenerated from the new
// content; an unchanged document gets a timestamp touch and a check that
// its chunk set actually exists.
func (s *IngestService) UpsertDocument(
	ctx context.Context, rec domain.IngestRecord,
) (*domain.UpsertResult, error) {
	result, err := s.store.UpsertDocument(ctx, rec)
	if err != nil {
		s.count(func(st *domain.IngestStats) { st.Failed++ })
		return nil, fmt.Errorf("upserting document: %w", err)
	}

	if result.Change == domain.ChangeUnchanged {
		// A prior pass may have committed the document row and then failed
		// before its chunks were saved; the retry hashes as unchanged, so
		// the missing chunk set is repaired here.
		if err := s.repairMissingChunks(ctx, result.DocumentID, rec.Content); err != nil {
			s.count(func(st *domain.IngestStats) { st.Failed++ })
			return nil, err
		}
		s.count(func(st *domain.IngestStats) { st.Unchanged++ })
		return result, nil
	}

	// The upsert dropped any stale chunks; regenerate from the new content.
	// The record only counts as ingested once its chunk set is persisted.
	if err := s.rechunk(ctx, result.DocumentID, rec.Content); err != nil {
		s.count(func(st *domain.IngestStats) { st.Failed++ })
		return nil, err
	}

	switch result.Change {
	case domain.ChangeCreated:
		s.count(func(st *domain.IngestStats) { st.Created++ })
	case domain.ChangeUpdated:
		s.count(func(st *domain.IngestStats) { st.Updated++ })
	}

	logger.Debug("Ingested %s/%s: %s", rec.SourceSystem, rec.SourceID, result.Change)
	return result, nil
}

// IngestBatch upserts records one by one. Each record is its own unit of
// work; a failing record is reported in its slot and the batch moves on.
func (s *IngestService) IngestBatch(
	ctx context.Context, recs []domain.IngestRecord,
) ([]domain.BatchItemResult, *domain.IngestStats, error) {
	logger.Section("Batch Ingestion")
	logger.Info("Ingesting %d records", len(recs))

	batch := domain.IngestStats{}
	results := make([]domain.BatchItemResult, len(recs))

	for i, rec := range recs {
		if err := ctx.Err(); err != nil {
			return results, &batch, err
		}

		result, err := s.UpsertDocument(ctx, rec)
		results[i] = domain.BatchItemResult{SourceID: rec.SourceID, Result: result, Err: err}

		switch {
		case err != nil:
			batch.Failed++
			logger.Warn("Record %s/%s failed: %v", rec.SourceSystem, rec.SourceID, err)
		case result.Change == domain.ChangeCreated:
			batch.Created++
		case result.Change == domain.ChangeUpdated:
			batch.Updated++
		default:
			batch.Unchanged++
		}
	}

	logger.Info("Batch done: %d created, %d updated, %d unchanged, %d failed",
		batch.Created, batch.Updated, batch.Unchanged, batch.Failed)

	return results, &batch, nil
}

// ResolveDocumentID resolves a source identity to its owning document id.
// When the expected row is missing, the reference is repaired with the most
// recently touched live document from the same source system and the repair
// is flagged and counted; callers seeing fallbacks have an upstream ordering
// bug to fix.
func (s *IngestService) ResolveDocumentID(
	ctx context.Context, sourceSystem, sourceID string,
) (*domain.ResolvedDocument, error) {
	doc, err := s.store.GetBySourceIdentity(ctx, sourceSystem, sourceID)
	if err == nil {
		return &domain.ResolvedDocument{DocumentID: doc.ID}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("resolving document: %w", err)
	}

	latest, err := s.store.LatestForSource(ctx, sourceSystem)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("resolving fallback document: %w", err)
	}

	logger.Warn("Owner %s/%s missing, falling back to most recent document %s",
		sourceSystem, sourceID, latest.ID)
	s.count(func(st *domain.IngestStats) { st.OwnerFallbacks++ })

	return &domain.ResolvedDocument{DocumentID: latest.ID, Fallback: true}, nil
}

// TombstoneStale tombstones documents of a source system not seen since the
// cutoff. Run it after a complete sync pass, never a partial one.
func (s *IngestService) TombstoneStale(
	ctx context.Context, sourceSystem string, cutoff time.Time,
) (int, error) {
	swept, err := s.store.TombstoneStale(ctx, sourceSystem, cutoff)
	if err != nil {
		return 0, fmt.Errorf("tombstoning stale documents: %w", err)
	}
	if swept > 0 {
		logger.Info("Tombstoned %d stale documents from %s", swept, sourceSystem)
	}
	return swept, nil
}

// Stats returns counters accumulated since the service was created.
func (s *IngestService) Stats() domain.IngestStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// repairMissingChunks regenerates the chunk set of a document that has
// content but no chunks, recovering documents stranded by a chunk-save
// failure on an earlier pass.
func (s *IngestService) repairMissingChunks(ctx context.Context, documentID, content string) error {
	if content == "" {
		return nil
	}

	chunks, err := s.store.GetChunks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("checking chunks: %w", err)
	}
	if len(chunks) > 0 {
		return nil
	}

	logger.Warn("Document %s has content but no chunks, regenerating", documentID)
	return s.rechunk(ctx, documentID, content)
}

// rechunk regenerates and persists the chunk set for new document content.
func (s *IngestService) rechunk(ctx context.Context, documentID, content string) error {
	var opts []chunker.Option
	if s.config != nil {
		params := s.config.Chunking()
		opts = append(opts, chunker.WithChunkSize(params.Size), chunker.WithOverlap(params.Overlap))
	}

	chunks := chunker.New(opts...).Split(documentID, content)
	if len(chunks) == 0 {
		return nil
	}

	if err := s.store.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("saving chunks: %w", err)
	}
	return nil
}

func (s *IngestService) count(apply func(*domain.IngestStats)) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	apply(&s.stats)
}
