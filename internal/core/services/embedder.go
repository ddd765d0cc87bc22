package services

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
	"github.com/tessera-labs/corpus-cli/internal/core/ports/driven"
	"github.com/tessera-labs/corpus-cli/internal/core/ports/driving"
	"github.com/tessera-labs/corpus-cli/internal/logger"
)

// Ensure EmbeddingWorker implements the interface.
var _ driving.EmbeddingWorker = (*EmbeddingWorker)(nil)

// DefaultBatchSize is the backlog scan size for one draining pass.
const DefaultBatchSize = 32

// EmbeddingWorker drains the embedding backlog: chunks of live documents
// that have no vector yet for the worker's model. Ingestion never waits for
// it; lexical search works from the moment a document lands, and semantic
// coverage catches up at whatever rate the provider sustains.
type EmbeddingWorker struct {
	store    driven.DocumentStore
	embedder driven.EmbeddingService
	limiter  *rate.Limiter
}

// WorkerOption configures the worker.
type WorkerOption func(*EmbeddingWorker)

// WithRateLimit caps embedding requests per second. Zero or negative
// disables the cap.
func WithRateLimit(perSecond float64) WorkerOption {
	return func(w *EmbeddingWorker) {
		if perSecond > 0 {
			w.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// NewEmbeddingWorker creates a backlog-draining worker for the embedder's
// model.
func NewEmbeddingWorker(
	store driven.DocumentStore, embedder driven.EmbeddingService, opts ...WorkerOption,
) *EmbeddingWorker {
	w := &EmbeddingWorker{
		store:    store,
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Inf, 1),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// DrainOnce embeds up to limit backlog chunks and persists the vectors.
// Provider calls happen outside the store's write lock; a chunk whose
// embedding attempt fails stays in the backlog for a later pass.
func (w *EmbeddingWorker) DrainOnce(ctx context.Context, limit int) (*driving.BacklogReport, error) {
	if w.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if limit <= 0 {
		limit = DefaultBatchSize
	}

	model := w.embedder.ModelName()
	chunks, err := w.store.ListUnembedded(ctx, model, limit)
	if err != nil {
		return nil, fmt.Errorf("listing backlog: %w", err)
	}
	if len(chunks) == 0 {
		return &driving.BacklogReport{}, nil
	}

	logger.Debug("Draining %d backlog chunks for model %s", len(chunks), model)

	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	report := &driving.BacklogReport{}

	vectors, err := w.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vectors) != len(chunks) {
		// Batch failed as a whole; retry chunk by chunk so one poisonous
		// text cannot starve the rest of the batch.
		if err != nil {
			logger.Warn("Batch embedding failed, retrying per chunk: %v", err)
		}
		w.drainSingly(ctx, chunks, report)
	} else {
		for i, chunk := range chunks {
			if err := w.store.SaveEmbedding(ctx, chunk.ID, model, vectors[i]); err != nil {
				logger.Warn("Saving embedding for chunk %s failed: %v", chunk.ID, err)
				report.Failed++
				continue
			}
			report.Processed++
		}
	}

	remaining, err := w.store.ListUnembedded(ctx, model, limit)
	if err != nil {
		return nil, fmt.Errorf("measuring backlog: %w", err)
	}
	report.Remaining = len(remaining)

	logger.Info("Backlog pass: %d embedded, %d failed, %d remaining",
		report.Processed, report.Failed, report.Remaining)
	return report, nil
}

// drainSingly embeds chunks one at a time, recording per-chunk outcomes.
func (w *EmbeddingWorker) drainSingly(
	ctx context.Context, chunks []domain.Chunk, report *driving.BacklogReport,
) {
	model := w.embedder.ModelName()
	for _, chunk := range chunks {
		if err := w.limiter.Wait(ctx); err != nil {
			report.Failed++
			continue
		}

		vector, err := w.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			logger.Warn("Embedding chunk %s failed: %v", chunk.ID, err)
			report.Failed++
			continue
		}

		if err := w.store.SaveEmbedding(ctx, chunk.ID, model, vector); err != nil {
			logger.Warn("Saving embedding for chunk %s failed: %v", chunk.ID, err)
			report.Failed++
			continue
		}
		report.Processed++
	}
}

// Run drains continuously until the backlog is empty, a pass makes no
// progress, or the context is cancelled.
func (w *EmbeddingWorker) Run(ctx context.Context, batchSize int) error {
	for {
		report, err := w.DrainOnce(ctx, batchSize)
		if err != nil {
			return err
		}
		if report.Remaining == 0 {
			return nil
		}
		if report.Processed == 0 {
			// Every chunk in the pass failed; looping again would spin.
			return fmt.Errorf("embedding backlog stalled with %d chunks remaining", report.Remaining)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
