package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
)

// seedBacklog ingests documents with one chunk each and returns the chunk ids.
func seedBacklog(t *testing.T, store *mockStore, n int) []string {
	t.Helper()
	ctx := context.Background()

	ids := make([]string, n)
	for i := 0; i < n; i++ {
		result, err := store.UpsertDocument(ctx, domain.IngestRecord{
			SourceSystem: "mail", SourceID: fmt.Sprintf("m%d", i), Type: domain.TypeEmail,
			Title: fmt.Sprintf("doc %d", i), Content: fmt.Sprintf("content %d", i),
		})
		require.NoError(t, err)

		chunkID := fmt.Sprintf("chunk-%d", i)
		require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
			{ID: chunkID, DocumentID: result.DocumentID, Text: fmt.Sprintf("content %d", i)},
		}))
		ids[i] = chunkID
	}
	return ids
}

func TestEmbeddingWorker_DrainOnce(t *testing.T) {
	store := newMockStore()
	embedder := newMockEmbedder("nomic-embed-text", 4)
	seedBacklog(t, store, 3)

	worker := NewEmbeddingWorker(store, embedder)

	report, err := worker.DrainOnce(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Processed)
	assert.Zero(t, report.Failed)
	assert.Zero(t, report.Remaining)

	cov, err := store.EmbeddingCoverage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, cov.CoverageRatio)
}

func TestEmbeddingWorker_DrainOnceRespectsLimit(t *testing.T) {
	store := newMockStore()
	embedder := newMockEmbedder("nomic-embed-text", 4)
	seedBacklog(t, store, 5)

	worker := NewEmbeddingWorker(store, embedder)

	report, err := worker.DrainOnce(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Remaining) // capped at the scan limit

	cov, err := store.EmbeddingCoverage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cov.EmbeddedChunks)
}

func TestEmbeddingWorker_EmptyBacklog(t *testing.T) {
	store := newMockStore()
	worker := NewEmbeddingWorker(store, newMockEmbedder("nomic-embed-text", 4))

	report, err := worker.DrainOnce(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	assert.Zero(t, report.Remaining)
}

func TestEmbeddingWorker_NilEmbedder(t *testing.T) {
	worker := NewEmbeddingWorker(newMockStore(), nil)

	_, err := worker.DrainOnce(context.Background(), 10)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbeddingWorker_FailedChunksStayInBacklog(t *testing.T) {
	store := newMockStore()
	embedder := newMockEmbedder("nomic-embed-text", 4)
	embedder.batchErr = errors.New("batch endpoint down")
	embedder.embedErr = errors.New("provider down")
	seedBacklog(t, store, 2)

	worker := NewEmbeddingWorker(store, embedder)

	report, err := worker.DrainOnce(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 2, report.Remaining)

	// The provider recovers; the same chunks embed on the next pass.
	embedder.batchErr = nil
	embedder.embedErr = nil

	report, err = worker.DrainOnce(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Zero(t, report.Remaining)
}

func TestEmbeddingWorker_BatchFailureFallsBackPerChunk(t *testing.T) {
	store := newMockStore()
	embedder := newMockEmbedder("nomic-embed-text", 4)
	embedder.batchErr = errors.New("batch endpoint down")
	seedBacklog(t, store, 3)

	worker := NewEmbeddingWorker(store, embedder)

	// Per-chunk embedding still works, so the pass completes.
	report, err := worker.DrainOnce(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Processed)
	assert.Zero(t, report.Failed)
}

func TestEmbeddingWorker_RunDrainsEverything(t *testing.T) {
	store := newMockStore()
	embedder := newMockEmbedder("nomic-embed-text", 4)
	seedBacklog(t, store, 7)

	worker := NewEmbeddingWorker(store, embedder)

	require.NoError(t, worker.Run(context.Background(), 3))

	cov, err := store.EmbeddingCoverage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, cov.TotalChunks)
	assert.Equal(t, 1.0, cov.CoverageRatio)
}

func TestEmbeddingWorker_RunStopsWhenStalled(t *testing.T) {
	store := newMockStore()
	embedder := newMockEmbedder("nomic-embed-text", 4)
	embedder.batchErr = errors.New("down")
	embedder.embedErr = errors.New("down")
	seedBacklog(t, store, 2)

	worker := NewEmbeddingWorker(store, embedder)

	err := worker.Run(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stalled")
}
