package sqlite

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
)

// ingestWithChunks upserts a document and saves one chunk per text fragment,
// returning the document id and chunk ids.
func ingestWithChunks(t *testing.T, store *Store, sourceID string, fragments ...string) (string, []string) {
	t.Helper()
	ctx := context.Background()

	content := ""
	for _, f := range fragments {
		content += f + " "
	}
	result, err := store.UpsertDocument(ctx, testRecord(sourceID, "doc "+sourceID, content))
	require.NoError(t, err)

	chunks := make([]domain.Chunk, len(fragments))
	chunkIDs := make([]string, len(fragments))
	for i, f := range fragments {
		id := uuid.New().String()
		chunks[i] = domain.Chunk{
			ID:         id,
			DocumentID: result.DocumentID,
			Text:       f,
			ChunkIndex: i,
		}
		chunkIDs[i] = id
	}
	require.NoError(t, store.SaveChunks(ctx, chunks))

	return result.DocumentID, chunkIDs
}

// ==================== Chunk Tests ====================

func TestSaveAndGetChunks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docID, chunkIDs := ingestWithChunks(t, store, "m1", "first piece", "second piece")

	chunks, err := store.GetChunks(ctx, docID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "first piece", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, "second piece", chunks[1].Text)

	chunk, err := store.GetChunk(ctx, chunkIDs[0])
	require.NoError(t, err)
	assert.Equal(t, docID, chunk.DocumentID)

	_, err = store.GetChunk(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListUnembedded_Backlog(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	_, chunkIDs := ingestWithChunks(t, store, "m1", "alpha", "beta", "gamma")

	backlog, err := store.ListUnembedded(ctx, "nomic-embed-text", 10)
	require.NoError(t, err)
	assert.Len(t, backlog, 3)

	// Embedding one chunk shrinks the backlog for that model only.
	require.NoError(t, store.SaveEmbedding(ctx, chunkIDs[0], "nomic-embed-text", []float32{1, 2, 3}))

	backlog, err = store.ListUnembedded(ctx, "nomic-embed-text", 10)
	require.NoError(t, err)
	assert.Len(t, backlog, 2)

	backlog, err = store.ListUnembedded(ctx, "text-embedding-3-small", 10)
	require.NoError(t, err)
	assert.Len(t, backlog, 3)

	// The limit caps the batch.
	backlog, err = store.ListUnembedded(ctx, "text-embedding-3-small", 2)
	require.NoError(t, err)
	assert.Len(t, backlog, 2)
}

func TestListUnembedded_SkipsTombstonedDocuments(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docID, _ := ingestWithChunks(t, store, "m1", "soon gone")

	require.NoError(t, store.Tombstone(ctx, docID))

	backlog, err := store.ListUnembedded(ctx, "nomic-embed-text", 10)
	require.NoError(t, err)
	assert.Empty(t, backlog)
}

// ==================== Embedding Tests ====================

func TestSaveEmbedding_OnePerChunkAndModel(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	_, chunkIDs := ingestWithChunks(t, store, "m1", "vectorise me")

	require.NoError(t, store.SaveEmbedding(ctx, chunkIDs[0], "nomic-embed-text", []float32{0.1, 0.2}))

	// A retry replaces rather than duplicates.
	require.NoError(t, store.SaveEmbedding(ctx, chunkIDs[0], "nomic-embed-text", []float32{0.3, 0.4}))

	// A second model coexists on the same chunk.
	require.NoError(t, store.SaveEmbedding(ctx, chunkIDs[0], "text-embedding-3-small", []float32{0.5}))

	cands, err := store.SemanticCandidates(ctx, "nomic-embed-text")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, []float32{0.3, 0.4}, cands[0].Vector)

	cands, err = store.SemanticCandidates(ctx, "text-embedding-3-small")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, []float32{0.5}, cands[0].Vector)
}

func TestSaveEmbedding_Validation(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	assert.ErrorIs(t, store.SaveEmbedding(ctx, "", "m", []float32{1}), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SaveEmbedding(ctx, "c", "", []float32{1}), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SaveEmbedding(ctx, "c", "m", nil), domain.ErrInvalidInput)
}

func TestSemanticCandidates_ExcludesTombstones(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	docID, chunkIDs := ingestWithChunks(t, store, "m1", "ephemeral")
	require.NoError(t, store.SaveEmbedding(ctx, chunkIDs[0], "nomic-embed-text", []float32{1}))

	require.NoError(t, store.Tombstone(ctx, docID))

	cands, err := store.SemanticCandidates(ctx, "nomic-embed-text")
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestEmbeddingsCascadeWhenChunksDropped(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	_, chunkIDs := ingestWithChunks(t, store, "m1", "old body")
	require.NoError(t, store.SaveEmbedding(ctx, chunkIDs[0], "nomic-embed-text", []float32{1, 2}))

	// A content change drops the chunk set; the embedding rows must go with
	// it, not linger as orphans.
	result, err := store.UpsertDocument(ctx, testRecord("m1", "doc m1", "new body"))
	require.NoError(t, err)
	require.Equal(t, domain.ChangeUpdated, result.Change)

	var orphans int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM embeddings").Scan(&orphans))
	assert.Zero(t, orphans)
}

// ==================== Coverage Tests ====================

func TestEmbeddingCoverage(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	// Empty corpus counts as fully covered.
	cov, err := store.EmbeddingCoverage(ctx)
	require.NoError(t, err)
	assert.Zero(t, cov.TotalChunks)
	assert.Equal(t, 1.0, cov.CoverageRatio)

	_, chunkIDs := ingestWithChunks(t, store, "m1", "one", "two", "three", "four")

	cov, err = store.EmbeddingCoverage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, cov.TotalChunks)
	assert.Zero(t, cov.EmbeddedChunks)
	assert.Zero(t, cov.CoverageRatio)

	require.NoError(t, store.SaveEmbedding(ctx, chunkIDs[0], "nomic-embed-text", []float32{1}))
	require.NoError(t, store.SaveEmbedding(ctx, chunkIDs[1], "nomic-embed-text", []float32{1}))
	require.NoError(t, store.SaveEmbedding(ctx, chunkIDs[0], "text-embedding-3-small", []float32{1}))

	cov, err = store.EmbeddingCoverage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, cov.TotalChunks)
	assert.Equal(t, 2, cov.EmbeddedChunks)
	assert.InDelta(t, 0.5, cov.CoverageRatio, 1e-9)

	require.Contains(t, cov.ByModel, "nomic-embed-text")
	assert.Equal(t, 2, cov.ByModel["nomic-embed-text"].EmbeddedChunks)
	assert.InDelta(t, 0.5, cov.ByModel["nomic-embed-text"].CoverageRatio, 1e-9)

	require.Contains(t, cov.ByModel, "text-embedding-3-small")
	assert.InDelta(t, 0.25, cov.ByModel["text-embedding-3-small"].CoverageRatio, 1e-9)
}

// ==================== Blob Round-trip Tests ====================

func TestFloat32BlobRoundTrip(t *testing.T) {
	vec := []float32{0, 1, -1, 0.5, 3.14159, -2.71828}
	assert.Equal(t, vec, bytesToFloat32Slice(float32SliceToBytes(vec)))

	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
