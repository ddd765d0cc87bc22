package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
	"github.com/tessera-labs/corpus-cli/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockStore is an in-memory driven.DocumentStore for service tests.
type mockStore struct {
	mu         sync.Mutex
	docs       map[string]*domain.Document
	chunks     map[string]domain.Chunk
	embeddings map[string]map[string][]float32 // chunkID -> model -> vector
	rels       []domain.Relationship

	lexicalHits []domain.LexicalHit
	lexicalErr  error
	upsertErr   error
	saveChunks  error
	health      domain.Health
}

func newMockStore() *mockStore {
	return &mockStore{
		docs:       make(map[string]*domain.Document),
		chunks:     make(map[string]domain.Chunk),
		embeddings: make(map[string]map[string][]float32),
		health:     domain.Health{State: domain.StateHealthy},
	}
}

func identityKey(sourceSystem, sourceID string) string {
	return sourceSystem + "\x00" + sourceID
}

func (m *mockStore) UpsertDocument(_ context.Context, rec domain.IngestRecord) (*domain.UpsertResult, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	hash := domain.HashContent(rec.Title, rec.Content)

	for _, doc := range m.docs {
		if doc.Deleted || doc.SourceSystem != rec.SourceSystem || doc.SourceID != rec.SourceID {
			continue
		}
		if doc.ContentHash == hash {
			doc.LastSeenAt = now
			return &domain.UpsertResult{DocumentID: doc.ID, Change: domain.ChangeUnchanged}, nil
		}
		doc.Title = rec.Title
		doc.Content = rec.Content
		doc.ContentHash = hash
		doc.UpdatedAt = now
		doc.LastSeenAt = now
		for id, chunk := range m.chunks {
			if chunk.DocumentID == doc.ID {
				delete(m.chunks, id)
			}
		}
		return &domain.UpsertResult{DocumentID: doc.ID, Change: domain.ChangeUpdated}, nil
	}

	doc := &domain.Document{
		ID:           uuid.New().String(),
		SourceSystem: rec.SourceSystem,
		SourceID:     rec.SourceID,
		Type:         rec.Type,
		Title:        rec.Title,
		Content:      rec.Content,
		ContentHash:  hash,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastSeenAt:   now,
	}
	m.docs[doc.ID] = doc
	return &domain.UpsertResult{DocumentID: doc.ID, Change: domain.ChangeCreated}, nil
}

func (m *mockStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *mockStore) GetBySourceIdentity(_ context.Context, sourceSystem, sourceID string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.docs {
		if !doc.Deleted && identityKey(doc.SourceSystem, doc.SourceID) == identityKey(sourceSystem, sourceID) {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) LatestForSource(_ context.Context, sourceSystem string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.Document
	for _, doc := range m.docs {
		if doc.Deleted || doc.SourceSystem != sourceSystem {
			continue
		}
		if latest == nil || doc.LastSeenAt.After(latest.LastSeenAt) {
			latest = doc
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (m *mockStore) Tombstone(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Deleted = true
	return nil
}

func (m *mockStore) TombstoneStale(_ context.Context, sourceSystem string, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	swept := 0
	for _, doc := range m.docs {
		if !doc.Deleted && doc.SourceSystem == sourceSystem && doc.LastSeenAt.Before(cutoff) {
			doc.Deleted = true
			swept++
		}
	}
	return swept, nil
}

func (m *mockStore) SearchLexical(_ context.Context, _ string, limit int) ([]domain.LexicalHit, error) {
	if m.lexicalErr != nil {
		return nil, m.lexicalErr
	}
	if limit > len(m.lexicalHits) {
		return m.lexicalHits, nil
	}
	return m.lexicalHits[:limit], nil
}

func (m *mockStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	if m.saveChunks != nil {
		return m.saveChunks
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunk := range chunks {
		m.chunks[chunk.ID] = chunk
	}
	return nil
}

func (m *mockStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Chunk
	for _, chunk := range m.chunks {
		if chunk.DocumentID == documentID {
			out = append(out, chunk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (m *mockStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chunk, ok := m.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chunk, nil
}

func (m *mockStore) ListUnembedded(_ context.Context, model string, limit int) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Chunk
	for _, chunk := range m.chunks {
		doc, ok := m.docs[chunk.DocumentID]
		if !ok || doc.Deleted {
			continue
		}
		if _, embedded := m.embeddings[chunk.ID][model]; embedded {
			continue
		}
		out = append(out, chunk)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) SaveEmbedding(_ context.Context, chunkID, model string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.embeddings[chunkID] == nil {
		m.embeddings[chunkID] = make(map[string][]float32)
	}
	m.embeddings[chunkID][model] = vector
	return nil
}

func (m *mockStore) SemanticCandidates(_ context.Context, model string) ([]domain.SemanticCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SemanticCandidate
	for chunkID, models := range m.embeddings {
		vector, ok := models[model]
		if !ok {
			continue
		}
		chunk, ok := m.chunks[chunkID]
		if !ok {
			continue
		}
		doc, ok := m.docs[chunk.DocumentID]
		if !ok || doc.Deleted {
			continue
		}
		out = append(out, domain.SemanticCandidate{
			ChunkID:    chunkID,
			DocumentID: doc.ID,
			Type:       doc.Type,
			Title:      doc.Title,
			Vector:     vector,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkID < out[j].ChunkID })
	return out, nil
}

func (m *mockStore) EmbeddingCoverage(_ context.Context) (*domain.EmbeddingCoverage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cov := &domain.EmbeddingCoverage{ByModel: make(map[string]domain.ModelCoverage)}
	for _, chunk := range m.chunks {
		doc, ok := m.docs[chunk.DocumentID]
		if !ok || doc.Deleted {
			continue
		}
		cov.TotalChunks++
		if len(m.embeddings[chunk.ID]) > 0 {
			cov.EmbeddedChunks++
		}
	}
	if cov.TotalChunks == 0 {
		cov.CoverageRatio = 1.0
	} else {
		cov.CoverageRatio = float64(cov.EmbeddedChunks) / float64(cov.TotalChunks)
	}
	return cov, nil
}

func (m *mockStore) AddRelationship(_ context.Context, rel *domain.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rels = append(m.rels, *rel)
	return nil
}

func (m *mockStore) ListRelated(_ context.Context, documentID string) ([]domain.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Relationship
	for _, rel := range m.rels {
		if rel.FromDocumentID == documentID {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (m *mockStore) Health() domain.Health { return m.health }

func (m *mockStore) Close() error { return nil }

var _ driven.DocumentStore = (*mockStore)(nil)

// mockEmbedder implements driven.EmbeddingService with canned vectors.
type mockEmbedder struct {
	model      string
	dimensions int
	vectors    map[string][]float32
	embedErr   error
	batchErr   error
	calls      int
}

func newMockEmbedder(model string, dimensions int) *mockEmbedder {
	return &mockEmbedder{
		model:      model,
		dimensions: dimensions,
		vectors:    make(map[string][]float32),
	}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	return make([]float32, m.dimensions), nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return m.dimensions }
func (m *mockEmbedder) ModelName() string            { return m.model }
func (m *mockEmbedder) Ping(_ context.Context) error { return m.embedErr }
func (m *mockEmbedder) Close() error                 { return nil }

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

// staticConfig implements driven.ConfigSource with fixed values.
type staticConfig struct {
	retrieval driven.RetrievalParams
	chunking  driven.ChunkingParams
}

func (c *staticConfig) Retrieval() driven.RetrievalParams { return c.retrieval }
func (c *staticConfig) Chunking() driven.ChunkingParams   { return c.chunking }

var _ driven.ConfigSource = (*staticConfig)(nil)

// errEmbedder always fails, simulating an unreachable provider.
type errEmbedder struct {
	mockEmbedder
}

func newErrEmbedder() *errEmbedder {
	e := &errEmbedder{mockEmbedder: *newMockEmbedder("down-model", 4)}
	e.embedErr = errors.New("provider unreachable")
	return e
}
