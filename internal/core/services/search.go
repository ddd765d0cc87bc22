package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
	"github.com/tessera-labs/corpus-cli/internal/core/ports/driven"
	"github.com/tessera-labs/corpus-cli/internal/core/ports/driving"
	"github.com/tessera-labs/corpus-cli/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// Fusion defaults, used when no config source is wired.
const (
	defaultBM25Weight      = 0.4
	defaultEmbeddingWeight = 0.6
	defaultRelevanceFloor  = 0.75
	defaultSearchLimit     = 20
)

// snippetRunes caps fallback snippets built from chunk text.
const snippetRunes = 160

// SearchService answers queries by fusing the store's BM25 index with
// cosine similarity over stored chunk embeddings.
type SearchService struct {
	store    driven.DocumentStore
	embedder driven.EmbeddingService
	config   driven.ConfigSource
}

// NewSearchService creates a search service. The embedding service is
// optional (can be nil); without it every query is lexical-only and flagged
// as semantically degraded.
func NewSearchService(
	store driven.DocumentStore,
	embedder driven.EmbeddingService,
	config driven.ConfigSource,
) *SearchService {
	return &SearchService{
		store:    store,
		embedder: embedder,
		config:   config,
	}
}

// fusionCandidate accumulates both signals for one document before scoring.
type fusionCandidate struct {
	docID    string
	docType  domain.DocumentType
	title    string
	snippet  string
	lexical  float64
	semantic float64
	// bestChunkID backs the snippet fallback for semantic-only hits.
	bestChunkID string
}

// Search runs the hybrid retrieval pipeline: BM25 candidates and semantic
// candidates are fetched, normalised, fused per document and ranked. An
// unreachable embedding provider degrades the query to lexical-only results
// with the degradation flagged, never an error.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) (*domain.SearchResponse, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		return &domain.SearchResponse{Results: []domain.SearchResult{}}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	params := s.retrievalParams()
	logger.Debug("Fusion weights: bm25=%.2f embedding=%.2f floor=%.2f",
		params.BM25Weight, params.EmbeddingWeight, params.RelevanceFloor)

	// Fetch more lexical candidates than requested so fusion and type
	// filtering have something to work with.
	hits, err := s.store.SearchLexical(ctx, query, limit*3)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	logger.Debug("Lexical candidates: %d", len(hits))

	candidates := make(map[string]*fusionCandidate)

	// Normalise raw BM25 scores to [0,1] against the best hit so the
	// fusion weights mean the same thing on every query.
	var bestLexical float64
	for _, hit := range hits {
		if hit.Score > bestLexical {
			bestLexical = hit.Score
		}
	}
	for _, hit := range hits {
		lexical := 0.0
		if bestLexical > 0 {
			lexical = hit.Score / bestLexical
		}
		candidates[hit.DocumentID] = &fusionCandidate{
			docID:   hit.DocumentID,
			docType: hit.Type,
			title:   hit.Title,
			snippet: hit.Snippet,
			lexical: lexical,
		}
	}

	response := &domain.SearchResponse{}

	if err := s.fuseSemantic(ctx, query, params, candidates); err != nil {
		// Semantic failure is a degradation, not a query failure.
		logger.Warn("Semantic search unavailable: %v", err)
		response.SemanticDegraded = true
		response.DegradedReason = err.Error()
	}

	results, err := s.rank(ctx, candidates, params, opts.Types, limit)
	if err != nil {
		return nil, err
	}
	response.Results = results

	logger.Info("Final results: %d (semantic degraded: %t)", len(results), response.SemanticDegraded)
	return response, nil
}

// fuseSemantic embeds the query and folds each document's best chunk cosine
// similarity into the candidate set. Returns an error only when semantic
// search could not run at all.
func (s *SearchService) fuseSemantic(
	ctx context.Context, query string, params driven.RetrievalParams,
	candidates map[string]*fusionCandidate,
) error {
	if s.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return fmt.Errorf("embedding query: %w", err)
	}

	stored, err := s.store.SemanticCandidates(ctx, s.embedder.ModelName())
	if err != nil {
		return fmt.Errorf("loading semantic candidates: %w", err)
	}
	logger.Debug("Semantic candidates: %d vectors", len(stored))

	for _, cand := range stored {
		similarity, ok := cosineSimilarity(queryVec, cand.Vector)
		if !ok || similarity < params.RelevanceFloor {
			continue
		}

		fc, exists := candidates[cand.DocumentID]
		if !exists {
			fc = &fusionCandidate{
				docID:   cand.DocumentID,
				docType: cand.Type,
				title:   cand.Title,
			}
			candidates[cand.DocumentID] = fc
		}

		// One document, many chunks: the best chunk speaks for it.
		if similarity > fc.semantic {
			fc.semantic = similarity
			fc.bestChunkID = cand.ChunkID
		}
	}

	return nil
}

// rank fuses the two signals into combined scores, filters by type, fills
// missing snippets and returns the top results.
func (s *SearchService) rank(
	ctx context.Context, candidates map[string]*fusionCandidate,
	params driven.RetrievalParams, types []domain.DocumentType, limit int,
) ([]domain.SearchResult, error) {
	typeFilter := make(map[domain.DocumentType]bool, len(types))
	for _, t := range types {
		typeFilter[t] = true
	}

	results := make([]domain.SearchResult, 0, len(candidates))
	for _, fc := range candidates {
		if len(typeFilter) > 0 && !typeFilter[fc.docType] {
			continue
		}

		combined := params.BM25Weight*fc.lexical + params.EmbeddingWeight*fc.semantic
		if combined <= 0 {
			continue
		}

		snippet := fc.snippet
		if snippet == "" && fc.bestChunkID != "" {
			snippet = s.chunkSnippet(ctx, fc.bestChunkID)
		}

		results = append(results, domain.SearchResult{
			DocumentID:    fc.docID,
			Type:          fc.docType,
			Title:         fc.title,
			Snippet:       snippet,
			LexicalScore:  fc.lexical,
			SemanticScore: fc.semantic,
			CombinedScore: combined,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		return results[i].DocumentID < results[j].DocumentID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// chunkSnippet builds a plain excerpt from a chunk's text for hits that
// never appeared in the lexical candidate set.
func (s *SearchService) chunkSnippet(ctx context.Context, chunkID string) string {
	chunk, err := s.store.GetChunk(ctx, chunkID)
	if err != nil {
		logger.Debug("Snippet chunk %s unavailable: %v", chunkID, err)
		return ""
	}

	runes := []rune(strings.TrimSpace(chunk.Text))
	if len(runes) > snippetRunes {
		return string(runes[:snippetRunes]) + "…"
	}
	return string(runes)
}

// GetDocument retrieves a document by id.
func (s *SearchService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return doc, nil
}

// Coverage reports embedding completeness, the operational signal for
// whether semantic search is fully available yet.
func (s *SearchService) Coverage(ctx context.Context) (*domain.EmbeddingCoverage, error) {
	cov, err := s.store.EmbeddingCoverage(ctx)
	if err != nil {
		return nil, fmt.Errorf("computing coverage: %w", err)
	}
	return cov, nil
}

func (s *SearchService) retrievalParams() driven.RetrievalParams {
	if s.config != nil {
		return s.config.Retrieval()
	}
	return driven.RetrievalParams{
		BM25Weight:      defaultBM25Weight,
		EmbeddingWeight: defaultEmbeddingWeight,
		RelevanceFloor:  defaultRelevanceFloor,
	}
}

// cosineSimilarity compares a query vector against a stored vector.
// A stored vector longer than the query is truncated to the query's length;
// a stored vector shorter than the query cannot be compared and is skipped.
func cosineSimilarity(query, stored []float32) (float64, bool) {
	if len(query) == 0 || len(stored) < len(query) {
		return 0, false
	}
	stored = stored[:len(query)]

	var dot, normQ, normS float64
	for i := range query {
		q := float64(query[i])
		v := float64(stored[i])
		dot += q * v
		normQ += q * q
		normS += v * v
	}

	if normQ == 0 || normS == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normQ) * math.Sqrt(normS)), true
}
