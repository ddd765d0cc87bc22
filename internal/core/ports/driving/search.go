package driving

import (
	"context"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
)

// SearchService answers text queries with a single ranked, deduplicated,
// snippetted result list fusing lexical and semantic signals.
type SearchService interface {
	// Search runs the hybrid retrieval pipeline. When the embedding provider
	// is unreachable the response carries lexical-only results with the
	// degradation flagged rather than failing the whole query.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error)

	// GetDocument retrieves a document by id or domain.ErrNotFound.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// Coverage reports whether semantic search is fully available yet.
	Coverage(ctx context.Context) (*domain.EmbeddingCoverage, error)
}
