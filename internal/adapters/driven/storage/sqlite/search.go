package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
)

// SearchLexical runs a BM25 query over title and content of live documents.
// Title matches weigh double. Scores are returned raw (higher is better);
// normalisation happens in the retrieval service.
func (s *Store) SearchLexical(
	ctx context.Context, query string, limit int,
) ([]domain.LexicalHit, error) {
	if s.Health().Degraded() {
		return nil, domain.ErrSearchUnavailable
	}

	match := ftsQuery(query)
	if match == "" {
		return []domain.LexicalHit{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	// bm25() returns negated scores: numerically smaller is better.
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.type, d.title,
		       snippet(documents_fts, 1, '[', ']', '…', 12),
		       -bm25(documents_fts, 2.0, 1.0)
		FROM documents_fts f
		JOIN documents d ON d.rowid = f.rowid
		WHERE documents_fts MATCH ? AND d.deleted = 0
		ORDER BY bm25(documents_fts, 2.0, 1.0)
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("querying lexical index: %w", err)
	}
	defer rows.Close()

	var hits []domain.LexicalHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var hit domain.LexicalHit
		var docType string
		if err := rows.Scan(&hit.DocumentID, &docType, &hit.Title, &hit.Snippet, &hit.Score); err != nil {
			return nil, fmt.Errorf("scanning lexical hit: %w", err)
		}
		hit.Type = domain.DocumentType(docType)
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lexical hits: %w", err)
	}

	return hits, nil
}

// ftsQuery turns free text into a safe FTS5 MATCH expression: each token is
// quoted to neutralise FTS5 operators, and tokens are OR-ed so partial
// matches still produce candidates for the fusion stage to rank.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		terms = append(terms, `"`+f+`"`)
	}
	return strings.Join(terms, " OR ")
}
