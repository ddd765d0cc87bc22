package sqlite

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
)

// SaveEmbedding persists a vector for a (chunk, model) pair. Replacing an
// existing pair is allowed so a worker retry never fails on conflict.
// Vectors are stored as little-endian float32 blobs with the dimension
// count recorded alongside.
func (s *Store) SaveEmbedding(ctx context.Context, chunkID, model string, vector []float32) error {
	if chunkID == "" || model == "" || len(vector) == 0 {
		return domain.ErrInvalidInput
	}

	release, err := s.acquireWrite(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, model, vector, dimensions, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id, model) DO UPDATE SET
			vector = excluded.vector,
			dimensions = excluded.dimensions,
			created_at = excluded.created_at
	`, chunkID, model, float32SliceToBytes(vector), len(vector), time.Now().UTC())

	if err != nil {
		return fmt.Errorf("saving embedding: %w", err)
	}
	return nil
}

// SemanticCandidates returns every stored vector for the model belonging to
// a live document, joined with the document context needed for ranking.
func (s *Store) SemanticCandidates(
	ctx context.Context, model string,
) ([]domain.SemanticCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.chunk_id, c.document_id, d.type, d.title, e.vector
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE e.model = ? AND d.deleted = 0
	`, model)
	if err != nil {
		return nil, fmt.Errorf("querying semantic candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.SemanticCandidate //nolint:prealloc // size unknown from query
	for rows.Next() {
		var cand domain.SemanticCandidate
		var docType string
		var blob []byte

		if err := rows.Scan(&cand.ChunkID, &cand.DocumentID, &docType, &cand.Title, &blob); err != nil {
			return nil, fmt.Errorf("scanning semantic candidate: %w", err)
		}

		cand.Type = domain.DocumentType(docType)
		cand.Vector = bytesToFloat32Slice(blob)
		candidates = append(candidates, cand)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating semantic candidates: %w", err)
	}

	return candidates, nil
}

// EmbeddingCoverage reports embedding completeness over live chunks,
// overall and per model.
func (s *Store) EmbeddingCoverage(ctx context.Context) (*domain.EmbeddingCoverage, error) {
	var total int
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.deleted = 0
	`)
	if err := row.Scan(&total); err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}

	var embedded int
	row = s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT e.chunk_id)
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE d.deleted = 0
	`)
	if err := row.Scan(&embedded); err != nil {
		return nil, fmt.Errorf("counting embedded chunks: %w", err)
	}

	coverage := &domain.EmbeddingCoverage{
		TotalChunks:    total,
		EmbeddedChunks: embedded,
		CoverageRatio:  ratio(embedded, total),
		ByModel:        make(map[string]domain.ModelCoverage),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.model, COUNT(DISTINCT e.chunk_id)
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE d.deleted = 0
		GROUP BY e.model
	`)
	if err != nil {
		return nil, fmt.Errorf("querying per-model coverage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var model string
		var count int
		if err := rows.Scan(&model, &count); err != nil {
			return nil, fmt.Errorf("scanning per-model coverage: %w", err)
		}
		coverage.ByModel[model] = domain.ModelCoverage{
			EmbeddedChunks: count,
			CoverageRatio:  ratio(count, total),
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating per-model coverage: %w", err)
	}

	return coverage, nil
}

// ratio returns embedded/total, defining 0/0 as 1.0: an empty corpus is
// fully covered.
func ratio(embedded, total int) float64 {
	if total == 0 {
		return 1.0
	}
	return float64(embedded) / float64(total)
}

// float32SliceToBytes converts a []float32 to a little-endian byte slice.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
