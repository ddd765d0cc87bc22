package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
)

const chunkColumns = `id, document_id, text, chunk_index, start_offset, end_offset, metadata`

// SaveChunks stores a freshly generated chunk set in one transaction.
func (s *Store) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	release, err := s.acquireWrite(ctx)
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, text, chunk_index, start_offset, end_offset, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, chunk_index) DO UPDATE SET
			id = excluded.id,
			text = excluded.text,
			start_offset = excluded.start_offset,
			end_offset = excluded.end_offset,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Text,
			chunk.ChunkIndex, chunk.StartOffset, chunk.EndOffset, string(metadataJSON)); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunks retrieves all chunks for a document, ordered by chunk index.
func (s *Store) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chunkColumns+` FROM chunks
		 WHERE document_id = ?
		 ORDER BY chunk_index`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// GetChunk retrieves a single chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE id = ?", id)
	return scanChunk(row)
}

// ListUnembedded returns chunks of live documents with no embedding row for
// the given model. This is the embedding backlog: a background worker
// drains it at whatever throughput the provider allows.
func (s *Store) ListUnembedded(ctx context.Context, model string, limit int) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.text, c.chunk_index, c.start_offset, c.end_offset, c.metadata
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		LEFT JOIN embeddings e ON e.chunk_id = c.id AND e.model = ?
		WHERE d.deleted = 0 AND e.id IS NULL
		ORDER BY c.document_id, c.chunk_index
		LIMIT ?
	`, model, limit)
	if err != nil {
		return nil, fmt.Errorf("querying unembedded chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// ==================== Helper Functions ====================

func scanChunk(sc rowScanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var metadataJSON string

	if err := sc.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Text, &chunk.ChunkIndex,
		&chunk.StartOffset, &chunk.EndOffset, &metadataJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}

	return &chunk, nil
}

func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}
