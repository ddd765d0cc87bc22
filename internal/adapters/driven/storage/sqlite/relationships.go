package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
)

// AddRelationship links two documents. Re-adding an existing
// (from, to, type) triple updates the strength rather than duplicating.
func (s *Store) AddRelationship(ctx context.Context, rel *domain.Relationship) error {
	if rel == nil || rel.FromDocumentID == "" || rel.ToDocumentID == "" || rel.Type == "" {
		return domain.ErrInvalidInput
	}
	if rel.Strength < 0 || rel.Strength > 1 {
		return domain.ErrInvalidInput
	}

	release, err := s.acquireWrite(ctx)
	if err != nil {
		return err
	}
	defer release()

	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relationships (id, from_document_id, to_document_id, type, strength, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(from_document_id, to_document_id, type) DO UPDATE SET
			strength = excluded.strength
	`, rel.ID, rel.FromDocumentID, rel.ToDocumentID, rel.Type, rel.Strength, rel.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving relationship: %w", err)
	}
	return nil
}

// ListRelated returns outgoing relationships of a document whose targets
// are still live, strongest first.
func (s *Store) ListRelated(ctx context.Context, documentID string) ([]domain.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.from_document_id, r.to_document_id, r.type, r.strength, r.created_at
		FROM relationships r
		JOIN documents d ON d.id = r.to_document_id
		WHERE r.from_document_id = ? AND d.deleted = 0
		ORDER BY r.strength DESC, r.created_at
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", err)
	}
	defer rows.Close()

	var rels []domain.Relationship //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rel domain.Relationship
		if err := rows.Scan(&rel.ID, &rel.FromDocumentID, &rel.ToDocumentID,
			&rel.Type, &rel.Strength, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		rels = append(rels, rel)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating relationships: %w", err)
	}

	return rels, nil
}
