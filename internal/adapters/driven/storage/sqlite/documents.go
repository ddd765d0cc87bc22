package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
)

const documentColumns = `id, source_system, source_id, type, title, content,
	origin_path, content_hash, extra, deleted, created_at, updated_at, last_seen_at`

// UpsertDocument implements the change-detection algorithm: resolve the
// record against its (source_system, source_id) identity, then insert,
// touch last_seen_at, or update in place depending on the content hash.
// The whole resolution runs in one transaction under the write lock, so
// concurrent upserts of the same identity never produce two rows.
func (s *Store) UpsertDocument(ctx context.Context, rec domain.IngestRecord) (*domain.UpsertResult, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	release, err := s.acquireWrite(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	existing, err := getByIdentityTx(ctx, tx, rec.SourceSystem, rec.SourceID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	hash := domain.HashContent(rec.Title, rec.Content)

	var result *domain.UpsertResult

	switch {
	case existing == nil:
		result, err = s.insertDocument(ctx, tx, rec, hash, now)
		if err != nil {
			return nil, err
		}

	case existing.ContentHash == hash:
		// No content churn: no lexical re-index, no chunk regeneration.
		_, err = tx.ExecContext(ctx,
			"UPDATE documents SET last_seen_at = ? WHERE id = ?",
			now, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("touching document: %w", err)
		}
		result = &domain.UpsertResult{DocumentID: existing.ID, Change: domain.ChangeUnchanged}

	default:
		if err := s.updateDocument(ctx, tx, existing.ID, rec, hash, now); err != nil {
			return nil, err
		}
		result = &domain.UpsertResult{DocumentID: existing.ID, Change: domain.ChangeUpdated}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return result, nil
}

// insertDocument inserts a new row. When a concurrent writer from another
// process wins the identity race, the insert hits the unique index; the
// loser re-reads the winner's row and updates it instead of duplicating.
func (s *Store) insertDocument(
	ctx context.Context, tx *sql.Tx, rec domain.IngestRecord, hash string, now time.Time,
) (*domain.UpsertResult, error) {
	extraJSON, err := marshalExtra(rec.Extra)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents
			(id, source_system, source_id, type, title, content, origin_path,
			 content_hash, extra, deleted, created_at, updated_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
	`, id, rec.SourceSystem, rec.SourceID, string(rec.Type), rec.Title, rec.Content,
		rec.OriginPath, hash, extraJSON, now, now, now)

	if err != nil {
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("inserting document: %w", err)
		}

		winner, rerr := getByIdentityTx(ctx, tx, rec.SourceSystem, rec.SourceID)
		if rerr != nil {
			return nil, rerr
		}
		if winner == nil {
			return nil, fmt.Errorf("inserting document: %w", err)
		}

		if winner.ContentHash == hash {
			if _, terr := tx.ExecContext(ctx,
				"UPDATE documents SET last_seen_at = ? WHERE id = ?", now, winner.ID); terr != nil {
				return nil, fmt.Errorf("touching document: %w", terr)
			}
			return &domain.UpsertResult{DocumentID: winner.ID, Change: domain.ChangeUnchanged}, nil
		}

		if uerr := s.updateDocument(ctx, tx, winner.ID, rec, hash, now); uerr != nil {
			return nil, uerr
		}
		return &domain.UpsertResult{DocumentID: winner.ID, Change: domain.ChangeUpdated}, nil
	}

	return &domain.UpsertResult{DocumentID: id, Change: domain.ChangeCreated}, nil
}

// updateDocument rewrites the searchable fields and drops the now-stale
// chunk set in the same transaction; embeddings cascade with the chunks.
// The FTS triggers re-index the document as part of the same commit.
func (s *Store) updateDocument(
	ctx context.Context, tx *sql.Tx, id string, rec domain.IngestRecord, hash string, now time.Time,
) error {
	extraJSON, err := marshalExtra(rec.Extra)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET
			type = ?, title = ?, content = ?, origin_path = ?,
			content_hash = ?, extra = ?, updated_at = ?, last_seen_at = ?
		WHERE id = ?
	`, string(rec.Type), rec.Title, rec.Content, rec.OriginPath,
		hash, extraJSON, now, now, id)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("removing stale chunks: %w", err)
	}

	return nil
}

// GetDocument retrieves a document by ID, tombstoned or not.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	return scanDocument(row)
}

// GetBySourceIdentity retrieves the live document with the given identity.
func (s *Store) GetBySourceIdentity(
	ctx context.Context, sourceSystem, sourceID string,
) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+` FROM documents
		 WHERE source_system = ? AND source_id = ? AND deleted = 0`,
		sourceSystem, sourceID)
	return scanDocument(row)
}

// LatestForSource returns the most recently touched live document of a
// source system. This backs the best-effort owner-resolution repair.
func (s *Store) LatestForSource(ctx context.Context, sourceSystem string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+` FROM documents
		 WHERE source_system = ? AND deleted = 0
		 ORDER BY last_seen_at DESC, updated_at DESC
		 LIMIT 1`,
		sourceSystem)
	return scanDocument(row)
}

// Tombstone soft-deletes a document. Idempotent for already-tombstoned
// rows; domain.ErrNotFound for unknown ids.
func (s *Store) Tombstone(ctx context.Context, id string) error {
	release, err := s.acquireWrite(ctx)
	if err != nil {
		return err
	}
	defer release()

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET deleted = 1, updated_at = ? WHERE id = ? AND deleted = 0",
		now, id)
	if err != nil {
		return fmt.Errorf("tombstoning document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("tombstoning document: %w", err)
	}
	if affected == 0 {
		var exists int
		row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE id = ?", id)
		if err := row.Scan(&exists); err != nil {
			return fmt.Errorf("checking document: %w", err)
		}
		if exists == 0 {
			return domain.ErrNotFound
		}
	}
	return nil
}

// TombstoneStale tombstones documents of a source system whose
// last_seen_at predates the cutoff.
func (s *Store) TombstoneStale(
	ctx context.Context, sourceSystem string, cutoff time.Time,
) (int, error) {
	release, err := s.acquireWrite(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET deleted = 1, updated_at = ?
		WHERE source_system = ? AND deleted = 0 AND last_seen_at < ?
	`, time.Now().UTC(), sourceSystem, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("tombstoning stale documents: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("tombstoning stale documents: %w", err)
	}
	return int(affected), nil
}

// ==================== Helper Functions ====================

// getByIdentityTx resolves a live document by identity inside a transaction.
// Returns (nil, nil) when no row matches.
func getByIdentityTx(
	ctx context.Context, tx *sql.Tx, sourceSystem, sourceID string,
) (*domain.Document, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+documentColumns+` FROM documents
		 WHERE source_system = ? AND source_id = ? AND deleted = 0`,
		sourceSystem, sourceID)

	doc, err := scanDocument(row)
	if err == domain.ErrNotFound {
		return nil, nil
	}
	return doc, err
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var docType string
	var extraJSON string
	var deleted int

	if err := sc.Scan(&doc.ID, &doc.SourceSystem, &doc.SourceID, &docType,
		&doc.Title, &doc.Content, &doc.OriginPath, &doc.ContentHash,
		&extraJSON, &deleted, &doc.CreatedAt, &doc.UpdatedAt, &doc.LastSeenAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Type = domain.DocumentType(docType)
	doc.Deleted = deleted != 0

	if extraJSON != "" && extraJSON != "null" {
		if err := json.Unmarshal([]byte(extraJSON), &doc.Extra); err != nil {
			return nil, fmt.Errorf("unmarshaling extra: %w", err)
		}
	}

	return &doc, nil
}

func marshalExtra(extra map[string]any) (string, error) {
	if extra == nil {
		return "{}", nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("marshalling extra: %w", err)
	}
	return string(b), nil
}

// isUniqueViolation reports whether err is a SQLite unique-index failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
