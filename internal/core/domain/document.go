package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DocumentType is the coarse category of a document.
type DocumentType string

// Known document types. Adapters may introduce new types; the engine
// treats the value as an opaque label apart from search filtering.
const (
	TypeMessage DocumentType = "message"
	TypeEmail   DocumentType = "email"
	TypeEvent   DocumentType = "event"
	TypeContact DocumentType = "contact"
	TypeFile    DocumentType = "file"
	TypeNote    DocumentType = "note"
)

// Document is the canonical unit of retrievable content.
// The (SourceSystem, SourceID) pair is unique among non-deleted
// documents and stable across re-ingestion from the same origin.
type Document struct {
	// ID is the globally unique identifier for the document.
	ID string

	// SourceSystem identifies the adapter that produced this document
	// (e.g. "mail", "calendar", "whatsapp", "files").
	SourceSystem string

	// SourceID is the stable per-source identifier of the origin item.
	SourceID string

	// Type is the coarse category used for search filtering.
	Type DocumentType

	// Title is the human-readable title.
	Title string

	// Content is the plain text body used for lexical indexing.
	Content string

	// OriginPath is a deep link back to the source item. Opaque to the engine.
	OriginPath string

	// ContentHash is a digest over Title and Content, used for change detection.
	ContentHash string

	// Extra holds opaque source-specific structured metadata.
	Extra map[string]any

	// Deleted marks the document as tombstoned. Tombstoned documents are
	// excluded from search but never physically removed on ordinary sync.
	Deleted bool

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document content last changed.
	UpdatedAt time.Time

	// LastSeenAt advances on every ingestion pass, even when content is
	// unchanged, so stale documents can be tombstoned later.
	LastSeenAt time.Time
}

// Chunk is a contiguous slice of a document's content, the unit of embedding.
// Chunks are produced deterministically from document content and are never
// mutated in place; a content change regenerates the whole chunk set.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Text is the chunk's slice of the document content.
	Text string

	// ChunkIndex is the ordinal position within the document.
	ChunkIndex int

	// StartOffset is the chunk's starting character offset in the content.
	StartOffset int

	// EndOffset is the chunk's ending character offset in the content.
	EndOffset int

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// Embedding is a fixed-length vector attached to exactly one chunk.
// At most one embedding exists per (ChunkID, Model) pair; vectors are only
// comparable to vectors produced by the same model.
type Embedding struct {
	// ID is the storage-assigned identifier.
	ID int64

	// ChunkID links to the owning Chunk.
	ChunkID string

	// Model identifies the embedding function/version that produced the vector.
	Model string

	// Vector is the ordered sequence of components.
	Vector []float32

	// Dimensions is the recorded vector length.
	Dimensions int

	// CreatedAt is when the vector was persisted.
	CreatedAt time.Time
}

// Relationship is a typed, directed edge between two documents,
// e.g. "contact sent this message". Strength is in [0,1].
type Relationship struct {
	// ID is the unique identifier for the edge.
	ID string

	// FromDocumentID is the edge origin.
	FromDocumentID string

	// ToDocumentID is the edge target.
	ToDocumentID string

	// Type labels the relationship (e.g. "sent", "attended", "mentions").
	Type string

	// Strength scores the relationship in [0,1].
	Strength float64

	// CreatedAt is when the edge was recorded.
	CreatedAt time.Time
}

// HashContent computes the content hash over the fields that matter for
// change detection. The hash changes if and only if title or content change.
func HashContent(title, content string) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}
