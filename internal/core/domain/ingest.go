package domain

import "strings"

// IngestRecord is a normalised record pushed into the upsert engine by an
// external source adapter. Adapters own permission handling, pagination and
// field mapping; the engine performs no enrichment of empty content.
type IngestRecord struct {
	// SourceSystem identifies the producing adapter. Required.
	SourceSystem string

	// SourceID is the stable per-source identifier. Required.
	SourceID string

	// Type is the coarse document category.
	Type DocumentType

	// Title is the human-readable title.
	Title string

	// Content is the plain text body.
	Content string

	// OriginPath is a deep link back to the source item.
	OriginPath string

	// Extra holds opaque source-specific metadata.
	Extra map[string]any
}

// Validate checks that the record carries a resolvable source identity.
// A record without one cannot be deduplicated later and must be rejected
// rather than silently accepted.
func (r IngestRecord) Validate() error {
	if strings.TrimSpace(r.SourceSystem) == "" || strings.TrimSpace(r.SourceID) == "" {
		return ErrInvalidInput
	}
	return nil
}

// ChangeType describes the outcome of an upsert.
type ChangeType string

// Upsert outcomes.
const (
	ChangeCreated   ChangeType = "created"
	ChangeUpdated   ChangeType = "updated"
	ChangeUnchanged ChangeType = "unchanged"
)

// UpsertResult reports the outcome of a single document upsert.
type UpsertResult struct {
	// DocumentID is the id of the created or updated document.
	DocumentID string

	// Change is the detected outcome.
	Change ChangeType
}

// ResolvedDocument is the outcome of resolving a source identity to a
// document id on behalf of a dependent record.
type ResolvedDocument struct {
	// DocumentID is the resolved owning document id.
	DocumentID string

	// Fallback is true when the expected owning row was missing and the
	// engine repaired the reference with the most recently touched document
	// from the same source system. Callers should treat this as a signal of
	// an upstream ordering bug.
	Fallback bool
}

// BatchItemResult is the per-record outcome of a batch ingestion.
// Each document's upsert is its own unit of work; one failing record never
// rolls back or blocks the others.
type BatchItemResult struct {
	// SourceID identifies the input record.
	SourceID string

	// Result is the upsert outcome when Err is nil.
	Result *UpsertResult

	// Err is the per-record failure, if any.
	Err error
}

// IngestStats aggregates counters across a batch ingestion.
type IngestStats struct {
	// Created counts newly inserted documents.
	Created int

	// Updated counts documents whose content changed.
	Updated int

	// Unchanged counts documents where only last_seen_at advanced.
	Unchanged int

	// Failed counts records rejected or errored.
	Failed int

	// OwnerFallbacks counts best-effort owner resolutions (see ResolvedDocument).
	OwnerFallbacks int
}
