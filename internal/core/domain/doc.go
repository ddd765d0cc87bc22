// Package domain defines the core business entities for Corpus.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: The canonical unit of retrievable content
//   - Chunk: A bounded slice of document text, the unit of embedding
//   - Embedding: A fixed-length vector attached to exactly one chunk
//   - Relationship: A typed, directed edge between two documents
//   - IngestRecord: A normalised record pushed in by a source adapter
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
