// Package chunker splits document content into fixed-size overlapping
// chunks. Chunking is deterministic: the same content with the same policy
// always yields the same boundaries and chunk indexes, which keeps citation
// offsets stable across re-ingestion.
package chunker

import (
	"github.com/google/uuid"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
)

// DefaultChunkSize is the default maximum chunk length in characters.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default overlap between consecutive chunks.
const DefaultChunkOverlap = 200

// Splitter produces chunks from document content.
type Splitter struct {
	size    int
	overlap int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.size = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Overlap must leave the window moving forward.
	if s.overlap >= s.size {
		s.overlap = s.size / 4
	}

	return s
}

// Size returns the configured chunk size.
func (s *Splitter) Size() int {
	return s.size
}

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int {
	return s.overlap
}

// Split chunks content for the given document. Offsets are character
// (rune) offsets into the content, not byte offsets, so they survive
// multi-byte text. Empty content produces no chunks; content shorter than
// the chunk size produces a single chunk with index 0.
func (s *Splitter) Split(documentID, content string) []domain.Chunk {
	if content == "" {
		return nil
	}

	runes := []rune(content)
	total := len(runes)
	step := s.size - s.overlap

	chunks := make([]domain.Chunk, 0, total/step+1)
	index := 0

	for start := 0; start < total; start += step {
		end := start + s.size
		if end > total {
			end = total
		}

		chunks = append(chunks, domain.Chunk{
			ID:          uuid.New().String(),
			DocumentID:  documentID,
			Text:        string(runes[start:end]),
			ChunkIndex:  index,
			StartOffset: start,
			EndOffset:   end,
			Metadata:    map[string]any{},
		})
		index++

		if end == total {
			break
		}
	}

	return chunks
}
