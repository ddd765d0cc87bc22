package driving

import "context"

// BacklogReport summarises one backlog-draining pass.
type BacklogReport struct {
	// Processed counts chunks that received a vector.
	Processed int

	// Failed counts chunks whose embedding attempt failed. Failed chunks
	// stay in the backlog for a later retry.
	Failed int

	// Remaining is the backlog size left for the worker's model after the
	// pass, capped at the scan limit.
	Remaining int
}

// EmbeddingWorker drives embedding generation independently of ingestion,
// at whatever cadence the provider's throughput allows. Lexical search is
// available the moment a document lands; semantic search becomes available
// as the worker drains the backlog.
type EmbeddingWorker interface {
	// DrainOnce embeds up to limit backlog chunks and persists the vectors.
	DrainOnce(ctx context.Context, limit int) (*BacklogReport, error)

	// Run drains continuously until the context is cancelled or the backlog
	// is empty.
	Run(ctx context.Context, batchSize int) error
}
