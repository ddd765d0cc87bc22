package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	embedBatchSize int
	embedOnce      bool
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Drain the embedding backlog",
	Long: `Embeds chunks that have no vector yet for the configured model.
Ingestion never waits for embeddings: keyword search works immediately and
semantic search coverage catches up as this backlog drains.`,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().IntVar(&embedBatchSize, "batch-size", 32, "chunks per provider batch")
	embedCmd.Flags().BoolVar(&embedOnce, "once", false, "run a single pass instead of draining fully")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if embedOnce {
		report, err := embedWorker.DrainOnce(ctx, embedBatchSize)
		if err != nil {
			return fmt.Errorf("draining backlog: %w", err)
		}
		cmd.Printf("Embedded %d chunks (%d failed, %d remaining)\n",
			report.Processed, report.Failed, report.Remaining)
		return nil
	}

	if err := embedWorker.Run(ctx, embedBatchSize); err != nil {
		return fmt.Errorf("draining backlog: %w", err)
	}

	cov, err := searchService.Coverage(ctx)
	if err != nil {
		return fmt.Errorf("computing coverage: %w", err)
	}
	cmd.Printf("Backlog drained: %d/%d chunks embedded (%.0f%%)\n",
		cov.EmbeddedChunks, cov.TotalChunks, cov.CoverageRatio*100)
	return nil
}
