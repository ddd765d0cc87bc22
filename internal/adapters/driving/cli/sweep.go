package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	sweepSource string
	sweepAge    time.Duration
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Tombstone documents not seen recently",
	Long: `Tombstones documents of a source system whose last ingestion pass
is older than the given age. Run this after a complete sync of the source,
never after a partial one, or still-existing items will be swept.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().StringVarP(&sweepSource, "source", "s", "", "source system to sweep (required)")
	sweepCmd.Flags().DurationVar(&sweepAge, "older-than", 24*time.Hour, "tombstone documents not seen for this long")
	_ = sweepCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cutoff := time.Now().Add(-sweepAge)

	swept, err := ingestService.TombstoneStale(cmd.Context(), sweepSource, cutoff)
	if err != nil {
		return fmt.Errorf("sweeping stale documents: %w", err)
	}

	cmd.Printf("Tombstoned %d stale documents from %s\n", swept, sweepSource)
	return nil
}
