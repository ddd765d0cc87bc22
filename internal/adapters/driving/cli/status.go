package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store health and embedding coverage",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	health := store.Health()

	cmd.Printf("Database: %s\n", store.Path())
	cmd.Printf("Schema:   version %d\n", health.SchemaVersion)
	if health.Degraded() {
		cmd.Printf("Health:   DEGRADED — %s\n", health.Reason)
		cmd.Println("          (documents are served; search is unavailable)")
		return nil
	}
	cmd.Println("Health:   ok")

	if embedder != nil {
		if err := embedder.Ping(cmd.Context()); err != nil {
			cmd.Printf("Embedder: %s unreachable (%v)\n", embedder.ModelName(), err)
		} else {
			cmd.Printf("Embedder: %s (%d dimensions)\n", embedder.ModelName(), embedder.Dimensions())
		}
	} else {
		cmd.Println("Embedder: disabled — search is keyword-only")
	}

	cov, err := searchService.Coverage(cmd.Context())
	if err != nil {
		return fmt.Errorf("computing coverage: %w", err)
	}

	cmd.Printf("Coverage: %d/%d chunks embedded (%.0f%%)\n",
		cov.EmbeddedChunks, cov.TotalChunks, cov.CoverageRatio*100)

	models := make([]string, 0, len(cov.ByModel))
	for model := range cov.ByModel {
		models = append(models, model)
	}
	sort.Strings(models)
	for _, model := range models {
		mc := cov.ByModel[model]
		cmd.Printf("          %s: %d chunks (%.0f%%)\n", model, mc.EmbeddedChunks, mc.CoverageRatio*100)
	}

	return nil
}
