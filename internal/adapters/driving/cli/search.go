package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessera-labs/corpus-cli/internal/core/domain"
)

var (
	searchLimit int
	searchTypes []string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the document store",
	Long: `Runs a hybrid query over the document store: BM25 keyword matching
fused with semantic similarity over chunk embeddings. When the embedding
provider is unreachable, results are lexical-only and flagged as such.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringSliceVarP(&searchTypes, "type", "t", nil,
		"filter by document type (message, email, event, contact, file, note)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	opts := domain.SearchOptions{Limit: searchLimit}
	for _, t := range searchTypes {
		opts.Types = append(opts.Types, domain.DocumentType(t))
	}

	resp, err := searchService.Search(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if resp.SemanticDegraded {
		cmd.Printf("Warning: semantic search unavailable (%s); results are keyword-only.\n\n",
			resp.DegradedReason)
	}

	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, r := range resp.Results {
		title := r.Title
		if title == "" {
			title = r.DocumentID
		}
		cmd.Printf("  [%d] %s (%s, %.2f)\n", i+1, title, r.Type, r.CombinedScore)
		if r.Snippet != "" {
			cmd.Printf("      %s\n", r.Snippet)
		}
		cmd.Printf("      lexical %.2f · semantic %.2f · id %s\n", r.LexicalScore, r.SemanticScore, r.DocumentID)
		cmd.Println()
	}

	return nil
}
