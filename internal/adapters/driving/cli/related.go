package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var relatedCmd = &cobra.Command{
	Use:   "related [document-id]",
	Short: "List documents related to a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runRelated,
}

func init() {
	rootCmd.AddCommand(relatedCmd)
}

func runRelated(cmd *cobra.Command, args []string) error {
	rels, err := store.ListRelated(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("listing related documents: %w", err)
	}

	if len(rels) == 0 {
		cmd.Println("No related documents.")
		return nil
	}

	for _, rel := range rels {
		title := rel.ToDocumentID
		if doc, err := searchService.GetDocument(cmd.Context(), rel.ToDocumentID); err == nil && doc.Title != "" {
			title = doc.Title
		}
		cmd.Printf("  %-12s %.2f  %s\n", rel.Type, rel.Strength, title)
	}

	return nil
}
