package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var getJSON bool

var getCmd = &cobra.Command{
	Use:   "get [document-id]",
	Short: "Show a stored document",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().BoolVar(&getJSON, "json", false, "output the document as JSON")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	doc, err := searchService.GetDocument(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("getting document: %w", err)
	}

	if getJSON {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling document: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("ID:       %s\n", doc.ID)
	cmd.Printf("Source:   %s/%s\n", doc.SourceSystem, doc.SourceID)
	cmd.Printf("Type:     %s\n", doc.Type)
	cmd.Printf("Title:    %s\n", doc.Title)
	if doc.OriginPath != "" {
		cmd.Printf("Origin:   %s\n", doc.OriginPath)
	}
	if doc.Deleted {
		cmd.Println("Status:   tombstoned")
	}
	cmd.Printf("Updated:  %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	cmd.Println()
	cmd.Println(doc.Content)

	return nil
}
