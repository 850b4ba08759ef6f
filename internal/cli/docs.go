package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docqa/config"
	"docqa/internal/adapter/docdb"
)

var docsJSON bool

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List ingested documents and their status",
	RunE:  runDocs,
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.Flags().BoolVar(&docsJSON, "json", false, "output as JSON")
}

func runDocs(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	docs, err := docdb.NewSQLiteStore(config.DocumentDBPath(cfg.Store.Dir))
	if err != nil {
		return fmt.Errorf("failed to open document db: %w", err)
	}
	defer docs.Close()

	records, err := docs.List()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if docsJSON {
		output, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(records) == 0 {
		fmt.Println("No documents ingested.")
		return nil
	}
	for _, r := range records {
		line := fmt.Sprintf("%-10s %4d chunks  %s", r.Status, r.ChunkCount, r.Path)
		if r.Error != "" {
			line += fmt.Sprintf("  (%s)", r.Error)
		}
		fmt.Println(line)
	}
	return nil
}
