package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection statistics",
	Long: `Print the chunk count, embedding model and dimension, and a small
sample of stored entries for the configured collection.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	coll, err := openCollection()
	if err != nil {
		return err
	}

	stats, err := coll.Stats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	if statsJSON {
		output, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Collection:      %s\n", cfg.Store.Collection)
	fmt.Printf("Path:            %s\n", coll.Path())
	fmt.Printf("Total chunks:    %d\n", stats.TotalChunks)
	fmt.Printf("Embedding model: %s (%d dims)\n", stats.EmbeddingModel, stats.EmbeddingDim)
	if len(stats.MetadataFields) > 0 {
		fmt.Printf("Metadata fields: %s\n", strings.Join(stats.MetadataFields, ", "))
	}
	if len(stats.SampleIDs) > 0 {
		fmt.Println("Sample entries:")
		for _, id := range stats.SampleIDs {
			fmt.Printf("  %s\n", id)
		}
	}
	return nil
}
