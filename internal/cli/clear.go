package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var clearForce bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the collection",
	Long: `Delete the configured collection from disk. Document metadata records
are kept; re-run 'docqa ingest' to rebuild the index.`,
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolVarP(&clearForce, "force", "f", false, "skip the confirmation prompt")
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	if !clearForce {
		fmt.Printf("Delete collection %q in %s? [y/N] ", cfg.Store.Collection, cfg.Store.Dir)
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	coll, err := openCollection()
	if err != nil {
		return err
	}

	if err := coll.Clear(); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	collections.Invalidate(cfg.Store.Dir, cfg.Store.Collection)
	fmt.Printf("Deleted collection %q\n", cfg.Store.Collection)
	return nil
}
