package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docqa/config"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/docdb"
	"docqa/internal/adapter/fs"
	"docqa/internal/usecase"
)

var (
	ingestRecreate bool
	ingestQuiet    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Index documents from a directory",
	Long: `Walk a directory, split every supported document (.txt, .md, .csv, .vtt,
.srt) into chunks, embed them, and write them to the local collection.

Re-running ingest over unchanged files is a no-op; only new content is
embedded and written.

Examples:
  docqa ingest ./docs
  docqa ingest ./docs --recreate   # rebuild from scratch if the write fails`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestRecreate, "recreate", false, "on write failure, drop and rebuild the collection (destructive)")
	ingestCmd.Flags().BoolVarP(&ingestQuiet, "quiet", "q", false, "suppress the progress bar")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("cannot read %s: %w", root, err)
	}

	coll, err := openCollection()
	if err != nil {
		return err
	}

	docs, err := docdb.NewSQLiteStore(config.DocumentDBPath(cfg.Store.Dir))
	if err != nil {
		return fmt.Errorf("failed to open document db: %w", err)
	}
	defer docs.Close()

	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	split := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	ingest := usecase.NewIngest(walker, split, coll, docs, cfg.Embedding.Model)

	opts := usecase.IngestOptions{
		Recreate:     ingestRecreate,
		MaxFileBytes: cfg.MaxFileBytes(),
	}

	var bar *progressbar.ProgressBar
	if !ingestQuiet {
		opts.Progress = func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionEnableColorCodes(true),
					progressbar.OptionShowBytes(false),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
					progressbar.OptionOnCompletion(func() {
						fmt.Println()
					}),
				)
			}
			bar.Set(done)
		}
	}

	result, err := ingest.Run(root, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d files (%d chunks) in %s\n",
		result.FilesIngested, result.ChunksIndexed, result.Duration.Round(time.Millisecond))
	if result.FilesSkipped > 0 {
		fmt.Printf("Skipped %d unsupported files\n", result.FilesSkipped)
	}
	if result.FilesFailed > 0 {
		fmt.Printf("Failed %d files:\n", result.FilesFailed)
		for _, e := range result.Errors {
			fmt.Printf("  %s\n", e)
		}
	}
	return nil
}
