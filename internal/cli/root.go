package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docqa/config"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/store"
	"docqa/internal/port"
)

var (
	cfgFile  string
	cfg      *config.Config
	storeDir string

	// collections caches open collection handles for the process lifetime
	// so commands touching the same collection share one BoltDB handle.
	collections = store.NewRegistry()
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Document QA - ingest local documents and answer questions over them",
	Long: `docqa ingests text documents into a local vector collection and answers
questions with hybrid retrieval (embeddings plus lexical ranking) over the
indexed content, citing the source documents.

Example usage:
  docqa ingest ./docs            # Index a directory of documents
  docqa ask "What is covered?"   # Answer a question over the index
  docqa stats                    # Inspect the collection`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			wd, werr := os.Getwd()
			if werr != nil {
				return fmt.Errorf("failed to get working directory: %w", werr)
			}
			cfg, err = config.LoadFromDir(wd)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if storeDir != "" {
			cfg.Store.Dir = storeDir
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		collections.CloseAll()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docqa.yaml)")
	rootCmd.PersistentFlags().StringVar(&storeDir, "store-dir", "", "collection directory (overrides config)")
}

func GetConfig() *config.Config {
	return cfg
}

// openCollection opens the configured collection through the shared
// registry.
func openCollection() (*store.Collection, error) {
	embedder, err := newEmbedder()
	if err != nil {
		return nil, err
	}
	coll, err := collections.Open(cfg.Store.Dir, cfg.Store.Collection, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}
	return coll, nil
}

// newEmbedder builds the configured embedding client.
func newEmbedder() (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "mock":
		return embedding.NewMock(cfg.Embedding.Dimension), nil
	case "ollama":
		return embedding.NewOllama(cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.EmbeddingTimeout()), nil
	case "openai":
		client, err := embedding.NewOpenAI(embedding.Options{
			Model:     cfg.Embedding.Model,
			BaseURL:   cfg.Embedding.BaseURL,
			APIKeyEnv: cfg.Embedding.APIKeyEnv,
			Dimension: cfg.Embedding.Dimension,
			Timeout:   cfg.EmbeddingTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}
}
