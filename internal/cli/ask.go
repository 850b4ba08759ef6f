package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docqa/internal/adapter/llm"
	"docqa/internal/adapter/retriever"
	"docqa/internal/usecase"
)

var (
	askJSON     bool
	askNoExpand bool
	askTopK     int
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question over the indexed documents",
	Long: `Expand the question into variants, retrieve relevant chunks with hybrid
search, and synthesize an answer with source citations.

Examples:
  docqa ask "What topics are covered in the lectures?"
  docqa ask "How is billing handled?" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.Flags().BoolVar(&askNoExpand, "no-expand", false, "disable query expansion")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "retrieval depth per question (default from config)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	question := strings.Join(args, " ")

	coll, err := openCollection()
	if err != nil {
		return err
	}

	if !coll.Exists() {
		return fmt.Errorf("no documents indexed. Run 'docqa ingest' first")
	}

	model, err := llm.New(llm.Options{
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		APIKeyEnv:   cfg.LLM.APIKeyEnv,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLMTimeout(),
	})
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}

	hybrid := retriever.NewHybrid(coll, retriever.Options{
		ScoreThreshold: cfg.Retrieve.ScoreThreshold,
		VectorWeight:   cfg.Retrieve.VectorWeight,
		RRFK:           cfg.Retrieve.RRFK,
	})

	var expander *retriever.Expander
	if !askNoExpand {
		expander = retriever.NewExpander(model)
	}

	topK := cfg.Retrieve.TopK
	if askTopK > 0 {
		topK = askTopK
	}

	answerer := newAnswerer(hybrid, expander, model, cfg.Store.Collection, topK)
	answer := answerer.Answer(question)

	if askJSON {
		output, _ := json.MarshalIndent(answer, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, s := range answer.Sources {
			fmt.Printf("  - %s (chunk %d)\n", s.DocumentName, s.ChunkNumber)
		}
	}
	return nil
}

// newAnswerer keeps the nil expander typed as the interface, not a nil
// pointer wrapped in a non-nil interface value.
func newAnswerer(hybrid *retriever.Hybrid, expander *retriever.Expander, model *llm.Client, collection string, topK int) *usecase.Answerer {
	if expander == nil {
		return usecase.NewAnswerer(hybrid, nil, model, collection, topK)
	}
	return usecase.NewAnswerer(hybrid, expander, model, collection, topK)
}
