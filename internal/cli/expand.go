package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docqa/internal/adapter/llm"
	"docqa/internal/adapter/retriever"
)

var expandCmd = &cobra.Command{
	Use:   "expand <question>",
	Short: "Show the expanded variants of a question",
	Long: `Run query expansion only, printing the question variants that 'ask'
would retrieve with. Useful for tuning prompts and inspecting model
behavior.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExpand,
}

func init() {
	rootCmd.AddCommand(expandCmd)
}

func runExpand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	question := strings.Join(args, " ")

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

	for i, q := range retriever.NewExpander(model).Expand(question) {
		fmt.Printf("%d. %s\n", i+1, q)
	}
	return nil
}
