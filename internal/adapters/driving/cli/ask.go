package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hearsay-labs/hearsay-cli/internal/core/domain"
)

var (
	askTopK   int
	askMode   string
	askWeight float64
	askExpand bool
	askJSON   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [document-id] [query]",
	Short: "Query a processed document",
	Long: `Ranks the document's chunks against the query using hybrid retrieval:
dense embedding similarity fused with lexical term scoring. Results are
cached, so repeating a query is instant until the document changes.

Modes: hybrid (default, 70% dense), vector (dense only), keyword
(lexical only). --weight overrides the mode with an explicit dense
weight in [0,1].`,
	Args: cobra.ExactArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "maximum number of chunks to return (default from config)")
	askCmd.Flags().StringVar(&askMode, "mode", "hybrid", "retrieval mode: hybrid, vector, or keyword")
	askCmd.Flags().Float64Var(&askWeight, "weight", 0, "dense-score weight in [0,1], overrides --mode")
	askCmd.Flags().BoolVar(&askExpand, "context", false, "expand hits with neighbouring chunks")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	documentID, query := args[0], args[1]

	if engine == nil {
		return errors.New("engine not configured")
	}

	mode, err := parseMode(askMode)
	if err != nil {
		return err
	}

	opts := domain.QueryOptions{
		TopK:          askTopK,
		Mode:          mode,
		ExpandContext: askExpand,
	}
	if cmd.Flags().Changed("weight") {
		if askWeight < 0 || askWeight > 1 {
			return fmt.Errorf("weight must be in [0,1], got %v", askWeight)
		}
		w := askWeight
		opts.Weight = &w
	} else if configStore != nil && !cmd.Flags().Changed("mode") {
		// Configured defaults apply only when no flag overrides them.
		if w, ok := configStore.Get("fusion_weight"); ok {
			if f, ok := w.(float64); ok && f >= 0 && f <= 1 {
				opts.Weight = &f
			}
		}
	}
	if !cmd.Flags().Changed("context") && configStore != nil {
		opts.ExpandContext = configStore.GetBool("context_expansion")
	}

	result, err := engine.Query(cmd.Context(), documentID, query, opts)
	if err != nil {
		var notReady *domain.NotReadyError
		if errors.As(err, &notReady) {
			return fmt.Errorf("document %s is not ready yet (state: %s); run process first or wait for it to finish",
				notReady.DocumentID, notReady.State)
		}
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		return outputAskJSON(cmd, result)
	}
	return outputAskText(cmd, result)
}

func parseMode(s string) (domain.SearchMode, error) {
	switch domain.SearchMode(s) {
	case domain.SearchModeHybrid, domain.SearchModeVector, domain.SearchModeKeyword:
		return domain.SearchMode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected hybrid, vector, or keyword)", s)
	}
}

func outputAskJSON(cmd *cobra.Command, result *domain.QueryResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAskText(cmd *cobra.Command, result *domain.QueryResult) error {
	if len(result.Chunks) == 0 {
		cmd.Println("No matching chunks.")
		return nil
	}

	cmd.Printf("Top %d chunks for %q:\n\n", len(result.Chunks), result.Query)
	for i, ranked := range result.Chunks {
		cmd.Printf("  [%d] score %.3f (dense %.3f / lexical %.3f)", i+1, ranked.Score, ranked.DenseScore, ranked.LexicalScore)
		if ranked.Chunk.StartTime > 0 || ranked.Chunk.EndTime > 0 {
			cmd.Printf("  @ %s-%s", ranked.Chunk.StartTime, ranked.Chunk.EndTime)
		}
		cmd.Println()

		text := ranked.Chunk.Text
		if ranked.Context != "" {
			text = ranked.Context
		}
		cmd.Printf("      %s\n\n", text)
	}
	return nil
}
