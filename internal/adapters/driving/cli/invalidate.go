package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var invalidateCmd = &cobra.Command{
	Use:   "invalidate [document-id]",
	Short: "Evict a document's cached artifacts and index",
	Long: `Drops the document's index and evicts its cached query results and
transcript. Chunk embeddings stay cached by content hash until their
TTL expires, so reprocessing unchanged text stays cheap. The document
must be processed again before it can answer queries.`,
	Args: cobra.ExactArgs(1),
	RunE: runInvalidate,
}

func init() {
	rootCmd.AddCommand(invalidateCmd)
}

func runInvalidate(cmd *cobra.Command, args []string) error {
	documentID := args[0]

	if engine == nil {
		return errors.New("engine not configured")
	}

	if err := engine.Invalidate(cmd.Context(), documentID); err != nil {
		return fmt.Errorf("invalidate failed: %w", err)
	}

	cmd.Printf("Document %s invalidated.\n", documentID)
	return nil
}
