package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hearsay-labs/hearsay-cli/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status [document-id]",
	Short: "Show a document's processing state",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	documentID := args[0]

	if engine == nil {
		return errors.New("engine not configured")
	}

	state, err := engine.State(documentID)
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	cmd.Printf("Document %s: %s\n", documentID, state)

	if state == domain.StateFailed {
		if reason := engine.FailureReason(documentID); reason != nil {
			cmd.Printf("Failure: %v\n", reason)
		}
		cmd.Println("Run process again to retry.")
	}
	return nil
}
