package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	processID       string
	processLanguage string
	processAudio    bool
)

var processCmd = &cobra.Command{
	Use:   "process [path]",
	Short: "Chunk and index a transcript",
	Long: `Reads a transcript file, splits it into chunks along semantic
boundaries, embeds each chunk, and builds the hybrid index for the
document. With --audio the file is transcribed first via Whisper;
transcriptions are cached, so reprocessing the same recording is free.

Reprocessing an unchanged transcript is a no-op. A changed transcript
rebuilds the index and drops the document's cached query results.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVar(&processID, "id", "", "document identifier (default: file name without extension)")
	processCmd.Flags().StringVar(&processLanguage, "language", "", "ISO 639-1 transcript language (default: en)")
	processCmd.Flags().BoolVar(&processAudio, "audio", false, "treat the path as an audio file and transcribe it first")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	path := args[0]

	if engine == nil {
		return errors.New("engine not configured")
	}

	documentID := processID
	if documentID == "" {
		base := filepath.Base(path)
		documentID = strings.TrimSuffix(base, filepath.Ext(base))
	}

	ctx := cmd.Context()

	if processAudio {
		state, err := engine.ProcessAudio(ctx, documentID, path)
		if err != nil {
			return fmt.Errorf("process audio failed (state %s): %w", state, err)
		}
		cmd.Printf("Document %s: %s\n", documentID, state)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	state, err := engine.Process(ctx, documentID, string(data), processLanguage)
	if err != nil {
		return fmt.Errorf("process failed (state %s): %w", state, err)
	}

	cmd.Printf("Document %s: %s\n", documentID, state)
	return nil
}
