// Package cli implements the command-line interface for Hearsay.
//
// Commands are thin adapters: they parse flags, call the engine through
// its driving port, and format the result. Wiring happens in main, which
// injects the engine and config store before Execute runs.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/hearsay-labs/hearsay-cli/internal/core/ports/driven"
	"github.com/hearsay-labs/hearsay-cli/internal/core/ports/driving"
	"github.com/hearsay-labs/hearsay-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

// Injected services.
var (
	engine      driving.Engine
	configStore driven.ConfigStore
)

// SetEngine injects the retrieval engine used by the commands.
func SetEngine(e driving.Engine) {
	engine = e
}

// SetConfigStore injects the configuration store.
func SetConfigStore(s driven.ConfigStore) {
	configStore = s
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "hearsay",
	Short: "Turn transcripts into a queryable knowledge base",
	Long: `Hearsay ingests transcripts (or audio, via Whisper), chunks them along
semantic boundaries, and builds a per-document hybrid index combining
dense embeddings with lexical scoring. Queries rank chunks by a fused
score and answers are cached across invocations.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
