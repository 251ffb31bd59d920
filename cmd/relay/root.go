package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Veil Relay - privacy-guarding conversational relay",
	Long: `Veil Relay keeps personal data out of model backends.

Every user message is scanned for PII (emails, phone numbers, SSNs,
credit cards, names, addresses) and masked with typed placeholders
before it is added to the conversation or sent to the model. The
backend only ever sees masked text.

The relay speaks to a local OpenAI-compatible endpoint (Ollama,
llama.cpp, vLLM) or a hosted Azure-style deployment, keeps per-session
transcripts, and records masked turns for audit.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
