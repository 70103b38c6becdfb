// Package cli implements the tokensage command-line interface using Cobra.
// Each subcommand maps to one service capability (serve, predict, record,
// stats, etc.).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tokensage",
	Short: "tokensage — Predict token usage for AI engines",
	Long: `tokensage estimates how many tokens an AI engine (a graph of model
calls) will consume, from its own execution history when available and
from structurally similar engines otherwise.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
