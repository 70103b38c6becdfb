package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tokensage/tokensage/internal/daemon"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats <user-id>",
	Short: "Show a user's aggregated token usage",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	stats := d.Predictor.UserStats(context.Background(), args[0])

	fmt.Printf("User %s\n", args[0])
	fmt.Printf("  Executions:    %d\n", stats.ExecutionCount)
	fmt.Printf("  Total tokens:  %d\n", stats.TotalTokens)
	fmt.Printf("  Avg per run:   %d\n", stats.AveragePerExecution)
	if !stats.LastExecution.IsZero() {
		fmt.Printf("  Last run:      %s\n", stats.LastExecution.Format("2006-01-02 15:04"))
	}
	return nil
}
