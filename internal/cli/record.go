package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tokensage/tokensage/internal/daemon"
	"github.com/tokensage/tokensage/internal/domain"
)

func init() {
	recordCmd.Flags().StringVar(&recordUser, "user", "", "User the execution ran for")
	recordCmd.Flags().StringVar(&recordStatus, "status", "completed", "Execution status")
	rootCmd.AddCommand(recordCmd)
}

var (
	recordUser   string
	recordStatus string
)

var recordCmd = &cobra.Command{
	Use:   "record <engine-id> <tokens-used>",
	Short: "Record an engine execution's token usage",
	Args:  cobra.ExactArgs(2),
	RunE:  runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	var tokens int
	if _, err := fmt.Sscanf(args[1], "%d", &tokens); err != nil {
		return fmt.Errorf("tokens-used must be an integer: %w", err)
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	rec := domain.ExecutionRecord{
		EngineID:   args[0],
		UserID:     recordUser,
		TokensUsed: tokens,
		Status:     recordStatus,
	}
	if err := d.DB.InsertExecution(context.Background(), rec); err != nil {
		return err
	}

	fmt.Printf("Recorded %d tokens for engine %s\n", tokens, args[0])
	return nil
}
