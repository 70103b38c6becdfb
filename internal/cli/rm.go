package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tokensage/tokensage/internal/daemon"
)

func init() {
	rootCmd.AddCommand(rmCmd)
}

var rmCmd = &cobra.Command{
	Use:   "rm <engine-id>",
	Short: "Remove an engine and its execution history",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

func runRm(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.DB.DeleteEngine(context.Background(), args[0]); err != nil {
		return err
	}

	fmt.Printf("Removed engine %s\n", args[0])
	return nil
}
