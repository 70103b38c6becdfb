package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tokensage/tokensage/internal/daemon"
)

func init() {
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create <engine.json>",
	Short: "Register an engine from a JSON definition file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	engine, err := readEngineFile(args[0])
	if err != nil {
		return err
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.DB.UpsertEngine(context.Background(), *engine); err != nil {
		return err
	}

	fmt.Printf("Registered engine %s (%s, %d nodes)\n", engine.ID, engine.Name, len(engine.Nodes))
	return nil
}
