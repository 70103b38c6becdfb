package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tokensage/tokensage/internal/daemon"
	"github.com/tokensage/tokensage/internal/domain"
)

func init() {
	predictCmd.Flags().StringVar(&predictFile, "file", "", "Predict from a JSON definition file instead of a stored engine")
	predictCmd.Flags().StringVar(&predictUser, "user", "", "Scope the prediction to this user")
	rootCmd.AddCommand(predictCmd)
}

var (
	predictFile string
	predictUser string
)

var predictCmd = &cobra.Command{
	Use:   "predict [engine-id]",
	Short: "Predict token usage for an engine",
	Long: `Predict how many tokens one run of an engine will consume.

With an engine-id argument the stored definition is used; with --file a
local JSON definition is predicted without registering it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPredict,
}

func runPredict(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := context.Background()

	var engine *domain.Engine
	switch {
	case predictFile != "":
		engine, err = readEngineFile(predictFile)
		if err != nil {
			return err
		}
	case len(args) == 1:
		engine, err = d.DB.GetEngine(ctx, args[0])
		if err != nil {
			return err
		}
		if engine == nil {
			return fmt.Errorf("%w: %s", domain.ErrEngineNotFound, args[0])
		}
	default:
		return fmt.Errorf("provide an engine-id or --file")
	}

	prediction := d.Predictor.Predict(ctx, engine, predictUser)
	return printJSON(prediction)
}
