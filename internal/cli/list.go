package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tokensage/tokensage/internal/daemon"
)

func init() {
	listCmd.Flags().StringVar(&listUser, "user", "", "Only list engines owned by this user")
	rootCmd.AddCommand(listCmd)
}

var listUser string

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered engines",
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	engines, err := d.DB.ListEngines(context.Background(), listUser)
	if err != nil {
		return err
	}

	if len(engines) == 0 {
		fmt.Println("No engines registered. Run 'tokensage create <engine.json>' to get started.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIER\tNODES\tCREATED")
	for _, e := range engines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			e.ID,
			e.Name,
			e.EffectiveTier(),
			len(e.Nodes),
			e.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}
