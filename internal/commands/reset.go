package commands

import (
	"fmt"

	"timetracker/internal/models/cltimetracker"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remet immédiatement tous les compteurs à zéro",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(app *cltimetracker.Timetracker) error {
			deleted, err := app.Scheduler.RunNow(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %d session(s) remise(s) à zéro\n", deleted)
			return nil
		})
	},
}
