package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"timetracker/internal/models/cltimer"
	"timetracker/internal/models/cltracker"

	"github.com/spf13/cobra"
)

var (
	trackDuration time.Duration
	trackInterval int
	trackTick     time.Duration
)

var trackCmd = &cobra.Command{
	Use:   "track [url]",
	Short: "Simule un visiteur: envoie le temps actif au serveur",
	Long: `track ouvre une session sur le serveur, puis envoie le temps actif toutes les
--interval secondes comme le ferait la page, et une dernière fois à l'arrêt
(fin de --duration ou Ctrl+C).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if trackDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, trackDuration)
			defer cancel()
		}

		reporter, err := cltimer.NewReporter(args[0])
		if err != nil {
			return err
		}
		if err := reporter.Bootstrap(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %s\n", reporter.SessionID())

		timer := cltimer.NewTimer(time.Now(), trackInterval)
		elapsed := reporter.Run(ctx, timer, trackTick)
		fmt.Fprintf(cmd.OutOrStdout(), "Temps actif %s\n", cltracker.FormatHMS(elapsed))
		return nil
	},
}

func init() {
	trackCmd.Flags().DurationVarP(&trackDuration, "duration", "d", 0, "durée de la visite, illimitée par défaut")
	trackCmd.Flags().IntVarP(&trackInterval, "interval", "i", 30, "secondes entre deux envois")
	trackCmd.Flags().DurationVar(&trackTick, "tick", time.Second, "période du timer")
}
