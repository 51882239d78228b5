package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"timetracker/internal/clserver"
	"timetracker/internal/models/clconfig"
	"timetracker/internal/models/cltimetracker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Démarre le serveur web et la remise à zéro quotidienne",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return withApp(ctx, func(app *cltimetracker.Timetracker) error {
		clconfig.DisplayConfiguration(app.Configuration, version)

		if templatesFS == nil || staticFS == nil {
			return fmt.Errorf("ressources embarquées absentes")
		}
		r, err := clserver.New(app, templatesFS, staticFS)
		if err != nil {
			return err
		}

		if err := app.Scheduler.Start(); err != nil {
			return err
		}

		// withApp arrête ensuite la remise à zéro puis ferme la base
		err = clserver.Run(ctx, r, app.Configuration.Listen.Website)
		log.Info().Msg("Serveur arrêté")
		return err
	})
}
