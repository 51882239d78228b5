package commands

import (
	"context"
	"fmt"
	"io/fs"

	"timetracker/internal/models/clconfig"
	"timetracker/internal/models/cllog"
	"timetracker/internal/models/cltimetracker"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	buildID = ""

	configFile  string
	templatesFS fs.FS
	staticFS    fs.FS
)

var rootCmd = &cobra.Command{
	Use:   "timetracker",
	Short: "Suivi du temps passé par session et par utilisateur",
	Long: `timetracker mesure le temps actif passé sur un site: un timer côté navigateur
envoie régulièrement sa valeur, le serveur la conserve par session et remet
les compteurs à zéro chaque jour.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// SetVersion fixe la version affichée
func SetVersion(v, b string) {
	version = v
	buildID = b
	if buildID == "" {
		buildID = v
	}
}

// SetAssets fournit les templates et ressources embarqués
func SetAssets(templates fs.FS, static fs.FS) {
	templatesFS = templates
	staticFS = static
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "timetracker.yaml", "Fichier de configuration YAML")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(exampleCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfiguration crée un exemple si le fichier est absent, le charge puis
// initialise le logger.
func loadConfiguration() (*clconfig.Config, error) {
	if _, err := clconfig.CreateExample(false, configFile); err != nil {
		return nil, err
	}

	conf, err := clconfig.LoadAndValidate(configFile)
	if err != nil {
		return nil, err
	}

	cllog.InitLogger(conf.Logger, conf.Production)
	return conf, nil
}

// withApp charge la configuration et ouvre les connexions le temps de fn
func withApp(ctx context.Context, fn func(*cltimetracker.Timetracker) error) error {
	conf, err := loadConfiguration()
	if err != nil {
		return err
	}

	app, err := cltimetracker.Init(ctx, conf, version, buildID)
	if err != nil {
		return fmt.Errorf("initialisation: %w", err)
	}
	defer app.Close()

	return fn(app)
}
