package commands

import (
	"timetracker/internal/models/clconfig"

	"github.com/spf13/cobra"
)

var exampleSystem bool

var exampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Crée un fichier de configuration exemple",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := configFile
		if exampleSystem {
			filename = "/etc/"
		}
		_, err := clconfig.CreateExample(true, filename)
		return err
	},
}

func init() {
	exampleCmd.Flags().BoolVar(&exampleSystem, "system", false, "exemple de production dans /etc/timetracker/config.yaml")
}
