package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fieldline/iotops/internal/config"
	"github.com/fieldline/iotops/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iotops",
		Short: "IotOps — retrieval-augmented support assistant for IoT fleets",
		Long: "IotOps provisions a Bedrock agent with a device-spec knowledge base\n" +
			"and action handlers, and serves a chat frontend for it.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A .env next to the binary is a convenience for local runs;
			// missing files are fine.
			godotenv.Load()

			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level, "pretty")
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.iotops/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newProvisionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
