// Package cli holds the ventanilla command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/civica/ventanilla/internal/config"
	"github.com/civica/ventanilla/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded in the persistent pre-run
	cfg config.Config
	log *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ventanilla",
		Short: "Ventanilla digital de atencion ciudadana",
		Long: "Ventanilla is the conversational front door for municipal services: " +
			"it classifies citizen messages, routes them through per-domain flows, " +
			"and files trackable cases.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				path = "ventanilla.yaml"
			}
			var err error
			cfg, err = config.Load(path)
			if err != nil {
				return err
			}
			level := logLevel
			if level == "" {
				level = cfg.Logging.Level
			}
			log = logging.New(logging.Options{Level: level, Style: cfg.Logging.Style})
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ventanilla.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newTicketCmd())
	cmd.AddCommand(newCuentaCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
