// Package cli wires the command-line interface for the genai service.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/petclinic/genai-service/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	logStyle string

	// loaded at init time
	log *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genai",
		Short: "PetClinic GenAI service, a conversational assistant for the clinic",
		Long: "genai is the Spring PetClinic GenAI service: a conversational assistant that " +
			"answers questions about vets and owners and performs clinic actions through the " +
			"customers and vets services.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level, logStyle)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, fatal, silent)")
	cmd.PersistentFlags().StringVar(&logStyle, "log-style", "", "log style (pretty, json)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newChatCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
