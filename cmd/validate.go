package cmd

import (
	"github.com/spf13/cobra"

	log "github.com/cloudposse/runtime-init/pkg/logger"
	"github.com/cloudposse/runtime-init/pkg/resolver"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the declaration without contacting any cloud",
	Long:  "Load the declaration and check every runtime parameter: known type, non-empty unique name and the provider block its type needs.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfiguration(cmd)
		if err != nil {
			return err
		}

		if err := resolver.Validate(config.RuntimeParameters); err != nil {
			return err
		}

		log.Info("Declaration is valid", "parameters", len(config.RuntimeParameters))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(validateCmd)
}
