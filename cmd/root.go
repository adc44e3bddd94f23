package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	cfg "github.com/cloudposse/runtime-init/pkg/config"
	log "github.com/cloudposse/runtime-init/pkg/logger"
	"github.com/cloudposse/runtime-init/pkg/schema"
)

// logCloser releases the log file opened by the last configureLogger call.
var logCloser io.Closer

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "runtime-init",
	Short: "Resolve runtime parameters from cloud secrets and instance metadata",
	Long: `runtime-init reads a declaration of runtime parameters and resolves each one from a static value, ` +
		`a cloud secret store (AWS Secrets Manager or SSM Parameter Store, Azure Key Vault, Google Secret Manager) ` +
		`or the instance metadata service, then prints or exports the result.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Do not silence usage when help is invoked.
		if cmd.Name() == "help" || cmd.Flags().Changed("help") {
			cmd.SilenceUsage = false
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command with ctx. This is called by main.main().
func Execute(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}

// Cleanup releases resources held across the command run.
func Cleanup() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

func init() {
	RootCmd.PersistentFlags().StringP("config", "c", "", "Path to the runtime-init declaration file (YAML or JSON). "+
		"Defaults to runtime-init.yaml in /etc/runtime-init, ~/.runtime-init or the current directory")
	RootCmd.PersistentFlags().String("logs-level", "", "Logs level. Supported log levels are Trace, Debug, Info, Warning, Error, Off")
	RootCmd.PersistentFlags().String("logs-file", "", "The file to write logs to. Logs can be written to any file or to '/dev/stdout' and '/dev/stderr'")
}

// loadConfiguration loads the declaration honoring the persistent flags and
// configures logging from its settings.
func loadConfiguration(cmd *cobra.Command) (schema.Configuration, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	logsLevel, _ := flags.GetString("logs-level")
	logsFile, _ := flags.GetString("logs-file")

	config, err := cfg.LoadConfig(cfg.LoadOptions{
		ConfigPath: configPath,
		LogsLevel:  logsLevel,
		LogsFile:   logsFile,
	})
	if err != nil {
		return config, err
	}

	if err := configureLogger(config.Settings.Logs); err != nil {
		return config, err
	}

	return config, nil
}

func configureLogger(logs schema.Logs) error {
	level, err := log.ParseLogLevel(logs.Level)
	if err != nil {
		return err
	}

	Cleanup()
	closer, err := log.Configure(level, logs.File)
	if err != nil {
		return err
	}
	logCloser = closer

	log.Debug("Configured logging", "level", level, "file", logs.File)
	return nil
}
