package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	errUtils "github.com/cloudposse/runtime-init/errors"
	"github.com/cloudposse/runtime-init/pkg/cloud"
	"github.com/cloudposse/runtime-init/pkg/env"
	log "github.com/cloudposse/runtime-init/pkg/logger"
	"github.com/cloudposse/runtime-init/pkg/resolver"
	"github.com/cloudposse/runtime-init/pkg/schema"
)

// newProviderFactory builds the cloud client factory. Tests replace it.
var newProviderFactory = func(settings *schema.Settings) resolver.ProviderFactory {
	return cloud.NewFactory(settings)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve runtime parameters and print them",
	Long: `Resolve every runtime parameter of the declaration and print the result. Secret and metadata ` +
		`parameters that resolve to an empty value are left out; static parameters are always printed.`,
	Example: `  # Print a dotenv file
  runtime-init resolve --config runtime-init.yaml

  # Write shell exports to a file
  runtime-init resolve --format bash --output-file /etc/profile.d/runtime.sh`,
	Args: cobra.NoArgs,
	RunE: executeResolveCommand,
}

func init() {
	resolveCmd.Flags().StringP("format", "f", string(env.FormatDotenv), "Output format: env, dotenv, bash, json, yaml")
	resolveCmd.Flags().StringP("output-file", "o", "", "Write the output to this file instead of stdout")
	resolveCmd.Flags().Bool("append", false, "Append to --output-file instead of replacing it")
	resolveCmd.Flags().Bool("uppercase", false, "Convert parameter names to uppercase")
	resolveCmd.Flags().String("prefix", "", "Prefix prepended to every parameter name")
	RootCmd.AddCommand(resolveCmd)
}

func executeResolveCommand(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	formatFlag, _ := flags.GetString("format")
	outputFile, _ := flags.GetString("output-file")
	appendMode, _ := flags.GetBool("append")
	uppercase, _ := flags.GetBool("uppercase")
	prefix, _ := flags.GetString("prefix")

	format, err := env.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

	config, err := loadConfiguration(cmd)
	if err != nil {
		return err
	}

	values, err := resolveParameters(cmd.Context(), &config)
	if err != nil {
		return err
	}

	opts := []env.Option{env.WithPrefix(prefix)}
	if uppercase {
		opts = append(opts, env.WithUppercase())
	}
	output, err := env.FormatData(values, format, opts...)
	if err != nil {
		return err
	}

	if outputFile != "" {
		if err := env.WriteToFile(outputFile, output, appendMode); err != nil {
			return err
		}
		log.Info("Wrote runtime parameters", "file", outputFile, "count", len(values))
		return nil
	}

	if _, err := fmt.Fprint(cmd.OutOrStdout(), output); err != nil {
		return fmt.Errorf(errUtils.ErrWrapFormat, errUtils.ErrWriteOutput, err)
	}
	return nil
}

// resolveParameters runs the resolver over the loaded declaration.
func resolveParameters(ctx context.Context, config *schema.Configuration) (map[string]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	factory := newProviderFactory(&config.Settings)
	if closer, ok := factory.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Debug("Failed to release cloud clients", "error", err)
			}
		}()
	}

	client := resolver.New(factory, resolver.WithSettings(&config.Settings))

	log.Debug("Resolving runtime parameters", "count", len(config.RuntimeParameters))
	values, err := client.ResolveRuntimeParameters(ctx, config.RuntimeParameters)
	if err != nil {
		return nil, err
	}
	log.Debug("Resolved runtime parameters", "resolved", len(values), "declared", len(config.RuntimeParameters))

	return values, nil
}
