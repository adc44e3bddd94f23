package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	errUtils "github.com/cloudposse/runtime-init/errors"
	"github.com/cloudposse/runtime-init/pkg/env"
	log "github.com/cloudposse/runtime-init/pkg/logger"
)

var (
	errNoCommandSpecified = errors.New("no command specified")
	errCommandNotFound    = errors.New("command not found")
	errSubcommandFailed   = errors.New("command failed")
)

var execCmd = &cobra.Command{
	Use:   "exec -- <command> [args...]",
	Short: "Run a command with the resolved runtime parameters in its environment",
	Long: "Resolve the declaration and run a command with every resolved parameter exported as an environment variable. " +
		"Use `--` to separate runtime-init flags from the command's own arguments.",
	Example: `  # Start a service with its secrets in the environment
  runtime-init exec --config runtime-init.yaml -- /usr/local/bin/app serve`,
	Args: cobra.MinimumNArgs(1),
	RunE: executeExecCommand,
}

func init() {
	execCmd.Flags().Bool("uppercase", false, "Convert parameter names to uppercase")
	execCmd.Flags().String("prefix", "", "Prefix prepended to every parameter name")
	RootCmd.AddCommand(execCmd)
}

func executeExecCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errNoCommandSpecified
	}

	uppercase, _ := cmd.Flags().GetBool("uppercase")
	prefix, _ := cmd.Flags().GetString("prefix")

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
	values = env.TransformKeys(values, opts...)

	return executeCommandWithEnv(args, env.MergeSystemEnv(values))
}

// executeCommandWithEnv runs args with environ, wired to this process's stdio.
// A non-zero exit status is returned with the same exit code.
func executeCommandWithEnv(args []string, environ []string) error {
	cmdPath, err := exec.LookPath(args[0])
	if err != nil {
		return errUtils.Build(fmt.Errorf(errUtils.ErrWrapFormat, errCommandNotFound, err)).
			WithContext("command", args[0]).
			Err()
	}

	log.Debug("Executing command", "command", cmdPath, "args", args[1:])

	execCmd := exec.Command(cmdPath, args[1:]...)
	execCmd.Env = environ
	execCmd.Stdin = os.Stdin
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr

	if err := execCmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return errUtils.WithExitCode(fmt.Errorf(errUtils.ErrWrapFormat, errSubcommandFailed, err), exitErr.ExitCode())
		}
		return fmt.Errorf(errUtils.ErrWrapFormat, errSubcommandFailed, err)
	}

	return nil
}
