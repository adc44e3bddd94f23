package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudposse/runtime-init/cmd"
	errUtils "github.com/cloudposse/runtime-init/errors"
	log "github.com/cloudposse/runtime-init/pkg/logger"
)

func main() {
	// Use errUtils.OsExit to allow test interception.
	errUtils.OsExit(run())
}

// run executes the main application logic and returns an exit code.
// This separation allows proper cleanup via defer before os.Exit in main().
func run() int {
	defer cmd.Cleanup()

	// Cancel in-flight lookups on SIGINT/SIGTERM; the resolver returns the context error.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	if err != nil {
		// Format and print error using centralized formatter.
		formatted := errUtils.Format(err, errUtils.DefaultFormatterConfig())
		os.Stderr.WriteString(formatted + "\n")

		exitCode := errUtils.GetExitCode(err)
		log.Debug("Exiting with exit code", "code", exitCode)
		return exitCode
	}

	return 0
}
