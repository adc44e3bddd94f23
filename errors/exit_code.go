package errors

import (
	"os"

	"github.com/cockroachdb/errors"
)

// OsExit is a variable for testing, so we can mock os.Exit.
var OsExit = os.Exit

// Exit codes returned by the CLI.
const (
	ExitCodeGeneric    = 1
	ExitCodeValidation = 2
	ExitCodeCloud      = 3
)

// exitCoder wraps an error and specifies an exit code.
type exitCoder struct {
	cause error
	code  int
}

func (e *exitCoder) Error() string {
	return e.cause.Error()
}

func (e *exitCoder) Cause() error {
	return e.cause
}

func (e *exitCoder) Unwrap() error {
	return e.cause
}

// ExitCode returns the exit code.
func (e *exitCoder) ExitCode() int {
	return e.code
}

// WithExitCode attaches an exit code to an error.
func WithExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &exitCoder{
		cause: err,
		code:  code,
	}
}

// GetExitCode extracts the exit code from an error chain.
//
// It checks, in order:
//  1. An exit code attached with WithExitCode.
//  2. Validation and unknown-type errors map to ExitCodeValidation.
//  3. Unsupported cloud, metadata and backend errors map to ExitCodeCloud.
//  4. Default to ExitCodeGeneric.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	var ec *exitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}

	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrUnknownParameterType):
		return ExitCodeValidation
	case errors.Is(err, ErrUnsupportedCloud), errors.Is(err, ErrMetadataUnavailable), errors.Is(err, ErrBackend):
		return ExitCodeCloud
	}

	return ExitCodeGeneric
}
