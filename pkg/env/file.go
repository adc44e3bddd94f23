package env

import (
	"os"

	"github.com/cockroachdb/errors"

	errUtils "github.com/cloudposse/runtime-init/errors"
)

// defaultFileMode keeps resolved secrets readable by the owner only.
const defaultFileMode = 0o600

// WriteToFile writes content to path, replacing any previous content.
// With appendMode set the content is appended instead.
func WriteToFile(path string, content string, appendMode bool) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	f, err := os.OpenFile(path, flags, defaultFileMode)
	if err != nil {
		return errUtils.Build(errors.Wrapf(errUtils.ErrWriteOutput, "open %s: %v", path, err)).
			WithContext("path", path).
			Err()
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return errUtils.Build(errors.Wrapf(errUtils.ErrWriteOutput, "write %s: %v", path, err)).
			WithContext("path", path).
			Err()
	}

	return nil
}
