package errors

import (
	"github.com/cockroachdb/errors"
)

const (
	// ErrWrapFormat wraps a sentinel error with its underlying cause.
	ErrWrapFormat = "%w: %w"
	// ErrWrapWithIDFormat wraps a sentinel error with an identifier and its underlying cause.
	ErrWrapWithIDFormat = "%w %s: %w"
)

// Resolution taxonomy. Callers match these with errors.Is; the messages of the
// marked errors are never rewritten.
var (
	// ErrValidation is returned when a required identifier or field is missing or malformed.
	ErrValidation = errors.New("validation error")

	// ErrUnsupportedCloud is returned when a cloud environment name is not one of aws, azure or gcp.
	ErrUnsupportedCloud = errors.New("Unsupported cloud")

	// ErrUnknownParameterType is returned when a runtime parameter type is not secret, metadata or static.
	ErrUnknownParameterType = errors.New("Runtime parameter type is unknown")

	// ErrMetadataUnavailable is returned when instance identity or metadata cannot be read or parsed.
	ErrMetadataUnavailable = errors.New("instance metadata unavailable")

	// ErrBackend is returned when a secrets or metadata backend rejects a call.
	ErrBackend = errors.New("backend error")
)

// Validation messages.
var (
	ErrSecretIDMissing       = errors.New("secret id is missing")
	ErrVaultURLMissing       = errors.New("vault url is missing")
	ErrParameterNameMissing  = errors.New("runtime parameter name is missing")
	ErrDuplicateParameter    = errors.New("duplicate runtime parameter name")
	ErrSecretProviderMissing = errors.New("secretProvider is required for secret parameters")
	ErrMetadataProvider      = errors.New("metadataProvider is required for metadata parameters")
	ErrUnknownMetadataType   = errors.New("metadata type is unknown")
	ErrUnknownMetadataField  = errors.New("metadata field is unknown")
	ErrUnknownSecretBackend  = errors.New("secret backend type is unknown")
)

// Infrastructure errors.
var (
	ErrHTTPRequestFailed = errors.New("HTTP request failed")
	ErrHTTPNotFound      = errors.New("HTTP resource not found")
	ErrLoadAWSConfig     = errors.New("failed to load AWS config")
	ErrAssumeRole        = errors.New("failed to assume role")
	ErrCreateClient      = errors.New("failed to create client")
	ErrNotInitialized    = errors.New("cloud client is not initialized, call Init first")
	ErrParseIdentity     = errors.New("failed to parse instance identity document")
	ErrLoadConfig        = errors.New("failed to load configuration")
	ErrDecodeParameters  = errors.New("failed to decode runtime parameters")
	ErrInvalidLogLevel   = errors.New("invalid log level")
	ErrInvalidFormat     = errors.New("invalid output format")
	ErrWriteOutput       = errors.New("failed to write output")
	ErrMaxElapsedTime    = errors.New("retry timeout exceeded")
)

// MarkMetadataUnavailable tags err as ErrMetadataUnavailable without touching its message.
func MarkMetadataUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrMetadataUnavailable)
}

// MarkBackend tags err as ErrBackend without touching its message.
func MarkBackend(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrBackend)
}

// Validation builds an ErrValidation error carrying the given reason as its message.
func Validation(reason error) error {
	return errors.Mark(reason, ErrValidation)
}
