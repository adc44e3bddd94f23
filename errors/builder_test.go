package errors

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestBuild_NilError(t *testing.T) {
	assert.NoError(t, Build(nil).WithHint("ignored").Err())
}

func TestBuild_MarksLeafSentinel(t *testing.T) {
	err := Build(ErrSecretIDMissing).WithHint("set secretProvider.secretId").Err()

	assert.ErrorIs(t, err, ErrSecretIDMissing)
	assert.Equal(t, "secret id is missing", err.Error())
	assert.Contains(t, errors.GetAllHints(err), "set secretProvider.secretId")
}

func TestBuild_WithSentinelAndExitCode(t *testing.T) {
	cause := errors.New("auth failure")

	err := Build(cause).WithSentinel(ErrBackend).WithExitCode(7).Err()

	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, "auth failure", err.Error())
	assert.Equal(t, 7, GetExitCode(err))
}

func TestMarkPreservesMessage(t *testing.T) {
	cause := errors.New("cannot contact AWS metadata service")

	marked := MarkMetadataUnavailable(cause)

	assert.Equal(t, cause.Error(), marked.Error())
	assert.ErrorIs(t, marked, ErrMetadataUnavailable)
	assert.ErrorIs(t, marked, cause)
	assert.NoError(t, MarkMetadataUnavailable(nil))
	assert.NoError(t, MarkBackend(nil))
}

func TestValidation(t *testing.T) {
	err := Validation(ErrSecretIDMissing)

	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrSecretIDMissing)
	assert.Contains(t, err.Error(), "secret id is missing")
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "generic", err: errors.New("boom"), want: ExitCodeGeneric},
		{name: "validation", err: Validation(ErrSecretIDMissing), want: ExitCodeValidation},
		{name: "unknown type", err: errors.Wrap(ErrUnknownParameterType, "resolve"), want: ExitCodeValidation},
		{name: "backend", err: MarkBackend(errors.New("throttled")), want: ExitCodeCloud},
		{name: "explicit", err: WithExitCode(errors.New("x"), 42), want: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}
