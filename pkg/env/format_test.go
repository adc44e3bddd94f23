package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/cloudposse/runtime-init/errors"
)

func TestFormatData(t *testing.T) {
	tests := []struct {
		name     string
		data     map[string]string
		format   Format
		opts     []Option
		expected string
	}{
		{
			name:     "env format with simple values",
			data:     map[string]string{"KEY2": "value2", "KEY1": "value1"},
			format:   FormatEnv,
			expected: "KEY1=value1\nKEY2=value2\n",
		},
		{
			name:     "dotenv format with simple values",
			data:     map[string]string{"KEY1": "value1", "KEY2": "value2"},
			format:   FormatDotenv,
			expected: "KEY1=value1\nKEY2=value2\n",
		},
		{
			name:     "bash format with simple values",
			data:     map[string]string{"KEY1": "value1", "KEY2": "value2"},
			format:   FormatBash,
			expected: "export KEY1=value1\nexport KEY2=value2\n",
		},
		{
			name:     "dotenv format with single quotes",
			data:     map[string]string{"MSG": "it's working"},
			format:   FormatDotenv,
			expected: "MSG='it'\"'\"'s working'\n",
		},
		{
			name:     "bash format with spaces",
			data:     map[string]string{"SOME_NAME": "SOME VALUE"},
			format:   FormatBash,
			expected: "export SOME_NAME='SOME VALUE'\n",
		},
		{
			name:     "bash format without export",
			data:     map[string]string{"KEY": "value"},
			format:   FormatBash,
			opts:     []Option{WithExport(false)},
			expected: "KEY=value\n",
		},
		{
			name:     "empty static value is kept",
			data:     map[string]string{"EMPTY": ""},
			format:   FormatDotenv,
			expected: "EMPTY=''\n",
		},
		{
			name:     "uppercase and prefix",
			data:     map[string]string{"db_pass": "x"},
			format:   FormatEnv,
			opts:     []Option{WithPrefix("app_"), WithUppercase()},
			expected: "APP_DB_PASS=x\n",
		},
		{
			name:     "json format",
			data:     map[string]string{"B": "2", "A": "1"},
			format:   FormatJSON,
			expected: "{\n  \"A\": \"1\",\n  \"B\": \"2\"\n}\n",
		},
		{
			name:     "yaml format",
			data:     map[string]string{"B": "2", "A": "line1\nline2"},
			format:   FormatYAML,
			expected: "A: |-\n  line1\n  line2\nB: \"2\"\n",
		},
		{
			name:     "empty data",
			data:     map[string]string{},
			format:   FormatEnv,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := FormatData(tt.data, tt.format, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFormatValue(t *testing.T) {
	result, err := FormatValue("key", "a b", FormatBash, WithUppercase())
	require.NoError(t, err)
	assert.Equal(t, "export KEY='a b'\n", result)

	_, err = FormatValue("key", "v", FormatJSON)
	assert.True(t, errors.Is(err, errUtils.ErrInvalidFormat))
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := FormatData(map[string]string{"KEY": "value"}, Format("xml"))
	assert.True(t, errors.Is(err, errUtils.ErrInvalidFormat))
}

func TestParseFormat(t *testing.T) {
	for _, f := range SupportedFormats {
		got, err := ParseFormat(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	got, err := ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, got)

	_, err = ParseFormat("github")
	assert.True(t, errors.Is(err, errUtils.ErrInvalidFormat))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestWriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runtime.env")

	require.NoError(t, WriteToFile(path, "A=1\n", false))
	require.NoError(t, WriteToFile(path, "B=2\n", true))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A=1\nB=2\n", string(content))

	require.NoError(t, WriteToFile(path, "C=3\n", false))
	content, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "C=3\n", string(content))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteToFile_BadPath(t *testing.T) {
	err := WriteToFile(filepath.Join(t.TempDir(), "missing", "out.env"), "A=1\n", false)
	assert.True(t, errors.Is(err, errUtils.ErrWriteOutput))
}

func TestTransformKeys(t *testing.T) {
	got := TransformKeys(map[string]string{"db_pass": "x", "APP_HOST": "h"}, WithPrefix("APP_"), WithUppercase())
	assert.Equal(t, map[string]string{"APP_DB_PASS": "x", "APP_HOST": "h"}, got)
}
