package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/cloudposse/runtime-init/errors"
	"github.com/cloudposse/runtime-init/pkg/schema"
)

const declarationYAML = `
runtime_parameters:
  - name: SOME_NAME
    type: static
    value: SOME VALUE
  - name: AZURE_PASS
    type: secret
    secretProvider:
      type: SecretClient
      environment: azure
      secretId: test-azure-secret
      vaultUrl: https://test.vault.azure.net
  - name: AZURE_SELF_IP
    type: metadata
    metadataProvider:
      type: network
      environment: azure
      field: ipv4
      index: 1
settings:
  timeout: 5s
  max_concurrency: 4
  retry:
    max_attempts: 5
  azure:
    api_version: "2023-07-01"
`

// isolate points every search location at empty temp dirs.
func isolate(t *testing.T) string {
	t.Helper()

	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	t.Setenv("HOME", t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
	wd := t.TempDir()
	t.Chdir(wd)
	return wd
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig(LoadOptions{})

	require.NoError(t, err)
	assert.Empty(t, cfg.RuntimeParameters)
	assert.Equal(t, "Info", cfg.Settings.Logs.Level)
	assert.Equal(t, "/dev/stderr", cfg.Settings.Logs.File)
	assert.Equal(t, 60*time.Second, cfg.Settings.Timeout)
	assert.Equal(t, 3, cfg.Settings.Retry.MaxAttempts)
	assert.Equal(t, schema.BackoffExponential, cfg.Settings.Retry.BackoffStrategy)
	assert.Equal(t, "http://169.254.169.254", cfg.Settings.Azure.MetadataEndpoint)
	assert.Equal(t, "2021-02-01", cfg.Settings.Azure.APIVersion)
	assert.Equal(t, 10*time.Second, cfg.Settings.Azure.MetadataTimeout)
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "declaration.yaml"), declarationYAML)

	cfg, err := LoadConfig(LoadOptions{ConfigPath: path})

	require.NoError(t, err)
	require.Len(t, cfg.RuntimeParameters, 3)

	assert.Equal(t, schema.RuntimeParameter{Name: "SOME_NAME", Type: schema.ParameterTypeStatic, Value: "SOME VALUE"}, cfg.RuntimeParameters[0])

	secret := cfg.RuntimeParameters[1]
	require.NotNil(t, secret.SecretProvider)
	assert.Equal(t, "SecretClient", secret.SecretProvider.Type)
	assert.Equal(t, "test-azure-secret", secret.SecretProvider.SecretID)
	assert.Equal(t, "https://test.vault.azure.net", secret.SecretProvider.VaultURL)

	metadata := cfg.RuntimeParameters[2]
	require.NotNil(t, metadata.MetadataProvider)
	assert.Equal(t, 1, metadata.MetadataProvider.Index)

	assert.Equal(t, 5*time.Second, cfg.Settings.Timeout)
	assert.Equal(t, 4, cfg.Settings.MaxConcurrency)
	assert.Equal(t, 5, cfg.Settings.Retry.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Settings.Retry.InitialDelay)
	assert.Equal(t, "2023-07-01", cfg.Settings.Azure.APIVersion)
}

func TestLoadConfig_JSONFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "declaration.json"), `{
  "runtime_parameters": [
    {"name": "AWS_PASS", "type": "secret", "secretProvider": {"type": "SecretsManager", "environment": "aws", "secretId": "test-secret", "version": "AWSCURRENT"}}
  ]
}`)

	cfg, err := LoadConfig(LoadOptions{ConfigPath: path})

	require.NoError(t, err)
	require.Len(t, cfg.RuntimeParameters, 1)
	assert.Equal(t, "AWSCURRENT", cfg.RuntimeParameters[0].SecretProvider.Version)
}

func TestLoadConfig_WorkDir(t *testing.T) {
	wd := isolate(t)
	writeFile(t, filepath.Join(wd, "runtime-init.yaml"), declarationYAML)

	cfg, err := LoadConfig(LoadOptions{})

	require.NoError(t, err)
	assert.Len(t, cfg.RuntimeParameters, 3)
}

func TestLoadConfig_EnvConfigPath(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "runtime-init.yml"), declarationYAML)
	t.Setenv(ConfigPathEnvVar, dir)

	cfg, err := LoadConfig(LoadOptions{})

	require.NoError(t, err)
	assert.Len(t, cfg.RuntimeParameters, 3)
}

func TestLoadConfig_Overrides(t *testing.T) {
	isolate(t)
	t.Setenv("RUNTIME_INIT_SETTINGS_MAX_CONCURRENCY", "8")

	cfg, err := LoadConfig(LoadOptions{LogsLevel: "Debug", LogsFile: "/dev/stdout"})

	require.NoError(t, err)
	assert.Equal(t, "Debug", cfg.Settings.Logs.Level)
	assert.Equal(t, "/dev/stdout", cfg.Settings.Logs.File)
	assert.Equal(t, 8, cfg.Settings.MaxConcurrency)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := LoadConfig(LoadOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errUtils.ErrLoadConfig))
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	isolate(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "bad.yaml"), "runtime_parameters: [\n")

	_, err := LoadConfig(LoadOptions{ConfigPath: path})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errUtils.ErrLoadConfig))
}
