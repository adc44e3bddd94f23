package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/cloudposse/runtime-init/errors"
)

const declaration = `[
  {
    "name": "AWS_PASS",
    "type": "secret",
    "secretProvider": {
      "type": "SecretsManager",
      "environment": "aws",
      "version": "AWSCURRENT",
      "secretId": "secert-document"
    }
  },
  {
    "name": "AZURE_SELF_IP",
    "type": "metadata",
    "metadataProvider": {
      "type": "network",
      "environment": "azure",
      "field": "ipv4",
      "index": 1
    }
  },
  {
    "name": "SOME_NAME",
    "type": "static",
    "value": "SOME VALUE"
  }
]`

func TestDecodeRuntimeParameters_JSON(t *testing.T) {
	var raw any
	require.NoError(t, json.Unmarshal([]byte(declaration), &raw))

	params, err := DecodeRuntimeParameters(raw)
	require.NoError(t, err)
	require.Len(t, params, 3)

	assert.Equal(t, "AWS_PASS", params[0].Name)
	assert.Equal(t, ParameterTypeSecret, params[0].Type)
	require.NotNil(t, params[0].SecretProvider)
	assert.Equal(t, "secert-document", params[0].SecretProvider.SecretID)
	assert.Equal(t, "AWSCURRENT", params[0].SecretProvider.Version)
	assert.Nil(t, params[0].MetadataProvider)

	require.NotNil(t, params[1].MetadataProvider)
	assert.Equal(t, 1, params[1].MetadataProvider.Index)
	assert.Equal(t, "ipv4", params[1].MetadataProvider.Field)

	assert.Equal(t, "SOME VALUE", params[2].Value)
}

func TestDecodeRuntimeParameters_LowercasedKeys(t *testing.T) {
	// viper lower-cases every key it loads.
	raw := []any{
		map[string]any{
			"name": "AZURE_PASS",
			"type": "secret",
			"secretprovider": map[string]any{
				"type":        "SecretClient",
				"environment": "azure",
				"secretid":    "this-secret",
				"vaulturl":    "https://my-vault.vault.azure.net",
				"debug":       "true",
			},
		},
		map[string]any{
			"name": "HOST",
			"type": "metadata",
			"metadataprovider": map[string]any{
				"type":        "compute",
				"environment": "gcp",
				"field":       "name",
				"index":       "2",
			},
		},
	}

	params, err := DecodeRuntimeParameters(raw)
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "this-secret", params[0].SecretProvider.SecretID)
	assert.Equal(t, "https://my-vault.vault.azure.net", params[0].SecretProvider.VaultURL)
	assert.True(t, params[0].SecretProvider.Debug)
	assert.Equal(t, 2, params[1].MetadataProvider.Index)
}

func TestDecodeRuntimeParameters_Nil(t *testing.T) {
	params, err := DecodeRuntimeParameters(nil)
	assert.NoError(t, err)
	assert.Empty(t, params)
}

func TestDecodeRuntimeParameters_Invalid(t *testing.T) {
	_, err := DecodeRuntimeParameters("not a list")
	assert.ErrorIs(t, err, errUtils.ErrDecodeParameters)
}

func TestParameterType_IsValid(t *testing.T) {
	assert.True(t, ParameterTypeSecret.IsValid())
	assert.True(t, ParameterTypeMetadata.IsValid())
	assert.True(t, ParameterTypeStatic.IsValid())
	assert.False(t, ParameterType("wrong").IsValid())
	assert.False(t, ParameterType("").IsValid())
}
