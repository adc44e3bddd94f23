package schema

// ParameterType selects how a runtime parameter is resolved.
type ParameterType string

const (
	ParameterTypeSecret   ParameterType = "secret"
	ParameterTypeMetadata ParameterType = "metadata"
	ParameterTypeStatic   ParameterType = "static"
)

// IsValid reports whether t is one of secret, metadata or static.
func (t ParameterType) IsValid() bool {
	switch t {
	case ParameterTypeSecret, ParameterTypeMetadata, ParameterTypeStatic:
		return true
	default:
		return false
	}
}

// Cloud environments.
const (
	EnvironmentAWS   = "aws"
	EnvironmentAzure = "azure"
	EnvironmentGCP   = "gcp"
)

// Secret backend kinds, as written in secretProvider.type.
const (
	SecretBackendSecretsManager = "SecretsManager"
	SecretBackendParameterStore = "ParameterStore"
	SecretBackendSecretClient   = "SecretClient"
	SecretBackendSecretManager  = "SecretManager"
)

// Metadata categories and fields, as written in metadataProvider.type and .field.
const (
	MetadataTypeCompute = "compute"
	MetadataTypeNetwork = "network"

	MetadataFieldIPv4 = "ipv4"
	MetadataFieldIPv6 = "ipv6"
	MetadataFieldMAC  = "mac"
)

// RuntimeParameter is one named value requested by a declaration.
// Exactly one of Value, SecretProvider and MetadataProvider is meaningful, per Type.
type RuntimeParameter struct {
	Name             string            `yaml:"name" json:"name" mapstructure:"name"`
	Type             ParameterType     `yaml:"type" json:"type" mapstructure:"type"`
	Value            string            `yaml:"value,omitempty" json:"value,omitempty" mapstructure:"value"`
	SecretProvider   *SecretProvider   `yaml:"secretProvider,omitempty" json:"secretProvider,omitempty" mapstructure:"secretProvider"`
	MetadataProvider *MetadataProvider `yaml:"metadataProvider,omitempty" json:"metadataProvider,omitempty" mapstructure:"metadataProvider"`
}

// SecretProvider names a secrets backend call.
type SecretProvider struct {
	// Type is the backend kind, e.g. SecretsManager or SecretClient.
	Type        string `yaml:"type" json:"type" mapstructure:"type"`
	Environment string `yaml:"environment" json:"environment" mapstructure:"environment"`
	// Version is a backend specific version or stage token.
	Version  string `yaml:"version" json:"version" mapstructure:"version"`
	SecretID string `yaml:"secretId" json:"secretId" mapstructure:"secretId"`
	// VaultURL is the Azure Key Vault URL holding the secret.
	VaultURL string `yaml:"vaultUrl,omitempty" json:"vaultUrl,omitempty" mapstructure:"vaultUrl"`
	Debug    bool   `yaml:"debug,omitempty" json:"debug,omitempty" mapstructure:"debug"`
}

// MetadataProvider names an instance metadata read.
type MetadataProvider struct {
	// Type is the metadata category, compute or network.
	Type        string `yaml:"type" json:"type" mapstructure:"type"`
	Environment string `yaml:"environment" json:"environment" mapstructure:"environment"`
	Field       string `yaml:"field" json:"field" mapstructure:"field"`
	// Index selects one entry of a multi-valued attribute such as a network interface.
	Index int `yaml:"index,omitempty" json:"index,omitempty" mapstructure:"index"`
}
