package schema

import "time"

// Configuration is the root of a runtime-init declaration file.
type Configuration struct {
	RuntimeParameters []RuntimeParameter `yaml:"runtime_parameters" json:"runtime_parameters" mapstructure:"runtime_parameters"`
	Settings          Settings           `yaml:"settings" json:"settings" mapstructure:"settings"`
}

// Settings tunes resolution and the ambient stack.
type Settings struct {
	Logs Logs `yaml:"logs" json:"logs" mapstructure:"logs"`
	// Timeout bounds one ResolveRuntimeParameters call. Zero disables the bound.
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
	// MaxConcurrency limits in-flight lookups. Zero or negative means unlimited.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" mapstructure:"max_concurrency"`
	// CacheClients keeps one initialized cloud client per environment for the factory's lifetime.
	CacheClients bool          `yaml:"cache_clients" json:"cache_clients" mapstructure:"cache_clients"`
	Retry        RetryConfig   `yaml:"retry" json:"retry" mapstructure:"retry"`
	AWS          AWSSettings   `yaml:"aws" json:"aws" mapstructure:"aws"`
	Azure        AzureSettings `yaml:"azure" json:"azure" mapstructure:"azure"`
	GCP          GCPSettings   `yaml:"gcp" json:"gcp" mapstructure:"gcp"`
}

type Logs struct {
	File  string `yaml:"file" json:"file" mapstructure:"file"`
	Level string `yaml:"level" json:"level" mapstructure:"level"`
}

type AWSSettings struct {
	// RoleArn, when set, is assumed through STS before calling the secrets backends.
	RoleArn string `yaml:"role_arn" json:"role_arn" mapstructure:"role_arn"`
	// MetadataEndpoint overrides the IMDS endpoint.
	MetadataEndpoint string `yaml:"metadata_endpoint" json:"metadata_endpoint" mapstructure:"metadata_endpoint"`
}

type AzureSettings struct {
	MetadataEndpoint string `yaml:"metadata_endpoint" json:"metadata_endpoint" mapstructure:"metadata_endpoint"`
	APIVersion       string `yaml:"api_version" json:"api_version" mapstructure:"api_version"`
	// MetadataTimeout bounds one IMDS request. Zero uses the HTTP client default.
	MetadataTimeout time.Duration `yaml:"metadata_timeout" json:"metadata_timeout" mapstructure:"metadata_timeout"`
}

type GCPSettings struct {
	// CredentialsFile is a service account key used instead of the instance credentials.
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file" mapstructure:"credentials_file"`
}
