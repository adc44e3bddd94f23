package config

const (
	// ConfigFileName is the declaration file name searched for, without extension.
	ConfigFileName = "runtime-init"

	// SystemDirConfigFilePath is the system-wide directory searched for the declaration.
	SystemDirConfigFilePath = "/etc/runtime-init"

	// HomeDirConfigDir is the directory below $HOME searched for the declaration.
	HomeDirConfigDir = ".runtime-init"

	// EnvPrefix prefixes environment variables overriding settings, e.g.
	// RUNTIME_INIT_SETTINGS_LOGS_LEVEL.
	EnvPrefix = "RUNTIME_INIT"

	// ConfigPathEnvVar names a directory or file holding the declaration.
	ConfigPathEnvVar = "RUNTIME_INIT_CONFIG_PATH"

	runtimeParametersKey = "runtime_parameters"
)
