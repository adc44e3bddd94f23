// Package config loads runtime-init declaration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	errUtils "github.com/cloudposse/runtime-init/errors"
	log "github.com/cloudposse/runtime-init/pkg/logger"
	"github.com/cloudposse/runtime-init/pkg/retry"
	"github.com/cloudposse/runtime-init/pkg/schema"
)

// LoadOptions carries command-line overrides.
type LoadOptions struct {
	// ConfigPath is an explicit declaration file. When set, it must exist.
	ConfigPath string
	// LogsLevel and LogsFile override settings.logs when non-empty.
	LogsLevel string
	LogsFile  string
}

// LoadConfig reads the declaration from the following locations (from lower to
// higher priority):
// system dir (/etc/runtime-init)
// home dir (~/.runtime-init)
// current directory
// RUNTIME_INIT_CONFIG_PATH
// the --config flag
// RUNTIME_INIT_SETTINGS_* env vars and command-line flags override settings.
func LoadConfig(opts LoadOptions) (schema.Configuration, error) {
	var cfg schema.Configuration

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetTypeByDefaultValue(true)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaultConfiguration(v)

	for _, read := range []func(*viper.Viper) error{readSystemConfig, readHomeConfig, readWorkDirConfig, readEnvConfigPath} {
		if err := read(v); err != nil {
			return cfg, wrapLoadError(err)
		}
	}

	if opts.ConfigPath != "" {
		if err := mergeConfigFile(v, opts.ConfigPath); err != nil {
			return cfg, errUtils.Build(wrapLoadError(err)).
				WithHintf("Check that %s exists and is valid YAML or JSON", opts.ConfigPath).
				Err()
		}
	}

	if opts.LogsLevel != "" {
		v.Set("settings.logs.level", opts.LogsLevel)
	}
	if opts.LogsFile != "" {
		v.Set("settings.logs.file", opts.LogsFile)
	}

	// Unmarshal walks every known key, so env overrides of nested settings apply.
	var root struct {
		Settings schema.Settings `mapstructure:"settings"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return cfg, wrapLoadError(err)
	}
	cfg.Settings = root.Settings

	params, err := schema.DecodeRuntimeParameters(v.Get(runtimeParametersKey))
	if err != nil {
		return cfg, err
	}
	cfg.RuntimeParameters = params

	log.Debug("Loaded runtime-init configuration", "parameters", len(cfg.RuntimeParameters))
	return cfg, nil
}

// setDefaultConfiguration sets the defaults every declaration starts from.
func setDefaultConfiguration(v *viper.Viper) {
	defaults := retry.DefaultConfig()

	v.SetDefault("settings.logs.file", "/dev/stderr")
	v.SetDefault("settings.logs.level", "Info")
	v.SetDefault("settings.timeout", "60s")
	v.SetDefault("settings.max_concurrency", 0)
	v.SetDefault("settings.cache_clients", false)
	v.SetDefault("settings.retry.max_attempts", defaults.MaxAttempts)
	v.SetDefault("settings.retry.backoff_strategy", string(defaults.BackoffStrategy))
	v.SetDefault("settings.retry.initial_delay", defaults.InitialDelay)
	v.SetDefault("settings.retry.max_delay", defaults.MaxDelay)
	v.SetDefault("settings.retry.random_jitter", defaults.RandomJitter)
	v.SetDefault("settings.retry.multiplier", defaults.Multiplier)
	v.SetDefault("settings.retry.max_elapsed_time", defaults.MaxElapsedTime)
	v.SetDefault("settings.aws.role_arn", "")
	v.SetDefault("settings.aws.metadata_endpoint", "")
	v.SetDefault("settings.azure.metadata_endpoint", "http://169.254.169.254")
	v.SetDefault("settings.azure.api_version", "2021-02-01")
	v.SetDefault("settings.azure.metadata_timeout", "10s")
	v.SetDefault("settings.gcp.credentials_file", "")
}

// readSystemConfig loads the declaration from the system dir.
func readSystemConfig(v *viper.Viper) error {
	return ignoreNotFound(mergeConfig(v, SystemDirConfigFilePath, ConfigFileName))
}

// readHomeConfig loads the declaration from the user's HOME dir.
func readHomeConfig(v *viper.Viper) error {
	home, err := homedir.Dir()
	if err != nil {
		log.Debug("Home directory not found, skipping", "error", err)
		return nil
	}
	return ignoreNotFound(mergeConfig(v, filepath.Join(home, HomeDirConfigDir), ConfigFileName))
}

// readWorkDirConfig loads the declaration from the current working directory.
func readWorkDirConfig(v *viper.Viper) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	return ignoreNotFound(mergeConfig(v, wd, ConfigFileName))
}

func readEnvConfigPath(v *viper.Viper) error {
	path := os.Getenv(ConfigPathEnvVar)
	if path == "" {
		return nil
	}

	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		log.Debug("Found config ENV", ConfigPathEnvVar, path)
		return mergeConfigFile(v, path)
	}

	if err := ignoreNotFound(mergeConfig(v, path, ConfigFileName)); err != nil {
		return err
	}
	log.Debug("Found config ENV", ConfigPathEnvVar, path)
	return nil
}

// configExtensions are probed in order for a declaration in a directory.
var configExtensions = []string{"yaml", "yml", "json"}

// mergeConfig merges the named declaration found in dir, if any.
func mergeConfig(v *viper.Viper, dir string, fileName string) error {
	for _, ext := range configExtensions {
		path := filepath.Join(dir, fileName+"."+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			log.Debug("Found config", "file", path)
			return mergeConfigFile(v, path)
		}
	}
	return viper.ConfigFileNotFoundError{}
}

// mergeConfigFile merges one explicit declaration file. The extension picks the
// parser; files without one are read as YAML.
func mergeConfigFile(v *viper.Viper, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	configType := strings.TrimPrefix(filepath.Ext(path), ".")
	if configType == "" || configType == "yml" {
		configType = "yaml"
	}
	v.SetConfigType(configType)
	defer v.SetConfigType("yaml")

	return v.MergeConfig(f)
}

func ignoreNotFound(err error) error {
	switch err.(type) {
	case nil, viper.ConfigFileNotFoundError:
		return nil
	default:
		return err
	}
}

func wrapLoadError(err error) error {
	return fmt.Errorf(errUtils.ErrWrapFormat, errUtils.ErrLoadConfig, err)
}
