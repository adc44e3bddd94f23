// Package env renders resolved runtime parameters in the formats consumed by
// shells, dotenv loaders and config tooling.
package env

import (
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"

	errUtils "github.com/cloudposse/runtime-init/errors"
)

// Format represents an output format for resolved parameters.
type Format string

const (
	// FormatEnv outputs key=value pairs without quoting.
	FormatEnv Format = "env"
	// FormatDotenv outputs key=value pairs with shell-safe quoting.
	FormatDotenv Format = "dotenv"
	// FormatBash outputs export key=value statements with shell-safe quoting.
	FormatBash Format = "bash"
	// FormatJSON outputs a single JSON object.
	FormatJSON Format = "json"
	// FormatYAML outputs a single YAML mapping.
	FormatYAML Format = "yaml"
)

// SupportedFormats lists all supported output formats.
var SupportedFormats = []Format{FormatEnv, FormatDotenv, FormatBash, FormatJSON, FormatYAML}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseFormat converts a format string to a Format type.
// Returns an error for unsupported format strings.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if lo.Contains(SupportedFormats, f) {
		return f, nil
	}

	return "", errUtils.Build(errUtils.ErrInvalidFormat).
		WithExplanationf("unsupported format: %s", s).
		WithHintf("Supported formats are %s", strings.Join(lo.Map(SupportedFormats, func(f Format, _ int) string { return string(f) }), ", ")).
		Err()
}

// FormatData renders values in the given format. Keys are sorted alphabetically
// for consistent output.
func FormatData(values map[string]string, format Format, opts ...Option) (string, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	transformed := transformData(values, cfg)

	switch format {
	case FormatJSON:
		return formatJSON(transformed)
	case FormatYAML:
		return formatYAML(transformed)
	}

	var sb strings.Builder
	for _, key := range sortedKeys(transformed) {
		line, err := FormatValue(key, transformed[key], format, opts...)
		if err != nil {
			return "", err
		}
		sb.WriteString(line)
	}

	return sb.String(), nil
}

// FormatValue formats a single key-value pair in a line-oriented format.
func FormatValue(key, value string, format Format, opts ...Option) (string, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	key = transformKey(key, cfg)

	switch format {
	case FormatEnv:
		return formatEnvValue(key, value), nil
	case FormatDotenv:
		return formatDotenvValue(key, value), nil
	case FormatBash:
		return formatBashValue(key, value, cfg), nil
	default:
		return "", errUtils.Build(errUtils.ErrInvalidFormat).
			WithExplanationf("format %s cannot render a single value", format).
			Err()
	}
}

// TransformKeys returns a copy of values with the key options applied.
func TransformKeys(values map[string]string, opts ...Option) map[string]string {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return transformData(values, cfg)
}

// transformData applies configuration options to the keys.
func transformData(values map[string]string, cfg *config) map[string]string {
	return lo.MapKeys(values, func(_ string, key string) string {
		return transformKey(key, cfg)
	})
}

func transformKey(key string, cfg *config) string {
	if cfg.prefix != "" && !strings.HasPrefix(key, cfg.prefix) {
		key = cfg.prefix + key
	}
	if cfg.uppercase {
		key = strings.ToUpper(key)
	}
	return key
}

// sortedKeys returns the keys of a map sorted alphabetically.
func sortedKeys(m map[string]string) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
