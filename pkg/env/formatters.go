package env

import (
	"bytes"
	"fmt"

	"al.essio.dev/pkg/shellescape"
	"gopkg.in/yaml.v3"
)

// formatEnvValue formats a key-value pair as key=value (no quoting).
func formatEnvValue(key, value string) string {
	return fmt.Sprintf("%s=%s\n", key, value)
}

// formatDotenvValue formats a key-value pair as key=value with shell-safe quoting.
// Uses shellescape.Quote which adds quotes only when needed and handles all escaping.
func formatDotenvValue(key, value string) string {
	return fmt.Sprintf("%s=%s\n", key, shellescape.Quote(value))
}

// formatBashValue formats a key-value pair as export key=value with shell-safe quoting.
// If cfg.exportPrefix is explicitly set to false, omits the 'export' prefix.
func formatBashValue(key, value string, cfg *config) string {
	quoted := shellescape.Quote(value)
	if cfg != nil && cfg.exportPrefix != nil && !*cfg.exportPrefix {
		return fmt.Sprintf("%s=%s\n", key, quoted)
	}
	return fmt.Sprintf("export %s=%s\n", key, quoted)
}

// formatJSON renders values as an indented JSON object with sorted keys.
func formatJSON(values map[string]string) (string, error) {
	out, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}

// formatYAML renders values as a YAML mapping with sorted keys.
func formatYAML(values map[string]string) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(values); err != nil {
		return "", err
	}
	if err := encoder.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
