package env

import (
	"os"
	"strings"

	log "github.com/cloudposse/runtime-init/pkg/logger"
)

// ConvertMapToSlice converts a map[string]string to []string{"KEY=value", ...},
// sorted by key.
func ConvertMapToSlice(envMap map[string]string) []string {
	result := make([]string, 0, len(envMap))
	for _, k := range sortedKeys(envMap) {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

// EnvironToMap parses KEY=value entries. Entries without '=' are skipped.
func EnvironToMap(environ []string) map[string]string {
	result := make(map[string]string, len(environ))
	for _, entry := range environ {
		if k, v, ok := strings.Cut(entry, "="); ok {
			result[k] = v
		}
	}
	return result
}

// MergeSystemEnv merges the process environment with resolved values.
// Priority order: system env < resolved values.
func MergeSystemEnv(values map[string]string) []string {
	return MergeEnv(os.Environ(), values)
}

// MergeEnv merges baseEnv with values, values winning on conflicts.
func MergeEnv(baseEnv []string, values map[string]string) []string {
	envMap := EnvironToMap(baseEnv)
	for k, v := range values {
		if _, exists := envMap[k]; exists {
			log.Trace("Overriding environment variable", "key", k)
		}
		envMap[k] = v
	}

	return ConvertMapToSlice(envMap)
}
