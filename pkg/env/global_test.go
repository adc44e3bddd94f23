package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertMapToSlice(t *testing.T) {
	assert.Equal(t, []string{"A=1", "B=2"}, ConvertMapToSlice(map[string]string{"B": "2", "A": "1"}))
	assert.Empty(t, ConvertMapToSlice(nil))
}

func TestEnvironToMap(t *testing.T) {
	got := EnvironToMap([]string{"A=1", "B=x=y", "INVALID", "EMPTY="})
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "EMPTY": ""}, got)
}

func TestMergeEnv(t *testing.T) {
	base := []string{"PATH=/usr/bin", "DB_PASS=old"}

	got := MergeEnv(base, map[string]string{"DB_PASS": "new", "REGION": "eastus"})

	assert.Equal(t, []string{"DB_PASS=new", "PATH=/usr/bin", "REGION=eastus"}, got)
}

func TestMergeSystemEnv(t *testing.T) {
	t.Setenv("RUNTIME_INIT_TEST_VAR", "system")

	got := EnvironToMap(MergeSystemEnv(map[string]string{"RUNTIME_INIT_TEST_VAR": "resolved"}))

	assert.Equal(t, "resolved", got["RUNTIME_INIT_TEST_VAR"])
}
