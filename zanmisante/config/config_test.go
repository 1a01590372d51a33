package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := LoadConfig()
	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLMModel)
}

func TestLoadConfigYAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "addr: \":9000\"\ndb_name: plants\nllm_provider: openai\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DB_NAME", "plants_test")

	cfg := LoadConfig()
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "openai", cfg.LLMProvider)
	// Environment wins over the file.
	assert.Equal(t, "plants_test", cfg.DBName)
}
