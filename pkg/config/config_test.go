package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnvVars_BracedAndDefault(t *testing.T) {
	os.Setenv("TEST_CONFIG_API_KEY", "secret-123")
	defer os.Unsetenv("TEST_CONFIG_API_KEY")

	out := expandEnvVars("key: ${TEST_CONFIG_API_KEY}\nmodel: ${TEST_CONFIG_MODEL:-claude-3-5-sonnet}")
	assert.Contains(t, out, "secret-123")
	assert.Contains(t, out, "claude-3-5-sonnet")
}

func TestLoad_AppliesDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: anthropic
  api_key: ${TEST_LOAD_KEY:-test-key}
embedder:
  provider: mock
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Agent.MaxIterations)
	assert.Equal(t, 5, cfg.Agent.ReflectionInterval)
	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, "sqlite", cfg.Store.Document.Driver)
	assert.Equal(t, "qdrant", cfg.Store.Vector.Driver)
}

func TestValidate_RejectsMissingAPIKey(t *testing.T) {
	cfg := &Config{LLM: LLMConfig{Provider: "anthropic"}, Embedder: EmbedderConfig{Provider: "mock"}}
	cfg.Agent.SetDefaults()
	err := cfg.Validate()
	assert.Error(t, err)
}
