package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStatic_ReadsModelProviderAndEphemeralSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := "model: claude-sonnet-4-5\nprovider: anthropic\nephemeralSettings:\n  streaming: disabled\n  customHeaders:\n    X-Trace: abc\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	c, err := LoadStatic(path)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", c.GetModel())
	assert.Equal(t, "anthropic", c.GetProvider())

	v, ok := c.GetEphemeralSetting(context.Background(), "streaming")
	require.True(t, ok)
	assert.Equal(t, "disabled", v)
}

func TestLoadStatic_MissingFileReturnsError(t *testing.T) {
	_, err := LoadStatic(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadStatic_MalformedYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unterminated"), 0o644))
	_, err := LoadStatic(path)
	assert.Error(t, err)
}

func TestLoadStatic_EmptyFileProducesZeroValueConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
	c, err := LoadStatic(path)
	require.NoError(t, err)
	assert.Equal(t, "", c.GetModel())
	assert.Equal(t, "", c.GetProvider())
}
