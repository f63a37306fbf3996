package llm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshIntervalHonorsConfiguredSeconds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "llm.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"default_provider": "mock",
		"default_model": "mock-llm",
		"refresh_interval_seconds": 5,
		"providers": {"mock": {"enabled": true, "models": {"mock-llm": {"enabled": true}}}}
	}`), 0o644))

	c := newConfig(path)
	assert.Equal(t, 5*time.Second, c.refreshInterval())
}

func TestRefreshIntervalDefaultsWhenUnset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "llm.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"default_provider": "mock",
		"default_model": "mock-llm",
		"providers": {"mock": {"enabled": true, "models": {"mock-llm": {"enabled": true}}}}
	}`), 0o644))

	c := newConfig(path)
	assert.Equal(t, DefaultRefreshInterval, c.refreshInterval())
}

func TestRefreshIntervalDefaultsWhenConfigMissing(t *testing.T) {
	c := newConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, DefaultRefreshInterval, c.refreshInterval())
}
