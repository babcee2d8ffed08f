package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.True(t, cfg.InitSlashCommands)
	assert.Equal(t, "file", cfg.SnapshotBackend)
	assert.Equal(t, "data/commands", cfg.SnapshotDir)
	assert.Equal(t, 30*time.Second, cfg.PublishTimeout)
	assert.Equal(t, 256, cfg.CacheSize)
	assert.Equal(t, []string{""}, cfg.Scopes())
}

func TestParseFromEnv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("GUILD_IDS", "1,2,1")
	t.Setenv("SNAPSHOT_BACKEND", "sqlite")
	t.Setenv("PUBLISH_TIMEOUT", "5s")

	cfg, err := Parse()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "token", cfg.DiscordToken)
	assert.Equal(t, []string{"1", "2"}, cfg.Scopes())
	assert.Equal(t, 5*time.Second, cfg.PublishTimeout)
}

func TestParseError(t *testing.T) {
	t.Setenv("PUBLISH_TIMEOUT", "soon")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	cfg.SnapshotBackend = "redis"
	cfg.PublishRate = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_TOKEN")
	assert.Contains(t, err.Error(), "SNAPSHOT_BACKEND")
	assert.Contains(t, err.Error(), "PUBLISH_RATE")
}

func TestValidateSnapshotBackends(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	for _, backend := range []string{"file", "sqlite", "memory"} {
		cfg.SnapshotBackend = backend
		assert.NoError(t, cfg.ValidateSnapshot(), backend)
	}
	cfg.SnapshotBackend = ""
	assert.Error(t, cfg.ValidateSnapshot())
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LILYBOT_TEST_VALUE=from-file\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("LILYBOT_TEST_VALUE") })

	LoadDotEnv(path)
	assert.Equal(t, "from-file", os.Getenv("LILYBOT_TEST_VALUE"))

	// A missing file is not an error.
	LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
}
