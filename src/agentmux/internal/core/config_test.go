package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
)

func writeConfigDir(t *testing.T, files map[string]string) string {
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// lookup reads a string key. Keys whose value expanded to nothing read as "".
func lookup(t *testing.T, provider config.Provider, key string) string {
	var s string
	require.NoError(t, provider.Get(key).Populate(&s))
	return s
}

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name        string
		files       map[string]string
		expectError bool
	}{
		{
			name: "loads listed files",
			files: map[string]string{
				"meta.yaml": "files:\n  - base.yaml\n",
				"base.yaml": "service:\n  name: agentmuxd\n",
			},
		},
		{
			name:        "fails when meta.yaml is missing",
			files:       map[string]string{"base.yaml": "service:\n  name: agentmuxd\n"},
			expectError: true,
		},
		{
			name: "fails when no listed file exists",
			files: map[string]string{
				"meta.yaml": "files:\n  - base.yaml\n",
			},
			expectError: true,
		},
		{
			name: "fails when files is not a list",
			files: map[string]string{
				"meta.yaml": "files:\n  base: base.yaml\n",
				"base.yaml": "service:\n  name: agentmuxd\n",
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, writeConfigDir(t, tt.files))

			provider, err := NewConfig()
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, provider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "agentmuxd", lookup(t, provider, "service.name"))
			assert.Equal(t, "config", provider.Name())
		})
	}
}

func TestConfigFilePriority(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"meta.yaml":        "files:\n  - base.yaml\n  - development.yaml\n  - local.yaml\n",
		"base.yaml":        "service:\n  name: base-service\nlogging:\n  level: info\n",
		"development.yaml": "service:\n  name: dev-service\nlogging:\n  level: debug\n",
	})

	provider, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "dev-service", lookup(t, provider, "service.name"))
	assert.Equal(t, "debug", lookup(t, provider, "logging.level"))
}

func TestConfigWithEnvironmentVariables(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"meta.yaml": "files:\n  - base.yaml\n",
		"base.yaml": "daemon:\n  address: 127.0.0.1:${AGENTMUX_PORT:4732}\n  token: ${AGENTMUX_DAEMON_TOKEN:}\n",
	})

	t.Run("defaults", func(t *testing.T) {
		provider, err := LoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:4732", lookup(t, provider, "daemon.address"))
		assert.Equal(t, "", lookup(t, provider, "daemon.token"))
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("AGENTMUX_PORT", "9000")
		t.Setenv("AGENTMUX_DAEMON_TOKEN", "s3cret")
		provider, err := LoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:9000", lookup(t, provider, "daemon.address"))
		assert.Equal(t, "s3cret", lookup(t, provider, "daemon.token"))
	})
}

func TestConfigOverrideFile(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"meta.yaml": "files:\n  - base.yaml\n",
		"base.yaml": "daemon:\n  address: 127.0.0.1:4732\n  maxInFlightRPC: 32\n",
	})

	t.Run("applied last", func(t *testing.T) {
		override := filepath.Join(t.TempDir(), "user.yaml")
		require.NoError(t, os.WriteFile(override, []byte("daemon:\n  maxInFlightRPC: 4\n"), 0o644))
		t.Setenv(EnvConfigFile, override)

		provider, err := LoadConfig(dir)
		require.NoError(t, err)
		var maxInFlight int
		require.NoError(t, provider.Get("daemon.maxInFlightRPC").Populate(&maxInFlight))
		assert.Equal(t, 4, maxInFlight)
		assert.Equal(t, "127.0.0.1:4732", lookup(t, provider, "daemon.address"))
	})

	t.Run("missing file fails", func(t *testing.T) {
		t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))
		_, err := LoadConfig(dir)
		assert.ErrorContains(t, err, EnvConfigFile)
	})
}

func TestGetConfigDir(t *testing.T) {
	t.Run("returns environment variable when set", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "/custom/config/path")
		assert.Equal(t, "/custom/config/path", getConfigDir())
	})

	t.Run("returns default path when environment variable not set", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "")
		assert.Equal(t, _defaultConfigDir, getConfigDir())
	})
}

func TestRepositoryConfig(t *testing.T) {
	// The checked-in configuration must load from the package directory too.
	provider, err := LoadConfig(filepath.Join("..", "..", "config"))
	require.NoError(t, err)

	assert.True(t, provider.Get("daemon.address").HasValue())
	assert.True(t, provider.Get("logging.level").HasValue())
	assert.Equal(t, "Codex", lookup(t, provider, "agent.name"))
}
