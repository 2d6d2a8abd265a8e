package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
	"go.uber.org/zap/zapcore"
)

func yamlProvider(t *testing.T, yaml string) config.Provider {
	provider, err := config.NewYAML(config.Source(strings.NewReader(yaml)))
	require.NoError(t, err)
	return provider
}

func TestNewSugaredLoggerLevels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		enabled  zapcore.Level
		disabled zapcore.Level
	}{
		{name: "empty means info", level: `""`, enabled: zapcore.InfoLevel, disabled: zapcore.DebugLevel},
		{name: "debug", level: "debug", enabled: zapcore.DebugLevel},
		{name: "warn", level: "warn", enabled: zapcore.WarnLevel, disabled: zapcore.InfoLevel},
		{name: "error", level: "error", enabled: zapcore.ErrorLevel, disabled: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := yamlProvider(t, "logging:\n  level: "+tt.level+"\n  outputPaths: [stdout]\n")

			sugared, err := NewSugaredLogger(provider)
			require.NoError(t, err)
			core := NewLogger(sugared).Core()

			assert.True(t, core.Enabled(tt.enabled))
			if tt.enabled != zapcore.DebugLevel {
				assert.False(t, core.Enabled(tt.disabled))
			}
		})
	}
}

func TestNewSugaredLoggerErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "invalid level",
			yaml:    "logging:\n  level: loud\n",
			wantErr: `parsing logging level "loud"`,
		},
		{
			name:    "logging is not a map",
			yaml:    "logging: verbose\n",
			wantErr: `getting config field "logging"`,
		},
		{
			name:    "unwritable output",
			yaml:    "logging:\n  level: info\n  outputPaths:\n    - /nonexistent/dir/agentmuxd.log\n",
			wantErr: "opening log outputs",
		},
		{
			name:    "unwritable error output",
			yaml:    "logging:\n  level: info\n  outputPaths: [stdout]\n  errorOutputPaths:\n    - /nonexistent/dir/errors.log\n",
			wantErr: "opening log error outputs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSugaredLogger(yamlProvider(t, tt.yaml))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoggerWritesJSONWithService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentmuxd.log")
	provider := yamlProvider(t, `
service:
  name: agentmuxd
logging:
  level: info
  encoding: json
  outputPaths:
    - `+path+`
`)

	logger, err := NewSugaredLogger(provider)
	require.NoError(t, err)
	logger.Debugw("handshake sent", "workspaceId", "ws-1")
	logger.Infow("workspace connected", "workspaceId", "ws-1")
	require.NoError(t, logger.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, `"msg":"workspace connected"`)
	assert.Contains(t, out, `"workspaceId":"ws-1"`)
	assert.Contains(t, out, `"service":"agentmuxd"`)
	assert.NotContains(t, out, "handshake sent")
}

func TestLoggerConsoleEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentmuxd.log")
	provider := yamlProvider(t, `
logging:
  level: debug
  development: true
  encoding: console
  outputPaths:
    - `+path+`
`)

	logger, err := NewSugaredLogger(provider)
	require.NoError(t, err)
	logger.Debugw("terminal opened", "terminalId", "term-1")
	require.NoError(t, logger.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "terminal opened")
	assert.Contains(t, out, `{"terminalId": "term-1"}`)
	assert.NotContains(t, out, `"msg"`)
	// Development mode adds the caller.
	assert.Contains(t, out, "logger_test.go")
}

func TestLoggingConfigPopulate(t *testing.T) {
	provider := yamlProvider(t, `
logging:
  level: warn
  development: true
  encoding: console
  outputPaths:
    - stdout
    - /tmp/agentmuxd.log
  errorOutputPaths:
    - stderr
`)

	var cfg LoggingConfig
	require.NoError(t, provider.Get("logging").Populate(&cfg))

	assert.Equal(t, LoggingConfig{
		Level:            "warn",
		Development:      true,
		Encoding:         "console",
		OutputPaths:      []string{"stdout", "/tmp/agentmuxd.log"},
		ErrorOutputPaths: []string{"stderr"},
	}, cfg)
}

func TestOrStderr(t *testing.T) {
	assert.Equal(t, []string{"stderr"}, orStderr(nil))
	assert.Equal(t, []string{"/tmp/a.log"}, orStderr([]string{"/tmp/a.log"}))
}
