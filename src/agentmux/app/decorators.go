package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentmux/agentmux/src/agentmux/internal/fs"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Context struct {
	Environment        string `yaml:"environment"`
	RuntimeEnvironment string `yaml:"runtimeEnvironment"`
}

const (
	// EnvLocal indicates that the daemon is running on a developer machine.
	EnvLocal = "local"

	// EnvDevelopment indicates that the daemon is running with development settings.
	EnvDevelopment = "development"

	// Environment variables
	_envAgentmuxEnvironment = "AGENTMUX_ENVIRONMENT"

	_configKeyLogging = "logging"
	_configKeyDataDir = "dataDir"
)

func decorateEnvContext(env Context) Context {
	envValue := EnvLocal
	if os.Getenv(_envAgentmuxEnvironment) == EnvDevelopment {
		envValue = EnvDevelopment
	}

	env.Environment = envValue
	env.RuntimeEnvironment = envValue
	return env
}

// DecorateConfigParams is the set of dependencies required to decorate the config.Provider.
type DecorateConfigParams struct {
	fx.In

	Env Context
	Cfg config.Provider
	FS  fs.MuxFS
}

// decorateConfigProvider prepares the filesystem the configuration points at before any module reads it.
func decorateConfigProvider(p DecorateConfigParams) (config.Provider, error) {
	dirs, err := writableDirs(p.Cfg)
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := p.FS.MkdirAll(dir); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return p.Cfg, nil
}

// writableDirs lists the directories of every configured log output and the data directory,
// without duplicates and in configuration order.
func writableDirs(cfg config.Provider) ([]string, error) {
	var logging zap.Config
	if err := cfg.Get(_configKeyLogging).Populate(&logging); err != nil {
		return nil, fmt.Errorf("loading logging config: %w", err)
	}
	var dataDir string
	if err := cfg.Get(_configKeyDataDir).Populate(&dataDir); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKeyDataDir, err)
	}

	var dirs []string
	seen := make(map[string]bool)
	add := func(dir string) {
		if dir == "" || seen[dir] {
			return
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}

	outputs := append(append([]string(nil), logging.OutputPaths...), logging.ErrorOutputPaths...)
	for _, out := range outputs {
		if out == "stdout" || out == "stderr" {
			continue
		}
		add(filepath.Dir(out))
	}
	add(dataDir)
	return dirs, nil
}
