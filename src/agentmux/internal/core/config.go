package core

import (
	"fmt"
	"os"
	"path/filepath"

	uber_config "go.uber.org/config"
	"go.uber.org/fx"
)

const (
	// EnvConfigDir names the directory holding meta.yaml and the files it lists.
	EnvConfigDir = "AGENTMUX_CONFIG_DIR"
	// EnvConfigFile names an optional user file applied after every listed file.
	EnvConfigFile = "AGENTMUX_CONFIG_FILE"

	_defaultConfigDir = "src/agentmux/config"
	_installConfigDir = "config"
	_metaFile         = "meta.yaml"
	_metaKeyFiles     = "files"
)

var ConfigModule = fx.Options(
	fx.Provide(NewConfig),
)

type Config struct {
	provider uber_config.Provider
}

func (c Config) Get(path string) uber_config.Value {
	return c.provider.Get(path)
}

func (c Config) Name() string {
	return "config"
}

// NewConfig loads the daemon configuration from the config directory and the optional user file.
func NewConfig() (uber_config.Provider, error) {
	return LoadConfig(getConfigDir())
}

// LoadConfig reads meta.yaml from configDir and merges every listed file that exists, in order,
// then the file named by AGENTMUX_CONFIG_FILE. ${VAR:default} references expand from the environment.
func LoadConfig(configDir string) (uber_config.Provider, error) {
	files, err := listedFiles(configDir)
	if err != nil {
		return nil, err
	}

	if override := os.Getenv(EnvConfigFile); override != "" {
		if _, err := os.Stat(override); err != nil {
			return nil, fmt.Errorf("reading %s: %w", EnvConfigFile, err)
		}
		files = append(files, override)
	}

	options := make([]uber_config.YAMLOption, 0, len(files)+1)
	for _, f := range files {
		options = append(options, uber_config.File(f))
	}
	options = append(options, uber_config.Expand(os.LookupEnv))

	provider, err := uber_config.NewYAML(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return Config{provider: provider}, nil
}

// listedFiles returns the files named in meta.yaml that exist in configDir.
func listedFiles(configDir string) ([]string, error) {
	meta, err := uber_config.NewYAML(
		uber_config.File(filepath.Join(configDir, _metaFile)),
		uber_config.Expand(os.LookupEnv),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load meta configuration: %w", err)
	}

	var names []string
	if err := meta.Get(_metaKeyFiles).Populate(&names); err != nil {
		return nil, fmt.Errorf("failed to read files list from %s: %w", _metaFile, err)
	}

	var files []string
	for _, name := range names {
		path := filepath.Join(configDir, name)
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no configuration files found in %s", configDir)
	}
	return files, nil
}

// getConfigDir prefers AGENTMUX_CONFIG_DIR, then the repository layout, then a config
// directory next to the installed binary.
func getConfigDir() string {
	if configDir := os.Getenv(EnvConfigDir); configDir != "" {
		return configDir
	}
	if dirExists(_defaultConfigDir) {
		return _defaultConfigDir
	}
	if exe, err := os.Executable(); err == nil {
		if dir := filepath.Join(filepath.Dir(exe), _installConfigDir); dirExists(dir) {
			return dir
		}
	}
	return _defaultConfigDir
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
