package daemonlog

import (
	"context"
	"fmt"

	"github.com/agentmux/agentmux/src/agentmux/internal/fs"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const _configKeyDataDir = "dataDir"

// Module provides the daemon audit log.
var Module = fx.Provide(New)

// Params define values to be used by the daemon audit log.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
	FS        fs.MuxFS
}

// New opens <dataDir>/daemon.log and closes it when the application stops.
func New(p Params) (Logger, error) {
	var dataDir string
	if err := p.Config.Get(_configKeyDataDir).Populate(&dataDir); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKeyDataDir, err)
	}
	if dataDir == "" {
		return nil, fmt.Errorf("missing field %q in config", _configKeyDataDir)
	}

	l := Open(dataDir, WithFS(p.FS), WithErrorLogger(p.Logger))
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return l.Close()
		},
	})
	return l, nil
}
