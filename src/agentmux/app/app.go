package app

import (
	"context"
	"time"

	"github.com/agentmux/agentmux/src/agentmux/gateway"
	"github.com/agentmux/agentmux/src/agentmux/handler"
	"github.com/agentmux/agentmux/src/agentmux/internal/clock"
	"github.com/agentmux/agentmux/src/agentmux/internal/core"
	"github.com/agentmux/agentmux/src/agentmux/internal/daemonlog"
	"github.com/agentmux/agentmux/src/agentmux/internal/eventhub"
	"github.com/agentmux/agentmux/src/agentmux/internal/executor"
	"github.com/agentmux/agentmux/src/agentmux/internal/fs"
	"github.com/agentmux/agentmux/src/agentmux/internal/instancelock"
	"github.com/agentmux/agentmux/src/agentmux/internal/jsonrpcfx"
	"github.com/agentmux/agentmux/src/agentmux/internal/logfilewriter"
	"github.com/agentmux/agentmux/src/agentmux/internal/serverinfofile"
	tally "github.com/uber-go/tally/v4"
	"go.uber.org/fx"
)

// Module defines the agentmuxd application module.
var Module = fx.Options(
	// The lock must be held before the listener binds, so it is started first.
	fx.Invoke(func(instancelock.Lock) {}),
	gateway.Module, // outbounds
	handler.Module, // inbounds
	jsonrpcfx.Module,
	instancelock.Module,
	eventhub.Module,
	daemonlog.Module,
	logfilewriter.Module,
	fs.Module,
	clock.Module,
	executor.Module,
	serverinfofile.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(func(lc fx.Lifecycle) tally.Scope {
		rs, closer := tally.NewRootScope(tally.ScopeOptions{
			Tags: map[string]string{
				"service": "agentmuxd",
			},
		}, 1*time.Second)

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})

		return rs
	}),
	fx.Decorate(decorateEnvContext),
	fx.Decorate(decorateConfigProvider),
	fx.Provide(func() Context {
		return Context{
			Environment:        EnvLocal,
			RuntimeEnvironment: EnvLocal,
		}
	}),
)
