// Package gateway groups the outbound layer: agent processes and event delivery.
package gateway

import (
	appserver "github.com/agentmux/agentmux/src/agentmux/gateway/app-server"
	eventsink "github.com/agentmux/agentmux/src/agentmux/gateway/event-sink"
	"go.uber.org/fx"
)

// Module is the Fx module for the gateway layer.
var Module = fx.Options(
	appserver.Module,
	eventsink.Module,
)
