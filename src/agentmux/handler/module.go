package handler

import (
	controller "github.com/agentmux/agentmux/src/agentmux/controller"
	"github.com/agentmux/agentmux/src/agentmux/controller/workspace"
	handler "github.com/agentmux/agentmux/src/agentmux/handler/daemon"
	"github.com/agentmux/agentmux/src/agentmux/repository/session"
	"go.uber.org/fx"
)

// Module provides the agentmux daemon handlers into an Fx application.
var Module = fx.Options(
	controller.Module,
	session.Module,
	fx.Provide(handler.New),
	fx.Invoke(func(m handler.Handler) {}),
	fx.Invoke(func(m workspace.Controller) {}),
)
