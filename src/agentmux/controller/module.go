package controller

import (
	"github.com/agentmux/agentmux/src/agentmux/controller/terminal"
	"github.com/agentmux/agentmux/src/agentmux/controller/workspace"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(workspace.New),
	fx.Provide(terminal.New),
)
