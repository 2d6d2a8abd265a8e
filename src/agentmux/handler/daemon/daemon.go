// Package daemon implements the agentmux daemon's JSON-RPC handlers.
package daemon

import (
	"context"

	"github.com/agentmux/agentmux/src/agentmux/controller/terminal"
	"github.com/agentmux/agentmux/src/agentmux/controller/workspace"
	"github.com/agentmux/agentmux/src/agentmux/internal/jsonrpcfx"
	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Handler hands each daemon client connection a Router.
type Handler interface {
	jsonrpcfx.ConnectionManager
}

// Params are inbound parameters to initialize a new handler.
type Params struct {
	fx.In

	Workspaces workspace.Controller
	Terminals  terminal.Controller
	JSONRPC    jsonrpcfx.JSONRPCModule
	Logger     *zap.SugaredLogger
	Stats      tally.Scope
}

type connectionManager struct {
	workspaces workspace.Controller
	terminals  terminal.Controller
	transport  jsonrpcfx.JSONRPCModule
	logger     *zap.SugaredLogger
	stats      tally.Scope
}

// New constructs the daemon Handler and registers it with the JSON-RPC transport.
func New(p Params) (Handler, error) {
	c := &connectionManager{
		workspaces: p.Workspaces,
		terminals:  p.Terminals,
		transport:  p.JSONRPC,
		logger:     p.Logger,
		stats:      p.Stats,
	}
	if c.logger == nil {
		c.logger = zap.NewNop().Sugar()
	}
	if c.stats == nil {
		c.stats = tally.NoopScope
	}
	c.stats = c.stats.SubScope("json_rpc")

	if err := p.JSONRPC.RegisterConnectionManager(c); err != nil {
		return nil, err
	}
	return c, nil
}

// NewConnection will store a new connection and return a router that includes its UUID.
func (c *connectionManager) NewConnection(ctx context.Context, peer string) (jsonrpcfx.Router, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	c.logger.Debugf("routing connection %s from %s", id, peer)

	return &jsonRPCRouter{
		workspaces: c.workspaces,
		terminals:  c.terminals,
		transport:  c.transport,
		uuid:       id,
		stats:      c.stats,
	}, nil
}

// RemoveConnection is called once a connection has closed.
func (c *connectionManager) RemoveConnection(ctx context.Context, id uuid.UUID) {
	c.logger.Debugf("connection %s removed", id)
}
