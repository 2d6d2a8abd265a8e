package daemon

import (
	"context"

	"github.com/agentmux/agentmux/src/agentmux/controller/terminal"
	"github.com/agentmux/agentmux/src/agentmux/controller/workspace"
	"github.com/agentmux/agentmux/src/agentmux/entity"
	"github.com/agentmux/agentmux/src/agentmux/internal/jsonrpcfx"
	"github.com/gofrs/uuid"
	tally "github.com/uber-go/tally/v4"
	"go.lsp.dev/jsonrpc2"
)

// Daemon method names.
const (
	MethodAuth                   = "auth"
	MethodPing                   = "ping"
	MethodDaemonInfo             = "daemon_info"
	MethodListWorkspaces         = "list_workspaces"
	MethodConnectWorkspace       = "connect_workspace"
	MethodDisconnectWorkspace    = "disconnect_workspace"
	MethodSendRequest            = "send_request"
	MethodSendNotification       = "send_notification"
	MethodRespondToServerRequest = "respond_to_server_request"
	MethodTerminalOpen           = "terminal_open"
	MethodTerminalWrite          = "terminal_write"
	MethodTerminalResize         = "terminal_resize"
	MethodTerminalClose          = "terminal_close"
)

var _ok = entity.OK{OK: true}

type jsonRPCRouter struct {
	workspaces workspace.Controller
	terminals  terminal.Controller
	transport  jsonrpcfx.JSONRPCModule
	uuid       uuid.UUID
	stats      tally.Scope
}

// HandleReq handles routing for a single request.
func (r *jsonRPCRouter) HandleReq(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	ctx = context.WithValue(ctx, entity.ConnectionContextKey, r.uuid)
	if r.stats != nil {
		defer r.stats.Tagged(map[string]string{"method": req.Method()}).Timer("latency").Start().Stop()
	}

	switch req.Method() {
	// The transport handles auth on unauthenticated connections. Repeating it is harmless.
	case MethodAuth, MethodPing:
		return reply(ctx, _ok, nil)

	case MethodDaemonInfo:
		return r.DaemonInfo(ctx, reply, req)

	// Workspace methods.
	case MethodListWorkspaces:
		return r.ListWorkspaces(ctx, reply, req)

	case MethodConnectWorkspace:
		return r.ConnectWorkspace(ctx, reply, req)

	case MethodDisconnectWorkspace:
		return r.DisconnectWorkspace(ctx, reply, req)

	case MethodSendRequest:
		return r.SendRequest(ctx, reply, req)

	case MethodSendNotification:
		return r.SendNotification(ctx, reply, req)

	case MethodRespondToServerRequest:
		return r.RespondToServerRequest(ctx, reply, req)

	// Terminal methods.
	case MethodTerminalOpen:
		return r.TerminalOpen(ctx, reply, req)

	case MethodTerminalWrite:
		return r.TerminalWrite(ctx, reply, req)

	case MethodTerminalResize:
		return r.TerminalResize(ctx, reply, req)

	case MethodTerminalClose:
		return r.TerminalClose(ctx, reply, req)
	}

	return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
}

// UUID returns the id of the connection served by this router.
func (r *jsonRPCRouter) UUID() uuid.UUID {
	return r.uuid
}

// DaemonInfo describes the daemon process and its open connections.
func (r *jsonRPCRouter) DaemonInfo(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	info := r.workspaces.Info(ctx)
	if r.transport != nil {
		info.Connections = r.transport.ConnectionCount()
	}
	return reply(ctx, info, nil)
}
