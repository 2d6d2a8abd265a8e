package daemon

import (
	"context"

	"github.com/agentmux/agentmux/src/agentmux/mapper"
	"go.lsp.dev/jsonrpc2"
)

// ListWorkspaces returns every known workspace and whether its agent is connected.
func (r *jsonRPCRouter) ListWorkspaces(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	return reply(ctx, r.workspaces.List(ctx), nil)
}

// ConnectWorkspace spawns the agent of a workspace and waits for its handshake.
func (r *jsonRPCRouter) ConnectWorkspace(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	entry, err := mapper.RequestToWorkspaceEntry(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	result, err := r.workspaces.Connect(ctx, *entry)
	if err != nil {
		return reply(ctx, nil, err)
	}
	return reply(ctx, result, nil)
}

func (r *jsonRPCRouter) DisconnectWorkspace(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	id, err := mapper.RequestToWorkspaceID(req)
	if err != nil {
		return reply(ctx, nil, err)
	}
	if err := r.workspaces.Disconnect(ctx, id); err != nil {
		return reply(ctx, nil, err)
	}
	return reply(ctx, _ok, nil)
}

// SendRequest relays a request to the agent and replies with the agent's full response message.
func (r *jsonRPCRouter) SendRequest(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	relay, err := mapper.RequestToRelayRequest(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	result, err := r.workspaces.SendRequest(ctx, *relay)
	if err != nil {
		return reply(ctx, nil, err)
	}
	return reply(ctx, result, nil)
}

func (r *jsonRPCRouter) SendNotification(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	relay, err := mapper.RequestToRelayRequest(req)
	if err != nil {
		return reply(ctx, nil, err)
	}
	if err := r.workspaces.SendNotification(ctx, *relay); err != nil {
		return reply(ctx, nil, err)
	}
	return reply(ctx, _ok, nil)
}

// RespondToServerRequest answers a request that the agent sent to its client.
func (r *jsonRPCRouter) RespondToServerRequest(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	resp, err := mapper.RequestToServerResponse(req)
	if err != nil {
		return reply(ctx, nil, err)
	}
	if err := r.workspaces.RespondToServerRequest(ctx, *resp); err != nil {
		return reply(ctx, nil, err)
	}
	return reply(ctx, _ok, nil)
}
