package daemon

import (
	"context"

	"github.com/agentmux/agentmux/src/agentmux/mapper"
	"go.lsp.dev/jsonrpc2"
)

// TerminalOpen starts a shell in the workspace directory. Its output arrives as terminal-output-event notifications.
func (r *jsonRPCRouter) TerminalOpen(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	open, err := mapper.RequestToTerminalOpen(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	result, err := r.terminals.Open(ctx, *open)
	if err != nil {
		return reply(ctx, nil, err)
	}
	return reply(ctx, result, nil)
}

func (r *jsonRPCRouter) TerminalWrite(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	id, data, err := mapper.RequestToTerminalWrite(req)
	if err != nil {
		return reply(ctx, nil, err)
	}
	if err := r.terminals.Write(ctx, id, data); err != nil {
		return reply(ctx, nil, err)
	}
	return reply(ctx, _ok, nil)
}

func (r *jsonRPCRouter) TerminalResize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	resize, err := mapper.RequestToTerminalResize(req)
	if err != nil {
		return reply(ctx, nil, err)
	}
	if err := r.terminals.Resize(ctx, *resize); err != nil {
		return reply(ctx, nil, err)
	}
	return reply(ctx, _ok, nil)
}

// TerminalClose kills the shell. A terminal-exit-event follows.
func (r *jsonRPCRouter) TerminalClose(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	id, err := mapper.RequestToTerminalID(req)
	if err != nil {
		return reply(ctx, nil, err)
	}
	if err := r.terminals.Close(ctx, id); err != nil {
		return reply(ctx, nil, err)
	}
	return reply(ctx, _ok, nil)
}
