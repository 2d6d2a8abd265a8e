package appserver

import (
	"context"
	"fmt"
	"time"

	"github.com/agentmux/agentmux/src/agentmux/internal/core"
	"github.com/agentmux/agentmux/src/agentmux/internal/errors"
	"github.com/agentmux/agentmux/src/agentmux/internal/protocol"
)

const (
	_methodInitialize  = "initialize"
	_methodInitialized = "initialized"
)

type clientInfo struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Version string `json:"version"`
}

type initializeParams struct {
	ClientInfo clientInfo `json:"clientInfo"`
}

type handshake struct {
	timeout time.Duration
	// product and bin name the agent in user-facing errors.
	product string
	bin     string
}

// handshake sends initialize, waits up to h.timeout for the response, then sends initialized
// and emits the connected event.
func (s *session) handshake(ctx context.Context, h handshake) error {
	hctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp, err := s.SendRequest(hctx, _methodInitialize, initializeParams{
		ClientInfo: clientInfo{
			Name:    core.ClientName,
			Title:   core.ClientName,
			Version: core.Version,
		},
	})
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &errors.HandshakeTimeoutError{Product: h.product, Binary: h.bin}
	case errors.Is(err, errors.ErrRequestCanceled), errors.Is(err, errors.ErrSessionClosed):
		return &errors.InstallError{
			Summary:     fmt.Sprintf("%s app-server exited during initialize.", h.product),
			Remediation: fmt.Sprintf("Check that `%s app-server` works in Terminal.", h.bin),
			Err:         err,
		}
	case err != nil:
		return err
	}

	if msg, ok := protocol.ResponseError(resp); ok {
		return &errors.RPCError{Method: _methodInitialize, Message: msg}
	}

	if err := s.SendNotification(ctx, _methodInitialized, nil); err != nil {
		return err
	}
	s.connected.Store(true)
	s.emitDiagnostic(MethodConnected, map[string]string{"workspaceId": s.entry.ID})
	return nil
}
