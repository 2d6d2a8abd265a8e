package mapper

import (
	"context"

	"github.com/agentmux/agentmux/src/agentmux/internal/errors"
	"go.lsp.dev/jsonrpc2"
)

// ToWireMessage converts an error returned by a handler into the short message sent to a client.
func ToWireMessage(method string, err error) string {
	if err == nil {
		return ""
	}

	var (
		rpcErr   *jsonrpc2.Error
		agentErr *errors.RPCError
	)
	switch {
	case errors.Is(err, jsonrpc2.ErrMethodNotFound):
		return "method not found: " + method
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return errors.ErrRequestCanceled.Error()
	case errors.As(err, &rpcErr):
		return rpcErr.Message
	case errors.As(err, &agentErr):
		return agentErr.Message
	default:
		return err.Error()
	}
}

// Error kinds reported by ErrorKind.
const (
	ErrorKindBadRequest     = "bad_request"
	ErrorKindNotFound       = "not_found"
	ErrorKindInstall        = "install"
	ErrorKindMethodNotFound = "method_not_found"
	ErrorKindCanceled       = "canceled"
	ErrorKindAgent          = "agent"
	ErrorKindInternal       = "internal"
)

// ErrorKind classifies a handler error for metrics and logging.
// Caller mistakes and agent-side failures are separated from errors of the daemon itself.
func ErrorKind(err error) string {
	var agentErr *errors.RPCError
	switch {
	case errors.IsBadRequest(err):
		return ErrorKindBadRequest
	case errors.Is(err, jsonrpc2.ErrMethodNotFound):
		return ErrorKindMethodNotFound
	case errors.IsInstallError(err):
		return ErrorKindInstall
	case errors.As(err, &agentErr):
		return ErrorKindAgent
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, errors.ErrRequestCanceled):
		return ErrorKindCanceled
	}
	if _, ok := errors.NotFoundWorkspace(err); ok {
		return ErrorKindNotFound
	}
	var terminalErr *errors.TerminalNotFoundError
	if errors.As(err, &terminalErr) {
		return ErrorKindNotFound
	}
	return ErrorKindInternal
}
