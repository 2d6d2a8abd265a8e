package mapper

import (
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"strings"

	"github.com/agentmux/agentmux/src/agentmux/entity"
	"github.com/agentmux/agentmux/src/agentmux/internal/errors"
	"github.com/gofrs/uuid"
	"go.lsp.dev/jsonrpc2"
)

const (
	_defaultCols = 80
	_defaultRows = 24
)

// RequestToWorkspaceEntry maps connect_workspace params into a WorkspaceEntry.
func RequestToWorkspaceEntry(req jsonrpc2.Request) (*entity.WorkspaceEntry, error) {
	p := req.Params()
	id, err := String(p, "id")
	if err != nil {
		return nil, err
	}
	path, err := String(p, "path")
	if err != nil {
		return nil, err
	}

	entry := &entity.WorkspaceEntry{ID: id, Path: path}
	if name, ok := OptionalString(p, "name"); ok && strings.TrimSpace(name) != "" {
		entry.Name = name
	} else {
		entry.Name = filepath.Base(path)
	}
	entry.AgentBin, _ = OptionalString(p, "agentBin")
	entry.AgentArgs, _ = OptionalString(p, "agentArgs")
	return entry, nil
}

// RequestToWorkspaceID reads the workspaceId param.
func RequestToWorkspaceID(req jsonrpc2.Request) (string, error) {
	return String(req.Params(), "workspaceId")
}

// RequestToRelayRequest maps send_request and send_notification params.
func RequestToRelayRequest(req jsonrpc2.Request) (*entity.RelayRequest, error) {
	p := req.Params()
	workspaceID, err := String(p, "workspaceId")
	if err != nil {
		return nil, err
	}
	method, err := String(p, "method")
	if err != nil {
		return nil, err
	}
	return &entity.RelayRequest{
		WorkspaceID: workspaceID,
		Method:      method,
		Params:      OptionalValue(p, "params"),
	}, nil
}

// RequestToServerResponse maps respond_to_server_request params.
func RequestToServerResponse(req jsonrpc2.Request) (*entity.ServerResponse, error) {
	p := req.Params()
	workspaceID, err := String(p, "workspaceId")
	if err != nil {
		return nil, err
	}
	requestID := OptionalValue(p, "requestId")
	if requestID == nil {
		return nil, &errors.ParamError{Key: "requestId", Reason: errors.ParamMissing}
	}
	result := OptionalValue(p, "result")
	if result == nil {
		return nil, &errors.ParamError{Key: "result", Reason: errors.ParamMissing}
	}
	return &entity.ServerResponse{WorkspaceID: workspaceID, RequestID: requestID, Result: result}, nil
}

// RequestToTerminalOpen maps terminal_open params, defaulting to an 80x24 window.
func RequestToTerminalOpen(req jsonrpc2.Request) (*entity.TerminalOpenRequest, error) {
	p := req.Params()
	workspaceID, err := String(p, "workspaceId")
	if err != nil {
		return nil, err
	}
	cols, err := dimension(p, "cols", _defaultCols)
	if err != nil {
		return nil, err
	}
	rows, err := dimension(p, "rows", _defaultRows)
	if err != nil {
		return nil, err
	}
	shell, _ := OptionalString(p, "shell")
	return &entity.TerminalOpenRequest{WorkspaceID: workspaceID, Cols: cols, Rows: rows, Shell: shell}, nil
}

// RequestToTerminalID reads the terminalId param.
func RequestToTerminalID(req jsonrpc2.Request) (string, error) {
	return String(req.Params(), "terminalId")
}

// RequestToTerminalWrite reads the terminalId and data params.
func RequestToTerminalWrite(req jsonrpc2.Request) (terminalID string, data string, err error) {
	p := req.Params()
	if terminalID, err = String(p, "terminalId"); err != nil {
		return "", "", err
	}
	if data, err = String(p, "data"); err != nil {
		return "", "", err
	}
	return terminalID, data, nil
}

// RequestToTerminalResize maps terminal_resize params. Both dimensions are required.
func RequestToTerminalResize(req jsonrpc2.Request) (*entity.TerminalResizeRequest, error) {
	p := req.Params()
	terminalID, err := String(p, "terminalId")
	if err != nil {
		return nil, err
	}
	for _, key := range []string{"cols", "rows"} {
		if OptionalValue(p, key) == nil {
			return nil, &errors.ParamError{Key: key, Reason: errors.ParamMissing}
		}
	}
	cols, err := dimension(p, "cols", 0)
	if err != nil {
		return nil, err
	}
	rows, err := dimension(p, "rows", 0)
	if err != nil {
		return nil, err
	}
	return &entity.TerminalResizeRequest{TerminalID: terminalID, Cols: cols, Rows: rows}, nil
}

// ContextToConnectionUUID extracts the daemon connection id from a context.
func ContextToConnectionUUID(ctx context.Context) (uuid.UUID, error) {
	id, ok := ctx.Value(entity.ConnectionContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("no connection found in context")
	}
	return id, nil
}

// RawParams encodes params for an outbound request, keeping nil as nil.
func RawParams(params any) (json.RawMessage, error) {
	switch v := params.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

func dimension(params json.RawMessage, key string, fallback uint16) (uint16, error) {
	n, ok, err := OptionalUint32(params, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return fallback, nil
	}
	if n == 0 || n > math.MaxUint16 {
		return 0, &errors.ParamError{Key: key, Reason: errors.ParamInvalid}
	}
	return uint16(n), nil
}
