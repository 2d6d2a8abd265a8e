// Package factory builds values for tests.
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/agentmux/agentmux/src/agentmux/entity"
	"github.com/gofrs/uuid"
	"go.lsp.dev/jsonrpc2"
)

// UUID is a user-defined factory for a random uuid.UUID.
func UUID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

// JSONRPCRequest is a user-defined factory for a JSON-RPC request containing the specified method and parameters.
func JSONRPCRequest(method string, params interface{}) jsonrpc2.Request {
	req, _ := jsonrpc2.NewCall(jsonrpc2.NewNumberID(5), method, params)
	return req
}

// JSONRPCRawRequest builds a request whose params are the given JSON text.
func JSONRPCRawRequest(method string, params string) jsonrpc2.Request {
	return JSONRPCRequest(method, json.RawMessage(params))
}

// WorkspaceEntry is a factory for a workspace rooted at path.
func WorkspaceEntry(id int, path string) entity.WorkspaceEntry {
	return entity.WorkspaceEntry{
		ID:   fmt.Sprintf("ws-%d", id),
		Name: fmt.Sprintf("workspace-%d", id),
		Path: path,
	}
}
