package mapper

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/agentmux/agentmux/src/agentmux/entity"
	"github.com/agentmux/agentmux/src/agentmux/factory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
)

func newCall(t *testing.T, method string, params string) jsonrpc2.Request {
	t.Helper()
	req, err := jsonrpc2.NewCall(jsonrpc2.NewNumberID(1), method, json.RawMessage(params))
	require.NoError(t, err)
	return req
}

func TestRequestToWorkspaceEntry(t *testing.T) {
	entry, err := RequestToWorkspaceEntry(newCall(t, "connect_workspace",
		`{"id":"ws-1","path":"/src/api","agentBin":"/opt/codex","agentArgs":"--profile work"}`))
	require.NoError(t, err)
	assert.Equal(t, &entity.WorkspaceEntry{
		ID:        "ws-1",
		Name:      "api",
		Path:      "/src/api",
		AgentBin:  "/opt/codex",
		AgentArgs: "--profile work",
	}, entry)

	entry, err = RequestToWorkspaceEntry(newCall(t, "connect_workspace", `{"id":"ws-1","path":"/src/api","name":"API"}`))
	require.NoError(t, err)
	assert.Equal(t, "API", entry.Name)

	_, err = RequestToWorkspaceEntry(newCall(t, "connect_workspace", `{"id":"ws-1"}`))
	assert.EqualError(t, err, "missing or invalid `path`")
}

func TestRequestToRelayRequest(t *testing.T) {
	relay, err := RequestToRelayRequest(newCall(t, "send_request", `{"workspaceId":"ws","method":"thread/start","params":{"cwd":"/src"}}`))
	require.NoError(t, err)
	assert.Equal(t, "ws", relay.WorkspaceID)
	assert.Equal(t, "thread/start", relay.Method)
	assert.JSONEq(t, `{"cwd":"/src"}`, string(relay.Params))

	relay, err = RequestToRelayRequest(newCall(t, "send_notification", `{"workspaceId":"ws","method":"ping"}`))
	require.NoError(t, err)
	assert.Nil(t, relay.Params)

	_, err = RequestToRelayRequest(newCall(t, "send_request", `{"workspaceId":"ws"}`))
	assert.EqualError(t, err, "missing or invalid `method`")
}

func TestRequestToServerResponse(t *testing.T) {
	resp, err := RequestToServerResponse(newCall(t, "respond_to_server_request", `{"workspaceId":"ws","requestId":"req-1","result":{"decision":"accept"}}`))
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`"req-1"`), resp.RequestID)
	assert.JSONEq(t, `{"decision":"accept"}`, string(resp.Result))

	_, err = RequestToServerResponse(newCall(t, "respond_to_server_request", `{"workspaceId":"ws","result":{}}`))
	assert.EqualError(t, err, "missing `requestId`")

	_, err = RequestToServerResponse(newCall(t, "respond_to_server_request", `{"workspaceId":"ws","requestId":4}`))
	assert.EqualError(t, err, "missing `result`")
}

func TestRequestToTerminalOpen(t *testing.T) {
	open, err := RequestToTerminalOpen(newCall(t, "terminal_open", `{"workspaceId":"ws"}`))
	require.NoError(t, err)
	assert.Equal(t, &entity.TerminalOpenRequest{WorkspaceID: "ws", Cols: 80, Rows: 24}, open)

	open, err = RequestToTerminalOpen(newCall(t, "terminal_open", `{"workspaceId":"ws","cols":120,"rows":40,"shell":"/bin/zsh"}`))
	require.NoError(t, err)
	assert.Equal(t, &entity.TerminalOpenRequest{WorkspaceID: "ws", Cols: 120, Rows: 40, Shell: "/bin/zsh"}, open)

	_, err = RequestToTerminalOpen(newCall(t, "terminal_open", `{"workspaceId":"ws","cols":70000}`))
	assert.EqualError(t, err, "invalid `cols`")

	_, err = RequestToTerminalOpen(newCall(t, "terminal_open", `{"workspaceId":"ws","rows":0}`))
	assert.EqualError(t, err, "invalid `rows`")
}

func TestRequestToTerminalWriteAndResize(t *testing.T) {
	id, data, err := RequestToTerminalWrite(newCall(t, "terminal_write", `{"terminalId":"t1","data":"ls\n"}`))
	require.NoError(t, err)
	assert.Equal(t, "t1", id)
	assert.Equal(t, "ls\n", data)

	_, _, err = RequestToTerminalWrite(newCall(t, "terminal_write", `{"terminalId":"t1"}`))
	assert.EqualError(t, err, "missing or invalid `data`")

	resize, err := RequestToTerminalResize(newCall(t, "terminal_resize", `{"terminalId":"t1","cols":100,"rows":30}`))
	require.NoError(t, err)
	assert.Equal(t, &entity.TerminalResizeRequest{TerminalID: "t1", Cols: 100, Rows: 30}, resize)

	_, err = RequestToTerminalResize(newCall(t, "terminal_resize", `{"terminalId":"t1","cols":100}`))
	assert.EqualError(t, err, "missing `rows`")
}

func TestContextToConnectionUUID(t *testing.T) {
	id := factory.UUID()
	got, err := ContextToConnectionUUID(context.WithValue(context.Background(), entity.ConnectionContextKey, id))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ContextToConnectionUUID(context.Background())
	assert.Error(t, err)
}

func TestRawParams(t *testing.T) {
	got, err := RawParams(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = RawParams(json.RawMessage(`[1]`))
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`[1]`), got)

	got, err = RawParams(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))

	_, err = RawParams(func() {})
	assert.Error(t, err)
}
