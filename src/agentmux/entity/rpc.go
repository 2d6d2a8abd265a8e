package entity

import "encoding/json"

// RelayRequest asks a workspace session to forward a request or notification to its agent.
type RelayRequest struct {
	WorkspaceID string
	Method      string
	// Params is omitted from the outbound line when nil.
	Params json.RawMessage
}

// ServerResponse answers a request that the agent initiated.
type ServerResponse struct {
	WorkspaceID string
	RequestID   json.RawMessage
	Result      json.RawMessage
}

// TerminalOpenRequest starts a PTY in a workspace.
type TerminalOpenRequest struct {
	WorkspaceID string
	Cols        uint16
	Rows        uint16
	// Shell overrides the user's login shell when non-blank.
	Shell string
}

// TerminalResizeRequest changes the window size of a terminal.
type TerminalResizeRequest struct {
	TerminalID string
	Cols       uint16
	Rows       uint16
}

// DaemonInfo describes the running daemon.
type DaemonInfo struct {
	Version     string `json:"version"`
	PID         int    `json:"pid"`
	StartedAt   string `json:"startedAt"`
	Connections int    `json:"connections"`
	Workspaces  int    `json:"workspaces"`
}

// OK is the result of calls that return no data.
type OK struct {
	OK bool `json:"ok"`
}

// ConnectResult is returned once a workspace session is live.
type ConnectResult struct {
	WorkspaceID string `json:"workspaceId"`
	Version     string `json:"version"`
}

// TerminalOpenResult identifies a newly opened terminal.
type TerminalOpenResult struct {
	TerminalID string `json:"terminalId"`
}
