// Package entity contains the domain types shared by the agentmux layers.
package entity

import (
	"context"
	"encoding/json"
	"strings"
)

type keyType string

// ConnectionContextKey identifies the daemon connection UUID in a request context.
const ConnectionContextKey keyType = "ConnectionUUID"

// DefaultAgentBin is used when neither the workspace nor the config names a binary.
const DefaultAgentBin = "codex"

// WorkspaceEntry describes one workspace whose agent runs as a child process.
type WorkspaceEntry struct {
	ID   string `json:"id" zap:"id"`
	Name string `json:"name" zap:"name"`
	// Path is the working directory of the child process.
	Path string `json:"path" zap:"path"`
	// AgentBin overrides the configured agent binary when non-blank.
	AgentBin string `json:"agentBin,omitempty" zap:"agentBin"`
	// AgentArgs are shell-words arguments placed before the app-server subcommand.
	AgentArgs string `json:"agentArgs,omitempty" zap:"agentArgs"`
}

// ResolveBin returns the binary to run for this entry.
func (e WorkspaceEntry) ResolveBin(fallback string) string {
	if strings.TrimSpace(e.AgentBin) != "" {
		return e.AgentBin
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return DefaultAgentBin
}

// WorkspaceInfo is the listing view of a workspace.
type WorkspaceInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Connected bool   `json:"connected"`
	Version   string `json:"version,omitempty"`
}

// AgentSession is the request/notification API of a live child process.
type AgentSession interface {
	// Entry returns the workspace the session was spawned for.
	Entry() WorkspaceEntry
	// Version returns the agent version reported by the probe, if any.
	Version() string
	// SendRequest writes a correlated request and waits for the full response message.
	SendRequest(ctx context.Context, method string, params any) (json.RawMessage, error)
	// SendNotification writes a fire-and-forget notification. A nil params omits the field.
	SendNotification(ctx context.Context, method string, params any) error
	// SendResponse answers a server-initiated request.
	SendResponse(ctx context.Context, id json.RawMessage, result any) error
	// RegisterBackground diverts every message tagged with threadID to the returned channel.
	RegisterBackground(threadID string) <-chan json.RawMessage
	// UnregisterBackground restores general delivery for threadID and closes its channel.
	UnregisterBackground(threadID string)
	// Done is closed once the child process has exited or the session was closed.
	Done() <-chan struct{}
	Close() error
}
