package entity

import "encoding/json"

// Wire method names of daemon event notifications.
const (
	MethodProcessEvent        = "process-event"
	MethodTerminalOutputEvent = "terminal-output-event"
	MethodTerminalExitEvent   = "terminal-exit-event"
)

// DaemonEvent is one of ProcessEvent, TerminalOutput or TerminalExit.
type DaemonEvent interface {
	// EventMethod returns the notification method used on the daemon wire.
	EventMethod() string
	daemonEvent()
}

// ProcessEvent carries one message that a child process emitted.
type ProcessEvent struct {
	WorkspaceID string          `json:"workspaceId"`
	Message     json.RawMessage `json:"message"`
}

// TerminalOutput carries a chunk of terminal output.
type TerminalOutput struct {
	WorkspaceID string `json:"workspaceId"`
	TerminalID  string `json:"terminalId"`
	Data        string `json:"data"`
}

// TerminalExit reports that a terminal's process exited.
type TerminalExit struct {
	WorkspaceID string `json:"workspaceId"`
	TerminalID  string `json:"terminalId"`
	ExitCode    int    `json:"exitCode"`
}

func (ProcessEvent) EventMethod() string   { return MethodProcessEvent }
func (TerminalOutput) EventMethod() string { return MethodTerminalOutputEvent }
func (TerminalExit) EventMethod() string   { return MethodTerminalExitEvent }

func (ProcessEvent) daemonEvent()   {}
func (TerminalOutput) daemonEvent() {}
func (TerminalExit) daemonEvent()   {}

// EventSink accepts events and forwards them to whatever medium it implements.
type EventSink interface {
	Emit(event DaemonEvent)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(event DaemonEvent)

// Emit calls f(event).
func (f EventSinkFunc) Emit(event DaemonEvent) {
	f(event)
}
