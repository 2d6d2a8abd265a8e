package core

// ClientName identifies agentmux to agent processes and daemon clients.
const ClientName = "agentmux"

// Version is the agentmux version, set at build time with
// -ldflags "-X github.com/agentmux/agentmux/src/agentmux/internal/core.Version=...".
var Version = "0.1.0-dev"
