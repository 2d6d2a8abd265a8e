package errors

import (
	"fmt"
)

// WorkspaceNotFoundError is a service domain error for a workspace without a live session.
type WorkspaceNotFoundError struct {
	ID string
}

// Error is an implementation of the error interface.
func (n *WorkspaceNotFoundError) Error() string {
	return fmt.Sprintf("workspace %q is not connected", n.ID)
}

// NotFoundWorkspace returns the workspace id and true if WorkspaceNotFoundError is part of the
// error chain.
func NotFoundWorkspace(e error) (_ string, ok bool) {
	var nf *WorkspaceNotFoundError
	if !As(e, &nf) {
		return "", false
	}
	return nf.ID, true
}

// TerminalNotFoundError indicates that no open terminal has the given id.
type TerminalNotFoundError struct {
	ID string
}

// Error is an implementation of the error interface.
func (n *TerminalNotFoundError) Error() string {
	return fmt.Sprintf("terminal %q not found", n.ID)
}
