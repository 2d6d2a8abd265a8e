package errors

import "fmt"

// InstallError covers a missing binary, a failing version check, or a spawn failure.
// These are fatal to session construction and never retried automatically.
type InstallError struct {
	// Summary states what failed.
	Summary string
	// Remediation states what the user can try.
	Remediation string
	Err         error
}

// Error is an implementation of the error interface.
func (e *InstallError) Error() string {
	if e.Remediation == "" {
		return e.Summary
	}
	return e.Summary + " " + e.Remediation
}

// Unwrap returns the underlying cause, if any.
func (e *InstallError) Unwrap() error {
	return e.Err
}

// IsInstallError reports whether an InstallError is part of the error chain.
func IsInstallError(e error) bool {
	var ie *InstallError
	return As(e, &ie)
}

// HandshakeTimeoutError reports that the child did not answer initialize in time.
type HandshakeTimeoutError struct {
	Product string
	Binary  string
}

// Error is an implementation of the error interface.
func (e *HandshakeTimeoutError) Error() string {
	return fmt.Sprintf("%s app-server did not respond to initialize. Check that `%s app-server` works in Terminal.", e.Product, e.Binary)
}

// RPCError carries the message of a JSON-RPC error object returned by the child.
type RPCError struct {
	Method  string
	Message string
}

// Error is an implementation of the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Method, e.Message)
}
