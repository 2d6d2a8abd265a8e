package errors

import stderr "errors"

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderr.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderr.As(err, target)
}

var (
	// ErrRequestCanceled reports that a request's reply slot was dropped before a reply arrived.
	ErrRequestCanceled = New("request canceled")
	// ErrSessionClosed reports a write to a session that has already been torn down.
	ErrSessionClosed = New("session closed")
	// ErrUnauthorized is returned to a connection that calls a method before authenticating.
	ErrUnauthorized = New("unauthorized")
	// ErrInvalidToken is returned to a connection whose auth token does not match.
	ErrInvalidToken = New("invalid token")
	// ErrWorkspaceExists reports a connect for a workspace that already has a live session.
	ErrWorkspaceExists = New("workspace already connected")
	// ErrNoParams reports a call that requires an object as params.
	ErrNoParams = New("params must be an object")
)

// IsBadRequest reports whether the error is a bad request from the caller.
func IsBadRequest(e error) bool {
	var pe *ParamError
	return stderr.As(e, &pe) || stderr.Is(e, ErrNoParams) || stderr.Is(e, ErrWorkspaceExists)
}

// ParamReason classifies a ParamError.
type ParamReason int

const (
	// ParamMissingOrInvalid is used when params is an object but the key is absent or of the wrong type.
	ParamMissingOrInvalid ParamReason = iota
	// ParamMissing is used when the key is absent.
	ParamMissing
	// ParamInvalid is used when the key is present with a value of the wrong shape.
	ParamInvalid
)

// ParamError reports a missing or malformed request parameter.
type ParamError struct {
	Key    string
	Reason ParamReason
}

// Error is an implementation of the error interface.
func (p *ParamError) Error() string {
	switch p.Reason {
	case ParamMissing:
		return "missing `" + p.Key + "`"
	case ParamInvalid:
		return "invalid `" + p.Key + "`"
	default:
		return "missing or invalid `" + p.Key + "`"
	}
}
