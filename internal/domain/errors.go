package domain

import "fmt"

// CredentialMissingError indicates no usable bearer credential was presented.
type CredentialMissingError struct {
	Message string
}

func (e *CredentialMissingError) Error() string { return e.Message }

// CredentialInvalidError indicates the identity provider rejected the token
// or returned no usable account. The message is user-safe by construction;
// provider detail must never be embedded in it.
type CredentialInvalidError struct {
	Message string
}

func (e *CredentialInvalidError) Error() string { return e.Message }

// OriginDeniedError indicates a CORS preflight from a disallowed origin.
type OriginDeniedError struct {
	Origin string
}

func (e *OriginDeniedError) Error() string {
	return fmt.Sprintf("CORS not supported -> %s", e.Origin)
}

// UnboundServiceError indicates the request path named a backend that is not
// registered. Not retried; surfaces as a 500 at the top-level boundary.
type UnboundServiceError struct {
	Service string
}

func (e *UnboundServiceError) Error() string {
	return fmt.Sprintf("%s not bound service", e.Service)
}

// UpstreamError wraps a failure talking to an external dependency
// (identity provider transport, directory service, cache store, backend).
type UpstreamError struct {
	Dependency string
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Dependency, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ErrCredentialMissing creates a CredentialMissingError with a formatted message.
func ErrCredentialMissing(format string, args ...interface{}) *CredentialMissingError {
	return &CredentialMissingError{Message: fmt.Sprintf(format, args...)}
}

// ErrCredentialInvalid creates a CredentialInvalidError with a formatted message.
func ErrCredentialInvalid(format string, args ...interface{}) *CredentialInvalidError {
	return &CredentialInvalidError{Message: fmt.Sprintf(format, args...)}
}

// ErrUpstream wraps err as an UpstreamError for the named dependency.
func ErrUpstream(dependency string, err error) *UpstreamError {
	return &UpstreamError{Dependency: dependency, Err: err}
}
