package errors

import (
	"errors"
	"fmt"
)

// Common error values for the gateway
var (
	// Tenant errors
	ErrInvalidTenant = errors.New("invalid tenant")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrAuthExpired     = errors.New("authentication expired")
	ErrNoRefreshToken  = errors.New("no refresh token")

	// Upstream errors
	ErrUpstream = errors.New("upstream error")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternal       = errors.New("internal error")
)

// InvalidTenantError is returned when a tenant URL is requested without a tenant slug.
type InvalidTenantError struct {
	Slug string
}

func (e *InvalidTenantError) Error() string {
	return fmt.Sprintf("invalid tenant slug %q", e.Slug)
}

func (e *InvalidTenantError) Unwrap() error { return ErrInvalidTenant }

// AuthExpiredError is returned when the session could not be renewed. The session
// has already been cleared when this error is seen.
type AuthExpiredError struct {
	StatusCode int   // status of the request that triggered the refresh
	Cause      error // nil when there was no refresh token
}

func (e *AuthExpiredError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("authentication expired (status %d): %s", e.StatusCode, ErrNoRefreshToken)
	}
	return fmt.Sprintf("authentication expired (status %d): %v", e.StatusCode, e.Cause)
}

func (e *AuthExpiredError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrAuthExpired, ErrNoRefreshToken}
	}
	return []error{ErrAuthExpired, e.Cause}
}

// UpstreamError represents a non-2xx response from the backend.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// IsStatus reports whether err wraps an UpstreamError with the given status code.
func IsStatus(err error, code int) bool {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode == code
	}
	return false
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
