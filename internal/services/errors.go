package services

import (
	"errors"
	"fmt"
)

var (
	// ErrStateNotFound is returned when a callback carries a state token
	// that is unknown, expired, or already consumed. Treated as a security
	// rejection and never retried silently.
	ErrStateNotFound = errors.New("authorization state not found")

	// ErrProviderMismatch is returned when a state token was issued for a
	// different provider than the callback claims.
	ErrProviderMismatch = errors.New("authorization state issued for a different provider")

	// ErrNotAuthenticated signals "no usable credential — please authorize".
	// It is a normal outcome, not a failure: absent, revoked, deactivated
	// and unrefreshable credentials all surface it.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrUnknownProvider is returned when no adapter is registered for the
	// requested provider.
	ErrUnknownProvider = errors.New("unknown provider")
)

// AuthorizationDeniedError reports that the external provider declined the
// authorization or the user canceled consent. A normal outcome requiring a
// friendly message, never a crash.
type AuthorizationDeniedError struct {
	Reason string // Provider-supplied error code, e.g. "access_denied"
}

func (e *AuthorizationDeniedError) Error() string {
	return fmt.Sprintf("authorization denied: %s", e.Reason)
}
