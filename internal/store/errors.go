package store

import "errors"

var (
	// ErrCredentialNotFound is returned when no credential row exists for a provider
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrStateNotFound is returned when an authorization state is unknown
	ErrStateNotFound = errors.New("authorization state not found")

	// ErrStateAlreadyConsumed is returned by ConsumeState when the state was
	// already consumed by a concurrent request (0 rows updated).
	ErrStateAlreadyConsumed = errors.New("authorization state already consumed")
)
