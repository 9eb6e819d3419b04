package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// Identity linking.
	ErrIncompleteIdentity = errors.New("incomplete identity")
	ErrDisqualified       = errors.New("user disqualified")

	// Roster edit window.
	ErrNotYetOpen      = errors.New("registration not open")
	ErrSelectionClosed = errors.New("roster selection closed")

	// Roster payload validation.
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidFieldType   = errors.New("invalid field type")
	ErrRosterSizeExceeded = errors.New("roster size exceeded")
	ErrInvalidCaptainType = errors.New("invalid captain value")

	// ErrUnexpected wraps storage failures that are not one of the
	// constraint violations callers know how to handle.
	ErrUnexpected = errors.New("got unexpected exception")
)
