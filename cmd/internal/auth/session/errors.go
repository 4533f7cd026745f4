package session

import "errors"

var (
	// ErrAuthenticationFailed is returned for every invalid, expired, revoked,
	// or unknown credential. It is deliberately undifferentiated so callers
	// cannot learn which check failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")

	// errCredentialNotFound is internal; surfaced to callers as
	// ErrAuthenticationFailed.
	errCredentialNotFound = errors.New("credential not found")
)
