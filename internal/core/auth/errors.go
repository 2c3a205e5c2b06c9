package auth

import "errors"

// Missing, malformed, unknown and forged keys all map to UNAUTHENTICATED so a
// caller cannot probe which keys exist. A revoked key maps to
// PERMISSION_DENIED.
var (
	ErrMissingKey       = errors.New("API key required in x-api-key metadata")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrUnknownKey       = errors.New("API key signed by an unknown secret")
	ErrInvalidKey       = errors.New("invalid API key")
	ErrKeyRevoked       = errors.New("API key has been revoked")

	// ErrDatabase wraps key store failures; reported as UNAVAILABLE.
	ErrDatabase = errors.New("api key store unavailable")
)
