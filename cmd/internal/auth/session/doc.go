// Package session implements Tally's session token lifecycle.
//
// It issues short-lived access assertions (PASETO v4.public) alongside
// long-lived opaque refresh credentials, rotates credentials on refresh
// (every successful rotation revokes the credential that was presented),
// and supports per-credential and per-user revocation.
//
// Refresh credentials are random strings and are stored hashed
// (HMAC-SHA256 when TALLY_TOKEN_HMAC_KEY is set; otherwise SHA-256 for dev).
// Revoked rows are never deleted; they are retained for audit and
// reuse detection.
//
// Callers always see the same ErrAuthenticationFailed for an invalid,
// expired, or revoked credential. The concrete reason is only logged.
package session
