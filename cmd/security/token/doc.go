// Package token provides one-way hashing for refresh credentials at rest.
//
// Credentials are stored as HMAC-SHA256 digests when TALLY_TOKEN_HMAC_KEY is
// configured, with a plain SHA-256 fallback for development. The raw
// credential value is never persisted anywhere.
package token
