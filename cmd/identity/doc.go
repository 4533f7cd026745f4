// Package identity is the thin user-lookup collaborator for Tally.
//
// It resolves users by e-mail for login and destination-account resolution,
// and updates password hashes. Registration and profile management live
// outside this service; password hashing itself is delegated to
// cmd/security/password.
package identity
