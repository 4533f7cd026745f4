// Package password provides Argon2id password hashing for Tally.
//
// Hashes use a PHC-like encoded string format:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<hash_b64>
//
// Hash strings are treated as untrusted input during Verify and are
// validated against anti-DoS parameter bounds before any key derivation.
package password
