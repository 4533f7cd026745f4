package app

import (
	"errors"

	"tally/cmd/security/token"
)

// ValidateSecurityConfig enforces the security policy at startup.
//
// Fail-fast: a production deployment must never silently fall back to
// unkeyed credential hashing.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	// Minimum 32 bytes for an HMAC-SHA256 secret, measured in bytes since
	// the key is used raw.
	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: TALLY_REQUIRE_TOKEN_HMAC=true but TALLY_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: TALLY_REQUIRE_TOKEN_HMAC=true but TALLY_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.HMACEnabled() {
		return errors.New("security policy: TALLY_REQUIRE_TOKEN_HMAC=true but the credential hasher is not in HMAC mode")
	}

	return nil
}
