package session

import (
	"os"
	"strconv"
	"time"
)

// Config defines all runtime configuration for the session subsystem.
//
// It controls access-assertion TTL, refresh-credential TTL, clock skew
// tolerance, refresh entropy size, and the PASETO v4 signing key. The
// struct is environment-driven so deployments can tune security
// parameters without code changes.
type Config struct {
	// Issuer is the value set in the "iss" claim of access assertions.
	Issuer string

	// AccessTokenTTL defines the lifetime of PASETO access assertions.
	AccessTokenTTL time.Duration

	// RefreshTTL defines the lifetime of refresh credentials.
	RefreshTTL time.Duration

	// ClockSkew defines the allowed time skew during token validation.
	ClockSkew time.Duration

	// RefreshTokenBytes defines the number of random bytes used
	// to generate opaque refresh credentials.
	RefreshTokenBytes int

	// PasetoV4SecretKeyHex is the hex-encoded Ed25519 secret key
	// used to sign PASETO v4.public access assertions.
	PasetoV4SecretKeyHex string
}

// DefaultConfig returns a secure default configuration suitable for development.
func DefaultConfig() Config {
	return Config{
		Issuer:            "tally",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTTL:        7 * 24 * time.Hour,
		ClockSkew:         30 * time.Second,
		RefreshTokenBytes: 32,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - TALLY_PASETO_V4_SECRET_KEY_HEX
//
// Optional (durations must be valid Go duration strings):
//   - TALLY_AUTH_ISSUER
//   - TALLY_AUTH_ACCESS_TTL
//   - TALLY_AUTH_REFRESH_TTL
//   - TALLY_AUTH_CLOCK_SKEW
//   - TALLY_AUTH_REFRESH_TOKEN_BYTES
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("TALLY_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("TALLY_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("TALLY_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTTL = d
	}

	if v := os.Getenv("TALLY_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	if v := os.Getenv("TALLY_AUTH_REFRESH_TOKEN_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 32 || n > 64 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenBytes = n
	}

	cfg.PasetoV4SecretKeyHex = os.Getenv("TALLY_PASETO_V4_SECRET_KEY_HEX")
	if cfg.PasetoV4SecretKeyHex == "" {
		return Config{}, ErrConfig
	}

	// A refresh credential must outlive the access assertions minted from it.
	if cfg.RefreshTTL < cfg.AccessTokenTTL {
		return Config{}, ErrConfig
	}

	return cfg, nil
}
