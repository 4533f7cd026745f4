package password

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy controls password length validation.
type Policy struct {
	MinLength int
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns a baseline suited to interactive logins.
func DefaultConfig() Config {
	// Clamp parallelism to [1..4] so cost stays predictable in containers.
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024, // 64 MiB
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above; safe conversion.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 8,
			MaxLength: 256,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - TALLY_PASSWORD_MIN_LEN
// - TALLY_PASSWORD_MAX_LEN
// - TALLY_ARGON2_MEMORY_KIB
// - TALLY_ARGON2_ITERATIONS
// - TALLY_ARGON2_PARALLELISM
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("TALLY_PASSWORD_MIN_LEN"); ok {
		n, err := envRangeInt(v, 1, 1024)
		if err != nil {
			return Config{}, fmt.Errorf("TALLY_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.Policy.MinLength = n
	}

	if v, ok := os.LookupEnv("TALLY_PASSWORD_MAX_LEN"); ok {
		n, err := envRangeInt(v, 1, 4096)
		if err != nil {
			return Config{}, fmt.Errorf("TALLY_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = n
	}

	if v, ok := os.LookupEnv("TALLY_ARGON2_MEMORY_KIB"); ok {
		n, err := envRangeInt(v, 8*1024, 1024*1024) // 8 MiB .. 1 GiB
		if err != nil {
			return Config{}, fmt.Errorf("TALLY_ARGON2_MEMORY_KIB: %w", err)
		}
		cfg.Params.MemoryKiB = uint32(n) // #nosec G115 -- bounded above; safe conversion.
	}

	if v, ok := os.LookupEnv("TALLY_ARGON2_ITERATIONS"); ok {
		n, err := envRangeInt(v, 1, 20)
		if err != nil {
			return Config{}, fmt.Errorf("TALLY_ARGON2_ITERATIONS: %w", err)
		}
		cfg.Params.Iterations = uint32(n) // #nosec G115 -- bounded above; safe conversion.
	}

	if v, ok := os.LookupEnv("TALLY_ARGON2_PARALLELISM"); ok {
		n, err := envRangeInt(v, 1, 64)
		if err != nil {
			return Config{}, fmt.Errorf("TALLY_ARGON2_PARALLELISM: %w", err)
		}
		cfg.Params.Parallelism = uint8(n) // #nosec G115 -- bounded above; safe conversion.
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

// Validate checks password policy. Lengths are counted in runes, not bytes.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)
	if n < c.Policy.MinLength {
		return ErrPasswordTooShort
	}
	if n > c.Policy.MaxLength {
		return ErrPasswordTooLong
	}
	return nil
}

func envRangeInt(s string, minVal, maxVal int) (int, error) {
	s = strings.TrimSpace(s)
	i64, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	i := int(i64)
	if i < minVal || i > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return i, nil
}
