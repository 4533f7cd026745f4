package ledger

import (
	"os"
	"strconv"
	"time"
)

const maxDescriptionLen = 255

// Config defines the business limits enforced by the engine.
type Config struct {
	// MaxTransferMinor is the ceiling for a single transfer, in minor units.
	MaxTransferMinor int64

	// DailyLimitMinor is the per-source-account ceiling for the aggregate of
	// TRANSFER debits within one service-local calendar day.
	DailyLimitMinor int64

	// LockTimeout bounds how long the store may wait on a row lock before
	// the operation surfaces as an infrastructure error.
	LockTimeout time.Duration
}

// DefaultConfig returns the stock limits: 2 000.00 per transfer,
// 5 000.00 per day (both in minor units).
func DefaultConfig() Config {
	return Config{
		MaxTransferMinor: 200_000,
		DailyLimitMinor:  500_000,
		LockTimeout:      5 * time.Second,
	}
}

// LoadConfigFromEnv loads engine limits from environment variables.
//
// Optional:
//   - TALLY_LEDGER_MAX_TRANSFER_MINOR
//   - TALLY_LEDGER_DAILY_LIMIT_MINOR
//   - TALLY_LEDGER_LOCK_TIMEOUT
//
// Returns ErrConfig if a value is invalid or the daily ceiling is below
// the per-transfer ceiling.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("TALLY_LEDGER_MAX_TRANSFER_MINOR"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, ErrConfig
		}
		cfg.MaxTransferMinor = n
	}

	if v := os.Getenv("TALLY_LEDGER_DAILY_LIMIT_MINOR"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, ErrConfig
		}
		cfg.DailyLimitMinor = n
	}

	if v := os.Getenv("TALLY_LEDGER_LOCK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.LockTimeout = d
	}

	if cfg.DailyLimitMinor < cfg.MaxTransferMinor {
		return Config{}, ErrConfig
	}

	return cfg, nil
}
