package ledger

import (
	"errors"
	"testing"
	"time"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.MaxTransferMinor != 200_000 || cfg.DailyLimitMinor != 500_000 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.LockTimeout != 5*time.Second {
		t.Errorf("lock timeout = %v, want 5s", cfg.LockTimeout)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("TALLY_LEDGER_MAX_TRANSFER_MINOR", "100000")
	t.Setenv("TALLY_LEDGER_DAILY_LIMIT_MINOR", "300000")
	t.Setenv("TALLY_LEDGER_LOCK_TIMEOUT", "2s")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.MaxTransferMinor != 100_000 || cfg.DailyLimitMinor != 300_000 || cfg.LockTimeout != 2*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"non-numeric max":      {"TALLY_LEDGER_MAX_TRANSFER_MINOR", "lots"},
		"zero daily":           {"TALLY_LEDGER_DAILY_LIMIT_MINOR", "0"},
		"negative lock wait":   {"TALLY_LEDGER_LOCK_TIMEOUT", "-1s"},
		"unparseable duration": {"TALLY_LEDGER_LOCK_TIMEOUT", "soon"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
				t.Errorf("err = %v, want ErrConfig", err)
			}
		})
	}
}

func TestLoadConfigFromEnv_DailyBelowPerTransfer(t *testing.T) {
	t.Setenv("TALLY_LEDGER_MAX_TRANSFER_MINOR", "500000")
	t.Setenv("TALLY_LEDGER_DAILY_LIMIT_MINOR", "100000")
	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Errorf("err = %v, want ErrConfig", err)
	}
}
