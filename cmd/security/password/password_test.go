package password

import (
	"errors"
	"strings"
	"testing"
)

func testConfig() Config {
	cfg := DefaultConfig()
	// Keep tests fast; correctness does not depend on cost.
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	return cfg
}

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	cfg := testConfig()

	enc, err := cfg.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(enc, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %q", enc)
	}

	ok, err := cfg.Verify(enc, "correct horse battery")
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}

	ok, err = cfg.Verify(enc, "wrong password")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("mismatched password must not verify")
	}
}

func TestHash_PolicyEnforced(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	if _, err := cfg.Hash("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := cfg.Hash(strings.Repeat("x", 300)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestVerify_MalformedHash(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cases := []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=3,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=3,p=1$c2FsdA$aGFzaA",
	}
	for _, enc := range cases {
		if _, err := cfg.Verify(enc, "whatever"); !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("Verify(%q): expected ErrInvalidHash, got %v", enc, err)
		}
	}
}

func TestVerify_RejectsOversizedParams(t *testing.T) {
	t.Parallel()

	// Hash generated with huge params must be refused before key derivation.
	cfg := testConfig()
	enc := "$argon2id$v=19$m=4194304,t=50,p=64$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g"
	if _, err := cfg.Verify(enc, "whatever"); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash for oversized params, got %v", err)
	}
}
