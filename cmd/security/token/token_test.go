package token

import (
	"errors"
	"strings"
	"testing"
)

func TestHashCredentialHex_FallbackWithoutKey(t *testing.T) {
	t.Setenv(HMACEnvKey, "")

	got := HashCredentialHex("credential-1")
	want := HashSHA256Hex("credential-1")
	if got != want {
		t.Fatalf("fallback digest mismatch: %q vs %q", got, want)
	}
	if len(got) != 64 {
		t.Fatalf("digest length = %d, want 64 hex chars", len(got))
	}
}

func TestHashCredentialHex_HMACMode(t *testing.T) {
	key := strings.Repeat("k", 32)
	t.Setenv(HMACEnvKey, key)

	got := HashCredentialHex("credential-1")
	want := HashHMACSHA256Hex("credential-1", []byte(key))
	if got != want {
		t.Fatalf("hmac digest mismatch")
	}
	if got == HashSHA256Hex("credential-1") {
		t.Fatal("hmac digest must differ from the unkeyed digest")
	}

	t.Setenv(HMACEnvKey, strings.Repeat("x", 32))
	if HashCredentialHex("credential-1") == got {
		t.Fatal("different keys must produce different digests")
	}
}

func TestHMACKeyFromEnv_Policy(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if _, err := HMACKeyFromEnv(32); !errors.Is(err, ErrHMACKeyMissing) {
		t.Fatalf("err = %v, want ErrHMACKeyMissing", err)
	}

	t.Setenv(HMACEnvKey, "short")
	if _, err := HMACKeyFromEnv(32); !errors.Is(err, ErrHMACKeyTooShort) {
		t.Fatalf("err = %v, want ErrHMACKeyTooShort", err)
	}

	t.Setenv(HMACEnvKey, strings.Repeat("k", 32))
	key, err := HMACKeyFromEnv(32)
	if err != nil {
		t.Fatalf("HMACKeyFromEnv: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("key length = %d", len(key))
	}
}

func TestHashCredentialHexRequireHMAC(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	if _, err := HashCredentialHexRequireHMAC("credential-1", 32); !errors.Is(err, ErrHMACKeyMissing) {
		t.Fatalf("err = %v, want ErrHMACKeyMissing", err)
	}

	key := strings.Repeat("k", 32)
	t.Setenv(HMACEnvKey, key)
	got, err := HashCredentialHexRequireHMAC("credential-1", 32)
	if err != nil {
		t.Fatalf("HashCredentialHexRequireHMAC: %v", err)
	}
	if got != HashHMACSHA256Hex("credential-1", []byte(key)) {
		t.Fatal("digest mismatch")
	}
}

func TestHMACEnabled(t *testing.T) {
	t.Setenv(HMACEnvKey, "  ")
	if HMACEnabled() {
		t.Fatal("blank key must not enable HMAC mode")
	}
	t.Setenv(HMACEnvKey, "anything")
	if !HMACEnabled() {
		t.Fatal("non-empty key must enable HMAC mode")
	}
}
