package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()

	secret := paseto.NewV4AsymmetricSecretKey()
	cfg := DefaultConfig()
	cfg.PasetoV4SecretKeyHex = secret.ExportHex()

	mgr, err := NewPasetoV4PublicManager(cfg)
	if err != nil {
		t.Fatalf("NewPasetoV4PublicManager: %v", err)
	}

	store := NewMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(cfg, store, mgr, log), store
}

func TestIssueAndValidate(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.IssueSession(ctx, now, "user-1")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if issued.RefreshToken == "" || issued.AccessToken == "" {
		t.Fatalf("expected both tokens, got %+v", issued)
	}
	if !issued.RefreshExp.After(issued.AccessExp) {
		t.Fatalf("refresh credential must outlive access assertion")
	}

	claims, err := svc.ValidateAccessToken(ctx, issued.AccessToken, now.Add(time.Second))
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != "user-1" || claims.CredentialID != issued.CredentialID {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestRotate_SingleUse(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := svc.IssueSession(ctx, now, "user-1")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	second, err := svc.RotateSession(ctx, now.Add(time.Minute), first.RefreshToken)
	if err != nil {
		t.Fatalf("RotateSession: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("rotation must mint a new refresh credential")
	}

	// The consumed credential is dead forever.
	if _, err := svc.RotateSession(ctx, now.Add(2*time.Minute), first.RefreshToken); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for reused credential, got %v", err)
	}

	// A failed rotation mutates nothing: the replacement still works.
	third, err := svc.RotateSession(ctx, now.Add(3*time.Minute), second.RefreshToken)
	if err != nil {
		t.Fatalf("RotateSession(replacement): %v", err)
	}
	if third.CredentialID == second.CredentialID {
		t.Fatalf("expected a fresh credential ID")
	}
}

func TestRotate_UnknownExpiredRevoked(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Unknown credential.
	if _, err := svc.RotateSession(ctx, now, "no-such-credential"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for unknown credential, got %v", err)
	}

	// Blank and oversized inputs are rejected without store access.
	if _, err := svc.RotateSession(ctx, now, "   "); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for blank credential, got %v", err)
	}

	// Expired credential.
	issued, err := svc.IssueSession(ctx, now, "user-1")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	past := now.Add(svc.cfg.RefreshTTL + time.Hour)
	if _, err := svc.RotateSession(ctx, past, issued.RefreshToken); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for expired credential, got %v", err)
	}

	// Revoked credential.
	fresh, err := svc.IssueSession(ctx, now, "user-2")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if err := svc.RevokeSession(ctx, now, fresh.RefreshToken); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if _, err := svc.RotateSession(ctx, now.Add(time.Minute), fresh.RefreshToken); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for revoked credential, got %v", err)
	}
}

func TestRevoke_Idempotent(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.IssueSession(ctx, now, "user-1")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	if err := svc.RevokeSession(ctx, now, issued.RefreshToken); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	// Second revoke and unknown credential are both no-ops.
	if err := svc.RevokeSession(ctx, now, issued.RefreshToken); err != nil {
		t.Fatalf("RevokeSession (repeat): %v", err)
	}
	if err := svc.RevokeSession(ctx, now, "never-issued"); err != nil {
		t.Fatalf("RevokeSession (unknown): %v", err)
	}

	row, err := store.GetByID(ctx, issued.CredentialID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if row.RevokedAt == nil {
		t.Fatalf("expected credential revoked")
	}
}

func TestRevokeAllSessions(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a, err := svc.IssueSession(ctx, now, "user-1")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	b, err := svc.IssueSession(ctx, now, "user-1")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	other, err := svc.IssueSession(ctx, now, "user-2")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	if err := svc.RevokeAllSessions(ctx, now, "user-1"); err != nil {
		t.Fatalf("RevokeAllSessions: %v", err)
	}

	for _, tok := range []string{a.RefreshToken, b.RefreshToken} {
		if _, err := svc.RotateSession(ctx, now.Add(time.Minute), tok); !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("expected revoked credential to fail rotation, got %v", err)
		}
	}

	// Unrelated users are untouched.
	if _, err := svc.RotateSession(ctx, now.Add(time.Minute), other.RefreshToken); err != nil {
		t.Fatalf("unrelated user's rotation failed: %v", err)
	}
}

func TestValidateAccessToken_RevokedCredential(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.IssueSession(ctx, now, "user-1")
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if err := svc.RevokeSession(ctx, now, issued.RefreshToken); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}

	// The access assertion itself is still signed and unexpired, but the
	// backing credential is gone.
	if _, err := svc.ValidateAccessToken(ctx, issued.AccessToken, now.Add(time.Second)); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}
