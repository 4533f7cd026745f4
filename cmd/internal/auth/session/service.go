package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Service implements the high-level session lifecycle operations.
//
// It issues sessions (access + refresh), validates access assertions,
// supports per-credential and per-user revocation, and performs refresh
// rotation with reuse detection under a strict transactional model.
type Service struct {
	cfg    Config
	tokens AccessTokenManager
	store  Store
	log    *slog.Logger
}

// Issued is the result of issuing or rotating a session.
// It includes a short-lived access assertion and an opaque refresh credential.
type Issued struct {
	CredentialID string
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// NewService constructs a Service with the provided configuration, store,
// and token manager.
func NewService(cfg Config, store Store, tokens AccessTokenManager, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{cfg: cfg, store: store, tokens: tokens, log: log}
}

// IssueSession creates a new credential row and returns fresh tokens.
//
// Refresh credentials are opaque random strings and are never persisted in
// plaintext; only their hash is stored alongside the expiry.
func (s *Service) IssueSession(ctx context.Context, now time.Time, userID string) (Issued, error) {
	refreshPlain, refreshHash, err := newOpaqueRefreshCredential(s.cfg.RefreshTokenBytes)
	if err != nil {
		return Issued{}, err
	}

	refreshExp := now.Add(s.cfg.RefreshTTL)

	credentialID, err := s.store.Create(ctx, now, userID, refreshHash, refreshExp)
	if err != nil {
		return Issued{}, err
	}

	accessToken, accessExp, err := s.tokens.Issue(userID, credentialID, now)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		CredentialID: credentialID,
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refreshPlain,
		RefreshExp:   refreshExp,
	}, nil
}

// ValidateAccessToken verifies an access assertion and ensures the backing
// credential is still active. Any failure is ErrAuthenticationFailed.
func (s *Service) ValidateAccessToken(ctx context.Context, token string, now time.Time) (AccessClaims, error) {
	claims, err := s.tokens.Verify(token, now)
	if err != nil {
		return AccessClaims{}, ErrAuthenticationFailed
	}

	// Server-authoritative check to honor revocations.
	row, err := s.store.GetByID(ctx, claims.CredentialID)
	if err != nil {
		if errors.Is(err, errCredentialNotFound) {
			return AccessClaims{}, ErrAuthenticationFailed
		}
		return AccessClaims{}, err
	}

	if row.UserID != claims.UserID || row.RevokedAt != nil || !row.ExpiresAt.After(now) {
		return AccessClaims{}, ErrAuthenticationFailed
	}

	return claims, nil
}

// RotateSession exchanges a refresh credential for a fresh session.
//
// Inside one atomic unit it locks the credential row by hash, then:
//   - unknown, expired, or revoked credentials fail with
//     ErrAuthenticationFailed and mutate nothing (reuse of an
//     already-rotated credential is additionally logged for operators);
//   - otherwise a replacement credential is created, the presented one is
//     revoked and linked to it, and new tokens are returned.
//
// At most one RotateSession call per credential ever succeeds.
func (s *Service) RotateSession(ctx context.Context, now time.Time, refreshPlain string) (Issued, error) {
	refreshPlain = strings.TrimSpace(refreshPlain)
	// Sanity bounds to avoid pathological inputs.
	if refreshPlain == "" || len(refreshPlain) > 4096 {
		return Issued{}, ErrAuthenticationFailed
	}

	// Hash in-memory; the plain credential never reaches the store.
	refreshHash := hashRefreshCredentialHex(refreshPlain)

	var issued Issued
	err := s.store.InTx(ctx, func(tx Tx) error {
		row, err := tx.GetByHashForUpdate(ctx, refreshHash)
		if errors.Is(err, errCredentialNotFound) {
			s.log.Warn("session.rotate.reject", "reason", "not_found")
			return ErrAuthenticationFailed
		}
		if err != nil {
			return err
		}

		if !row.ExpiresAt.After(now) {
			s.log.Warn("session.rotate.reject", "reason", "expired", "credential_id", row.ID)
			return ErrAuthenticationFailed
		}

		if row.RevokedAt != nil {
			// A rotated credential presented again means the old value leaked
			// or was replayed; flag it for operators, fail generically, and
			// mutate nothing.
			if row.ReplacedByID != nil {
				s.log.Warn("session.rotate.reuse_detected", "credential_id", row.ID, "user_id", row.UserID)
			} else {
				s.log.Warn("session.rotate.reject", "reason", "revoked", "credential_id", row.ID)
			}
			return ErrAuthenticationFailed
		}

		newPlain, newHash, err := newOpaqueRefreshCredential(s.cfg.RefreshTokenBytes)
		if err != nil {
			return err
		}
		newExp := now.Add(s.cfg.RefreshTTL)

		newID, err := tx.Create(ctx, now, row.UserID, newHash, newExp)
		if err != nil {
			return err
		}
		if err := tx.MarkRotated(ctx, now, row.ID, newID); err != nil {
			return err
		}

		accessToken, accessExp, err := s.tokens.Issue(row.UserID, newID, now)
		if err != nil {
			return err
		}

		issued = Issued{
			CredentialID: newID,
			AccessToken:  accessToken,
			AccessExp:    accessExp,
			RefreshToken: newPlain,
			RefreshExp:   newExp,
		}
		return nil
	})
	if err != nil {
		return Issued{}, err
	}

	return issued, nil
}

// RevokeSession marks the credential matching the presented refresh value
// revoked. Revoking an unknown or already-revoked credential is not an error.
func (s *Service) RevokeSession(ctx context.Context, now time.Time, refreshPlain string) error {
	refreshPlain = strings.TrimSpace(refreshPlain)
	if refreshPlain == "" || len(refreshPlain) > 4096 {
		return nil
	}

	refreshHash := hashRefreshCredentialHex(refreshPlain)

	return s.store.InTx(ctx, func(tx Tx) error {
		row, err := tx.GetByHashForUpdate(ctx, refreshHash)
		if errors.Is(err, errCredentialNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Revoke(ctx, now, row.ID, "logout")
	})
}

// RevokeAllSessions marks every credential owned by userID revoked.
// Invoked on password change as a blast-radius containment measure.
func (s *Service) RevokeAllSessions(ctx context.Context, now time.Time, userID string) error {
	return s.store.RevokeAll(ctx, now, userID, "password_change")
}
