package session

import (
	"context"
	"time"
)

// Credential mirrors a tally.refresh_credentials row.
//
// Rows transition ACTIVE -> REVOKED exactly once (RevokedAt set) and are
// never deleted. Expiry is checked against ExpiresAt, not physically
// transitioned.
type Credential struct {
	ID               string
	UserID           string
	CredentialHash   string
	CreatedAt        time.Time
	LastUsedAt       *time.Time
	ExpiresAt        time.Time
	RevokedAt        *time.Time
	ReplacedByID     *string
	RevocationReason *string
}

// Store abstracts persistence for refresh credentials.
//
// Rotation must run inside a single atomic unit, which is what InTx
// provides; implementations must make Tx.GetByHashForUpdate an exclusive
// row lock so two concurrent rotations of the same credential serialize.
type Store interface {
	// Create inserts a new ACTIVE credential row and returns its ID.
	Create(ctx context.Context, now time.Time, userID, credentialHash string, expiresAt time.Time) (string, error)

	// GetByID loads a credential row by ID.
	GetByID(ctx context.Context, id string) (Credential, error)

	// RevokeAll marks every credential owned by userID revoked (idempotent).
	RevokeAll(ctx context.Context, now time.Time, userID, reason string) error

	// InTx runs fn inside one atomic unit. A non-nil error from fn rolls
	// everything back.
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the set of operations available inside an atomic unit.
type Tx interface {
	// GetByHashForUpdate loads a credential by hash and locks the row
	// exclusively until the atomic unit ends.
	GetByHashForUpdate(ctx context.Context, credentialHash string) (Credential, error)

	// Create inserts a new ACTIVE credential row and returns its ID.
	Create(ctx context.Context, now time.Time, userID, credentialHash string, expiresAt time.Time) (string, error)

	// MarkRotated revokes the old credential and links its replacement.
	MarkRotated(ctx context.Context, now time.Time, oldID, newID string) error

	// Revoke marks a single credential revoked (idempotent).
	Revoke(ctx context.Context, now time.Time, id, reason string) error

	// RevokeAll marks every credential owned by userID revoked (idempotent).
	RevokeAll(ctx context.Context, now time.Time, userID, reason string) error
}
