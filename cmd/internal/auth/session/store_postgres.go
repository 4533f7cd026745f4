package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// PostgresStore implements Store using PostgreSQL (tally.refresh_credentials).
// The pool is owned by the caller and must not be closed here.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed credential store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, now time.Time, userID, credentialHash string, expiresAt time.Time) (string, error) {
	return createCredential(ctx, s.pool, now, userID, credentialHash, expiresAt)
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Credential, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT
			id, user_id, credential_hash,
			created_at, last_used_at, expires_at, revoked_at,
			replaced_by_id, revocation_reason
		FROM tally.refresh_credentials
		WHERE id = $1
	`, id)
	return scanCredential(row)
}

func (s *PostgresStore) RevokeAll(ctx context.Context, now time.Time, userID, reason string) error {
	return revokeAll(ctx, s.pool, now, userID, reason)
}

// InTx runs fn inside a single database transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// pgTx adapts a pgx transaction to the Tx interface.
type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) GetByHashForUpdate(ctx context.Context, credentialHash string) (Credential, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT
			id, user_id, credential_hash,
			created_at, last_used_at, expires_at, revoked_at,
			replaced_by_id, revocation_reason
		FROM tally.refresh_credentials
		WHERE credential_hash = $1
		FOR UPDATE
	`, credentialHash)
	return scanCredential(row)
}

func (t pgTx) Create(ctx context.Context, now time.Time, userID, credentialHash string, expiresAt time.Time) (string, error) {
	return createCredential(ctx, t.tx, now, userID, credentialHash, expiresAt)
}

func (t pgTx) MarkRotated(ctx context.Context, now time.Time, oldID, newID string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE tally.refresh_credentials
		SET
			last_used_at = $2,
			revoked_at = $2,
			replaced_by_id = $3,
			revocation_reason = 'rotation'
		WHERE id = $1
	`, oldID, now, newID)
	return err
}

func (t pgTx) Revoke(ctx context.Context, now time.Time, id, reason string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE tally.refresh_credentials
		SET revoked_at = COALESCE(revoked_at, $2),
		    revocation_reason = COALESCE(revocation_reason, $3)
		WHERE id = $1
	`, id, now, reason)
	return err
}

func (t pgTx) RevokeAll(ctx context.Context, now time.Time, userID, reason string) error {
	return revokeAll(ctx, t.tx, now, userID, reason)
}

// execer is the subset of pgx shared by pool and transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func createCredential(ctx context.Context, q execer, now time.Time, userID, credentialHash string, expiresAt time.Time) (string, error) {
	id := ulid.Make().String()

	_, err := q.Exec(ctx, `
		INSERT INTO tally.refresh_credentials (
			id, user_id, credential_hash,
			created_at, last_used_at, expires_at, revoked_at,
			replaced_by_id, revocation_reason
		) VALUES (
			$1, $2, $3,
			$4, $4, $5, NULL,
			NULL, NULL
		)
	`, id, userID, credentialHash, now, expiresAt)
	if err != nil {
		return "", err
	}
	return id, nil
}

func revokeAll(ctx context.Context, q execer, now time.Time, userID, reason string) error {
	_, err := q.Exec(ctx, `
		UPDATE tally.refresh_credentials
		SET revoked_at = COALESCE(revoked_at, $2),
		    revocation_reason = COALESCE(revocation_reason, $3)
		WHERE user_id = $1
	`, userID, now, reason)
	return err
}

func scanCredential(row pgx.Row) (Credential, error) {
	var c Credential
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.CredentialHash,
		&c.CreatedAt,
		&c.LastUsedAt,
		&c.ExpiresAt,
		&c.RevokedAt,
		&c.ReplacedByID,
		&c.RevocationReason,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Credential{}, errCredentialNotFound
	}
	if err != nil {
		return Credential{}, err
	}
	return c, nil
}
