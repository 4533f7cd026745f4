package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL (tally.users).
// The pgx pool is owned by the caller; this store must not close it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed user store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM tally.users
		WHERE email = $1
	`, NormalizeEmail(email))
}

func (s *PostgresStore) UserByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM tally.users
		WHERE id = $1
	`, id)
}

// UpdatePassword replaces the stored hash; unknown users map to ErrUserNotFound.
func (s *PostgresStore) UpdatePassword(ctx context.Context, userID, newHash string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tally.users
		SET password_hash = $2
		WHERE id = $1
	`, userID, newHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) scanUser(ctx context.Context, query string, arg any) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}
