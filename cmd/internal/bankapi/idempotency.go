package bankapi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StoredResponse is a settled response kept for replaying retries.
type StoredResponse struct {
	Status int
	Body   []byte
}

// IdempotencyStore persists responses keyed by (key, user).
type IdempotencyStore interface {
	Get(ctx context.Context, key, userID string) (StoredResponse, bool, error)
	Put(ctx context.Context, key, userID string, resp StoredResponse) error
}

// PostgresIdempotencyStore keeps stored responses in tally.idempotency_keys.
type PostgresIdempotencyStore struct {
	pool *pgxpool.Pool
}

func NewPostgresIdempotencyStore(pool *pgxpool.Pool) *PostgresIdempotencyStore {
	return &PostgresIdempotencyStore{pool: pool}
}

func (s *PostgresIdempotencyStore) Get(ctx context.Context, key, userID string) (StoredResponse, bool, error) {
	var resp StoredResponse
	err := s.pool.QueryRow(ctx,
		`SELECT response_status, response_body
		   FROM tally.idempotency_keys
		  WHERE key = $1 AND user_id = $2`,
		key, userID,
	).Scan(&resp.Status, &resp.Body)
	if errors.Is(err, pgx.ErrNoRows) {
		return StoredResponse{}, false, nil
	}
	if err != nil {
		return StoredResponse{}, false, fmt.Errorf("load idempotency key: %w", err)
	}
	return resp, true, nil
}

func (s *PostgresIdempotencyStore) Put(ctx context.Context, key, userID string, resp StoredResponse) error {
	// A concurrent duplicate may land first; the stored response wins.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tally.idempotency_keys (key, user_id, response_status, response_body, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (key, user_id) DO NOTHING`,
		key, userID, resp.Status, resp.Body, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store idempotency key: %w", err)
	}
	return nil
}

// MemoryIdempotencyStore backs tests and local development.
type MemoryIdempotencyStore struct {
	mu   sync.Mutex
	rows map[string]StoredResponse
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{rows: make(map[string]StoredResponse)}
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, key, userID string) (StoredResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.rows[key+"/"+userID]
	return resp, ok, nil
}

func (s *MemoryIdempotencyStore) Put(_ context.Context, key, userID string, resp StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[key+"/"+userID]; !exists {
		s.rows[key+"/"+userID] = resp
	}
	return nil
}
