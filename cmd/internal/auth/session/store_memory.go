package session

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemoryStore is an in-memory Store used by unit tests and local tooling.
//
// A single mutex serializes atomic units; fn operates on a copy of the
// credential set which replaces the live set only on success, so a failed
// unit leaves no trace (rollback semantics).
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Credential // by ID
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Credential)}
}

func (s *MemoryStore) Create(ctx context.Context, now time.Time, userID, credentialHash string, expiresAt time.Time) (string, error) {
	var id string
	err := s.InTx(ctx, func(tx Tx) error {
		var err error
		id, err = tx.Create(ctx, now, userID, credentialHash, expiresAt)
		return err
	})
	return id, err
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return Credential{}, errCredentialNotFound
	}
	return row, nil
}

func (s *MemoryStore) RevokeAll(ctx context.Context, now time.Time, userID, reason string) error {
	return s.InTx(ctx, func(tx Tx) error {
		return tx.RevokeAll(ctx, now, userID, reason)
	})
}

func (s *MemoryStore) InTx(_ context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := make(map[string]Credential, len(s.rows))
	for id, row := range s.rows {
		work[id] = row
	}

	if err := fn(&memTx{rows: work}); err != nil {
		return err
	}

	s.rows = work
	return nil
}

type memTx struct {
	rows map[string]Credential
}

func (t *memTx) GetByHashForUpdate(_ context.Context, credentialHash string) (Credential, error) {
	for _, row := range t.rows {
		if row.CredentialHash == credentialHash {
			return row, nil
		}
	}
	return Credential{}, errCredentialNotFound
}

func (t *memTx) Create(_ context.Context, now time.Time, userID, credentialHash string, expiresAt time.Time) (string, error) {
	id := ulid.Make().String()
	created := now
	t.rows[id] = Credential{
		ID:             id,
		UserID:         userID,
		CredentialHash: credentialHash,
		CreatedAt:      created,
		LastUsedAt:     &created,
		ExpiresAt:      expiresAt,
	}
	return id, nil
}

func (t *memTx) MarkRotated(_ context.Context, now time.Time, oldID, newID string) error {
	row, ok := t.rows[oldID]
	if !ok {
		return errCredentialNotFound
	}
	rotatedAt := now
	reason := "rotation"
	row.LastUsedAt = &rotatedAt
	row.RevokedAt = &rotatedAt
	row.ReplacedByID = &newID
	row.RevocationReason = &reason
	t.rows[oldID] = row
	return nil
}

func (t *memTx) Revoke(_ context.Context, now time.Time, id, reason string) error {
	row, ok := t.rows[id]
	if !ok {
		return nil
	}
	if row.RevokedAt == nil {
		revokedAt := now
		row.RevokedAt = &revokedAt
		row.RevocationReason = &reason
		t.rows[id] = row
	}
	return nil
}

func (t *memTx) RevokeAll(_ context.Context, now time.Time, userID, reason string) error {
	for id, row := range t.rows {
		if row.UserID != userID || row.RevokedAt != nil {
			continue
		}
		revokedAt := now
		row.RevokedAt = &revokedAt
		row.RevocationReason = &reason
		t.rows[id] = row
	}
	return nil
}
