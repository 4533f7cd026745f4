package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and local development.
//
// It mirrors the concurrency shape of the database store: each account
// carries its own lock, LockAccounts acquires them in the caller-supplied
// order, and mutations are buffered per atomic unit and applied only on
// commit. Interleaved transfers therefore contend exactly as they would
// on row locks.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*memAccount
	byUser   map[string]string
	byEmail  map[string]string
	records  []Transaction
}

type memAccount struct {
	mu   sync.Mutex
	acct Account
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*memAccount),
		byUser:   make(map[string]string),
		byEmail:  make(map[string]string),
	}
}

// SeedAccount registers an account and its owner's e-mail address.
func (s *MemoryStore) SeedAccount(a Account, ownerEmail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = &memAccount{acct: a}
	s.byUser[a.UserID] = a.ID
	if ownerEmail != "" {
		s.byEmail[ownerEmail] = a.ID
	}
}

func (s *MemoryStore) AccountByUser(ctx context.Context, userID string) (Account, error) {
	s.mu.Lock()
	id, ok := s.byUser[userID]
	s.mu.Unlock()
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return s.AccountByID(ctx, id)
}

func (s *MemoryStore) AccountByID(_ context.Context, id string) (Account, error) {
	s.mu.Lock()
	ma, ok := s.accounts[id]
	s.mu.Unlock()
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return ma.acct, nil
}

func (s *MemoryStore) AccountByEmail(ctx context.Context, email string) (Account, error) {
	s.mu.Lock()
	id, ok := s.byEmail[email]
	s.mu.Unlock()
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return s.AccountByID(ctx, id)
}

func (s *MemoryStore) Transactions(_ context.Context, accountID string, limit, offset int) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]Transaction, 0)
	// records is append-ordered; walk backwards for newest first.
	for i := len(s.records) - 1; i >= 0; i-- {
		t := s.records[i]
		if (t.FromAccountID != nil && *t.FromAccountID == accountID) ||
			(t.ToAccountID != nil && *t.ToAccountID == accountID) {
			matched = append(matched, t)
		}
	}
	if offset >= len(matched) {
		return []Transaction{}, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// InTx buffers all mutations in a memTx. On a nil error from fn the
// buffered deltas and records are applied while the account locks are
// still held; on error everything is discarded.
func (s *MemoryStore) InTx(_ context.Context, fn func(Tx) error) error {
	tx := &memTx{
		store:  s,
		deltas: make(map[string]int64),
	}
	defer tx.unlockAll()

	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memTx struct {
	store    *MemoryStore
	locked   []*memAccount
	deltas   map[string]int64
	inserted []Transaction
}

func (t *memTx) LockAccounts(_ context.Context, ids ...string) ([]Account, error) {
	out := make([]Account, 0, len(ids))
	for _, id := range ids {
		t.store.mu.Lock()
		ma, ok := t.store.accounts[id]
		t.store.mu.Unlock()
		if !ok {
			return nil, ErrAccountNotFound
		}
		ma.mu.Lock()
		t.locked = append(t.locked, ma)
		out = append(out, ma.acct)
	}
	return out, nil
}

func (t *memTx) DailyTransferTotal(_ context.Context, accountID string, from, to time.Time) (int64, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	var total int64
	sum := func(rec Transaction) {
		if rec.Type != TypeTransfer || rec.FromAccountID == nil || *rec.FromAccountID != accountID {
			return
		}
		if rec.CreatedAt.Before(from) || !rec.CreatedAt.Before(to) {
			return
		}
		total += rec.AmountMinor
	}
	for _, rec := range t.store.records {
		sum(rec)
	}
	for _, rec := range t.inserted {
		sum(rec)
	}
	return total, nil
}

func (t *memTx) AddToBalance(_ context.Context, accountID string, deltaMinor int64) error {
	if !t.holds(accountID) {
		return fmt.Errorf("account %s not locked by this unit", accountID)
	}
	t.deltas[accountID] += deltaMinor
	return nil
}

func (t *memTx) InsertTransaction(_ context.Context, rec Transaction) error {
	t.inserted = append(t.inserted, rec)
	return nil
}

func (t *memTx) holds(accountID string) bool {
	for _, ma := range t.locked {
		if ma.acct.ID == accountID {
			return true
		}
	}
	return false
}

func (t *memTx) commit() {
	for _, ma := range t.locked {
		if delta, ok := t.deltas[ma.acct.ID]; ok {
			ma.acct.BalanceMinor += delta
		}
	}
	if len(t.inserted) > 0 {
		t.store.mu.Lock()
		t.store.records = append(t.store.records, t.inserted...)
		t.store.mu.Unlock()
	}
}

func (t *memTx) unlockAll() {
	for _, ma := range t.locked {
		ma.mu.Unlock()
	}
	t.locked = nil
}
