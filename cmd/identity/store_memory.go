package identity

import (
	"context"
	"sync"
)

// MemoryStore backs DB-less development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]User
	byEmail map[string]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]User),
		byEmail: make(map[string]User),
	}
}

// Seed registers a user, replacing any previous row with the same ID.
func (s *MemoryStore) Seed(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryStore) UserByID(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (s *MemoryStore) UpdatePassword(_ context.Context, userID, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = newHash
	s.byID[userID] = u
	s.byEmail[u.Email] = u
	return nil
}
