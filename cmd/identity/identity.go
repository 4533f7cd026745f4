package identity

import (
	"context"
	"strings"
	"time"
)

// User is a registered owner of exactly one account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Store abstracts user persistence.
type Store interface {
	// UserByEmail resolves a user by normalized e-mail.
	UserByEmail(ctx context.Context, email string) (User, error)

	// UserByID loads a user by ID.
	UserByID(ctx context.Context, id string) (User, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, userID, newHash string) error
}

// NormalizeEmail lowers and trims an e-mail address for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
