package ledger

import "time"

// Type tags a transaction record.
type Type string

const (
	// TypeTransfer is an account-to-account movement.
	TypeTransfer Type = "TRANSFER"
	// TypeDeposit is an external credit (no source account).
	TypeDeposit Type = "DEPOSIT"
)

// Account is a user's single monetary account.
// Balance is in minor currency units and never goes negative.
type Account struct {
	ID           string
	UserID       string
	BalanceMinor int64
	Currency     string
}

// Transaction is one append-only ledger record. A nil FromAccountID is an
// external credit; a nil ToAccountID is an external debit. Records are
// never updated or deleted.
type Transaction struct {
	ID            string
	FromAccountID *string
	ToAccountID   *string
	AmountMinor   int64
	Description   string
	Type          Type
	CreatedAt     time.Time
}

// Selector identifies a destination account either directly by account ID
// or indirectly by the owner's e-mail address. Exactly one field must be set.
type Selector struct {
	AccountID  string
	OwnerEmail string
}

func (s Selector) valid() bool {
	return (s.AccountID != "") != (s.OwnerEmail != "")
}
