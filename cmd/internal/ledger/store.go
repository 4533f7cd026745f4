package ledger

import (
	"context"
	"time"
)

// Store abstracts ledger persistence.
//
// All balance mutation flows through InTx; the read methods outside it are
// only used for resolution and display and must never be trusted for
// balance checks (concurrent transfers may invalidate them at any time).
type Store interface {
	// AccountByUser resolves the single account owned by userID.
	AccountByUser(ctx context.Context, userID string) (Account, error)

	// AccountByID loads an account by its identifier.
	AccountByID(ctx context.Context, id string) (Account, error)

	// AccountByEmail resolves an account via its owner's e-mail address.
	AccountByEmail(ctx context.Context, email string) (Account, error)

	// Transactions lists records touching accountID, newest first.
	Transactions(ctx context.Context, accountID string, limit, offset int) ([]Transaction, error)

	// InTx runs fn inside one atomic unit of work. A non-nil error from fn
	// rolls every buffered mutation back.
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the set of operations available inside an atomic unit.
type Tx interface {
	// LockAccounts acquires exclusive row locks on the given accounts, in
	// the given order, and returns their current rows. Callers must pass
	// IDs in ascending order; the fixed ordering is the deadlock-avoidance
	// protocol and must not be bypassed.
	LockAccounts(ctx context.Context, ids ...string) ([]Account, error)

	// DailyTransferTotal sums TRANSFER-type debits of accountID recorded in
	// the half-open interval [from, to), including records inserted earlier
	// in this same atomic unit.
	DailyTransferTotal(ctx context.Context, accountID string, from, to time.Time) (int64, error)

	// AddToBalance adjusts an account balance by deltaMinor. The account
	// must have been locked by this atomic unit.
	AddToBalance(ctx context.Context, accountID string, deltaMinor int64) error

	// InsertTransaction appends one transaction record.
	InsertTransaction(ctx context.Context, t Transaction) error
}
