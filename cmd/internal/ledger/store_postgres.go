package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the ledger in the tally schema. Exclusive row
// locks on tally.accounts carry the transfer protocol; tally.transactions
// is append-only.
type PostgresStore struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresStore wraps a pgx pool. lockTimeout, when positive, bounds
// row-lock waits inside each atomic unit via SET LOCAL lock_timeout.
func NewPostgresStore(pool *pgxpool.Pool, lockTimeout time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, lockTimeout: lockTimeout}
}

const accountColumns = `id, user_id, balance_minor, currency`

func (s *PostgresStore) AccountByUser(ctx context.Context, userID string) (Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM tally.accounts WHERE user_id = $1`,
		userID,
	)
	return scanAccount(row)
}

func (s *PostgresStore) AccountByID(ctx context.Context, id string) (Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM tally.accounts WHERE id = $1`,
		id,
	)
	return scanAccount(row)
}

func (s *PostgresStore) AccountByEmail(ctx context.Context, email string) (Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT a.id, a.user_id, a.balance_minor, a.currency
		   FROM tally.accounts a
		   JOIN tally.users u ON u.id = a.user_id
		  WHERE u.email = $1`,
		email,
	)
	return scanAccount(row)
}

func (s *PostgresStore) Transactions(ctx context.Context, accountID string, limit, offset int) ([]Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, from_account_id, to_account_id, amount_minor, description, type, created_at
		   FROM tally.transactions
		  WHERE from_account_id = $1 OR to_account_id = $1
		  ORDER BY created_at DESC, id DESC
		  LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]Transaction, 0, limit)
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.FromAccountID, &t.ToAccountID, &t.AmountMinor, &t.Description, &t.Type, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// InTx opens a database transaction, runs fn against it and commits when
// fn returns nil. Any error rolls the transaction back unchanged.
func (s *PostgresStore) InTx(ctx context.Context, fn func(Tx) error) error {
	dbTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback(ctx)

	if s.lockTimeout > 0 {
		ms := s.lockTimeout.Milliseconds()
		if _, err := dbTx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ms)); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if err := fn(&pgLedgerTx{tx: dbTx}); err != nil {
		return err
	}
	return dbTx.Commit(ctx)
}

type pgLedgerTx struct {
	tx pgx.Tx
}

// LockAccounts takes the rows one at a time in the caller-supplied order.
// A single multi-row SELECT ... FOR UPDATE does not guarantee lock
// acquisition order, so the loop is load-bearing.
func (t *pgLedgerTx) LockAccounts(ctx context.Context, ids ...string) ([]Account, error) {
	out := make([]Account, 0, len(ids))
	for _, id := range ids {
		row := t.tx.QueryRow(ctx,
			`SELECT `+accountColumns+` FROM tally.accounts WHERE id = $1 FOR UPDATE`,
			id,
		)
		acct, err := scanAccount(row)
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, nil
}

func (t *pgLedgerTx) DailyTransferTotal(ctx context.Context, accountID string, from, to time.Time) (int64, error) {
	var total int64
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_minor), 0)
		   FROM tally.transactions
		  WHERE from_account_id = $1
		    AND type = $2
		    AND created_at >= $3
		    AND created_at < $4`,
		accountID, TypeTransfer, from, to,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum daily transfers: %w", err)
	}
	return total, nil
}

func (t *pgLedgerTx) AddToBalance(ctx context.Context, accountID string, deltaMinor int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE tally.accounts SET balance_minor = balance_minor + $2 WHERE id = $1`,
		accountID, deltaMinor,
	)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (t *pgLedgerTx) InsertTransaction(ctx context.Context, rec Transaction) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO tally.transactions
		   (id, from_account_id, to_account_id, amount_minor, description, type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.FromAccountID, rec.ToAccountID, rec.AmountMinor, rec.Description, rec.Type, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.UserID, &a.BalanceMinor, &a.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}
