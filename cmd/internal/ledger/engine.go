package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// Engine executes ledger operations against a Store and enforces every
// business rule: positive amounts, the per-transfer ceiling, distinct
// owners, sufficient funds and the calendar-day transfer limit.
type Engine struct {
	cfg    Config
	store  Store
	events EventPublisher
	log    *slog.Logger
}

// NewEngine wires an engine. A nil events publisher disables event
// emission; a nil logger falls back to slog.Default().
func NewEngine(cfg Config, store Store, events EventPublisher, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if events == nil {
		events = NopPublisher{}
	}
	return &Engine{cfg: cfg, store: store, events: events, log: log}
}

// Transfer moves amountMinor from the account owned by userID to the
// account named by dest, atomically. On success it returns the appended
// transaction record; on any rejection or failure no balance changes.
//
// The destination is resolved outside the atomic unit, then both accounts
// are locked in ascending ID order and the funds and daily-limit checks
// run against the locked balances, so a stale pre-read can never admit an
// overdraft or a limit breach.
func (e *Engine) Transfer(ctx context.Context, now time.Time, userID string, dest Selector, amountMinor int64, description string) (Transaction, error) {
	if amountMinor <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	if amountMinor > e.cfg.MaxTransferMinor {
		return Transaction{}, ErrAmountOverLimit
	}
	if !dest.valid() {
		return Transaction{}, ErrInvalidSelector
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return Transaction{}, ErrDescriptionTooLong
	}

	src, err := e.store.AccountByUser(ctx, userID)
	if err != nil {
		return Transaction{}, fmt.Errorf("resolve source account: %w", err)
	}

	dst, err := e.resolveDestination(ctx, dest)
	if err != nil {
		return Transaction{}, err
	}

	if dst.UserID == src.UserID {
		return Transaction{}, ErrSelfTransfer
	}

	dayStart, dayEnd := dayBounds(now)

	rec := Transaction{
		ID:            ulid.Make().String(),
		FromAccountID: &src.ID,
		ToAccountID:   &dst.ID,
		AmountMinor:   amountMinor,
		Description:   description,
		Type:          TypeTransfer,
		CreatedAt:     now.UTC(),
	}

	err = e.store.InTx(ctx, func(tx Tx) error {
		ids := []string{src.ID, dst.ID}
		sort.Strings(ids)

		locked, err := tx.LockAccounts(ctx, ids...)
		if err != nil {
			return err
		}

		var lockedSrc Account
		for _, a := range locked {
			if a.ID == src.ID {
				lockedSrc = a
			}
		}

		if lockedSrc.BalanceMinor < amountMinor {
			return ErrInsufficientFunds
		}

		spent, err := tx.DailyTransferTotal(ctx, src.ID, dayStart, dayEnd)
		if err != nil {
			return fmt.Errorf("daily transfer total: %w", err)
		}
		if spent+amountMinor > e.cfg.DailyLimitMinor {
			return ErrDailyLimitExceeded
		}

		if err := tx.AddToBalance(ctx, src.ID, -amountMinor); err != nil {
			return fmt.Errorf("debit source: %w", err)
		}
		if err := tx.AddToBalance(ctx, dst.ID, amountMinor); err != nil {
			return fmt.Errorf("credit destination: %w", err)
		}
		return tx.InsertTransaction(ctx, rec)
	})
	if err != nil {
		return Transaction{}, err
	}

	e.log.Info("ledger.transfer.completed",
		slog.String("transaction_id", rec.ID),
		slog.String("from_account_id", src.ID),
		slog.String("to_account_id", dst.ID),
		slog.Int64("amount_minor", amountMinor),
	)
	e.publish(ctx, rec)

	return rec, nil
}

// Deposit credits amountMinor to the account owned by userID and appends a
// DEPOSIT record with no source account.
func (e *Engine) Deposit(ctx context.Context, now time.Time, userID string, amountMinor int64, description string) (Transaction, error) {
	if amountMinor <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return Transaction{}, ErrDescriptionTooLong
	}

	acct, err := e.store.AccountByUser(ctx, userID)
	if err != nil {
		return Transaction{}, fmt.Errorf("resolve account: %w", err)
	}

	rec := Transaction{
		ID:          ulid.Make().String(),
		ToAccountID: &acct.ID,
		AmountMinor: amountMinor,
		Description: description,
		Type:        TypeDeposit,
		CreatedAt:   now.UTC(),
	}

	err = e.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.LockAccounts(ctx, acct.ID); err != nil {
			return err
		}
		if err := tx.AddToBalance(ctx, acct.ID, amountMinor); err != nil {
			return fmt.Errorf("credit account: %w", err)
		}
		return tx.InsertTransaction(ctx, rec)
	})
	if err != nil {
		return Transaction{}, err
	}

	e.log.Info("ledger.deposit.completed",
		slog.String("transaction_id", rec.ID),
		slog.String("account_id", acct.ID),
		slog.Int64("amount_minor", amountMinor),
	)

	return rec, nil
}

// Balance returns the current account of userID.
func (e *Engine) Balance(ctx context.Context, userID string) (Account, error) {
	return e.store.AccountByUser(ctx, userID)
}

// History returns a page of transaction records touching the account of
// userID, newest first. Pages are 1-based; limit is clamped to [1, 100]
// with a default of 10.
func (e *Engine) History(ctx context.Context, userID string, page, limit int) ([]Transaction, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	acct, err := e.store.AccountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve account: %w", err)
	}
	return e.store.Transactions(ctx, acct.ID, limit, (page-1)*limit)
}

func (e *Engine) resolveDestination(ctx context.Context, dest Selector) (Account, error) {
	if dest.AccountID != "" {
		return e.store.AccountByID(ctx, dest.AccountID)
	}
	return e.store.AccountByEmail(ctx, strings.ToLower(strings.TrimSpace(dest.OwnerEmail)))
}

func (e *Engine) publish(ctx context.Context, rec Transaction) {
	ev := TransferCompleted{
		TransactionID: rec.ID,
		FromAccountID: *rec.FromAccountID,
		ToAccountID:   *rec.ToAccountID,
		AmountMinor:   rec.AmountMinor,
		CompletedAt:   rec.CreatedAt,
	}
	if err := e.events.PublishTransferCompleted(ctx, ev); err != nil {
		// The transfer already committed; event delivery is best-effort.
		e.log.Warn("ledger.event.publish_failed",
			slog.String("transaction_id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}

// dayBounds returns the half-open service-local calendar day [start, end)
// containing now.
func dayBounds(now time.Time) (time.Time, time.Time) {
	local := now.Local()
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return start, start.AddDate(0, 0, 1)
}
