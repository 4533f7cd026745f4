package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// seedRing creates n accounts, each owned by a distinct user, with the
// given starting balance.
func seedRing(store *MemoryStore, n int, balance int64) {
	for i := 0; i < n; i++ {
		store.SeedAccount(Account{
			ID:           fmt.Sprintf("acct-%02d", i),
			UserID:       fmt.Sprintf("user-%02d", i),
			BalanceMinor: balance,
			Currency:     "USD",
		}, fmt.Sprintf("user-%02d@example.com", i))
	}
}

// Opposite-direction transfers between the same pair must not deadlock;
// the ascending-ID lock order makes the lock graph acyclic.
func TestTransfer_ConcurrentOppositeDirections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DailyLimitMinor = 100_000_000
	cfg.MaxTransferMinor = 100_000
	eng, store := newTestEngine(t, cfg)
	seedRing(store, 2, 1_000_000)

	const rounds = 200
	now := time.Now()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := eng.Transfer(context.Background(), now, "user-00", Selector{AccountID: "acct-01"}, 100, "")
			if err != nil {
				t.Errorf("00->01: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := eng.Transfer(context.Background(), now, "user-01", Selector{AccountID: "acct-00"}, 100, "")
			if err != nil {
				t.Errorf("01->00: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	// Equal flow in both directions leaves both balances where they began.
	if got := mustBalance(t, store, "acct-00"); got != 1_000_000 {
		t.Errorf("acct-00 balance = %d, want 1000000", got)
	}
	if got := mustBalance(t, store, "acct-01"); got != 1_000_000 {
		t.Errorf("acct-01 balance = %d, want 1000000", got)
	}
}

// Many transfers around a cycle of accounts: total money is conserved and
// no balance ever admits an overdraft.
func TestTransfer_ConcurrentConservation(t *testing.T) {
	const (
		accounts = 8
		workers  = 16
		rounds   = 50
		seed     = int64(250_000)
	)

	cfg := DefaultConfig()
	cfg.DailyLimitMinor = 1_000_000_000
	eng, store := newTestEngine(t, cfg)
	seedRing(store, accounts, seed)

	now := time.Now()
	var rejected atomic.Int64

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				from := (w + i) % accounts
				to := (from + 1 + i%(accounts-1)) % accounts
				_, err := eng.Transfer(context.Background(), now,
					fmt.Sprintf("user-%02d", from),
					Selector{AccountID: fmt.Sprintf("acct-%02d", to)},
					int64(1+i%2000)*100, "")
				switch {
				case err == nil:
				case errors.Is(err, ErrInsufficientFunds):
					rejected.Add(1)
				default:
					t.Errorf("transfer %02d->%02d: %v", from, to, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	var total int64
	for i := 0; i < accounts; i++ {
		bal := mustBalance(t, store, fmt.Sprintf("acct-%02d", i))
		if bal < 0 {
			t.Errorf("acct-%02d balance went negative: %d", i, bal)
		}
		total += bal
	}
	if want := int64(accounts) * seed; total != want {
		t.Errorf("total balance = %d, want %d (money not conserved, %d rejections)", total, want, rejected.Load())
	}
}

// Concurrent transfers racing the daily allowance must admit exactly the
// amount that fits under the ceiling.
func TestTransfer_ConcurrentDailyLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTransferMinor = 10_000
	cfg.DailyLimitMinor = 100_000
	eng, store := newTestEngine(t, cfg)
	store.SeedAccount(Account{ID: "acct-src", UserID: "u-src", BalanceMinor: 10_000_000, Currency: "USD"}, "src@example.com")
	store.SeedAccount(Account{ID: "acct-dst", UserID: "u-dst", BalanceMinor: 0, Currency: "USD"}, "dst@example.com")

	const attempts = 20
	now := time.Now()

	var ok, limited atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Transfer(context.Background(), now, "u-src", Selector{AccountID: "acct-dst"}, 10_000, "")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrDailyLimitExceeded):
				limited.Add(1)
			default:
				t.Errorf("transfer: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 10 || limited.Load() != 10 {
		t.Errorf("admitted %d, limited %d; want exactly 10 of each", ok.Load(), limited.Load())
	}
	if got := mustBalance(t, store, "acct-dst"); got != 100_000 {
		t.Errorf("destination received %d, want exactly the daily allowance 100000", got)
	}
}

// A transfer that fails mid-unit must leave no partial mutation behind.
func TestTransfer_RollbackLeavesNoTrace(t *testing.T) {
	cfg := DefaultConfig()
	eng, store := newTestEngine(t, cfg)
	seedPair(store)

	// Exhaust the balance so the next transfer fails after locking.
	now := time.Now()
	if _, err := eng.Transfer(context.Background(), now, "u-alice", Selector{AccountID: "acct-b"}, 200_000, ""); err != nil {
		t.Fatalf("setup transfer: %v", err)
	}
	if _, err := eng.Transfer(context.Background(), now, "u-alice", Selector{AccountID: "acct-b"}, 200_000, ""); err != nil {
		t.Fatalf("setup transfer: %v", err)
	}

	_, err := eng.Transfer(context.Background(), now, "u-alice", Selector{AccountID: "acct-b"}, 150_000, "")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	if got := mustBalance(t, store, "acct-a"); got != 100_000 {
		t.Errorf("source balance = %d, want 100000", got)
	}
	if got := mustBalance(t, store, "acct-b"); got != 500_000 {
		t.Errorf("destination balance = %d, want 500000", got)
	}

	hist, err := eng.History(context.Background(), "u-alice", 1, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 2 {
		t.Errorf("history holds %d records, want only the 2 committed transfers", len(hist))
	}
}
