// Package app wires the Tally server runtime: config, logging, stores,
// the ledger engine, sessions, and HTTP routes.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"tally/cmd/identity"
	"tally/cmd/internal/auth/session"
	"tally/cmd/internal/bankapi"
	kafkaevents "tally/cmd/internal/events/kafka"
	"tally/cmd/internal/ledger"
	"tally/cmd/internal/metrics"
	"tally/cmd/security/password"
)

// Store is a small app-level lifecycle abstraction for resources that
// need a graceful close.
type Store interface {
	Close(ctx context.Context) error
}

type nopStore struct{}

func (nopStore) Close(_ context.Context) error { return nil }

type dbStore struct {
	pool *pgxpool.Pool
}

func (s dbStore) Close(_ context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// App is the Tally server runtime.
type App struct {
	cfg Config
	log Logger

	store Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics *metrics.Metrics
	events  *kafkaevents.Publisher

	api *bankapi.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	tokens, err := session.NewPasetoV4PublicManager(sessCfg)
	if err != nil {
		return nil, err
	}

	ledgerCfg, err := ledger.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	var (
		st          Store = nopStore{}
		dbPool      *pgxpool.Pool
		dbEnabled   bool
		users       identity.Store
		sessStore   session.Store
		ledgerStore ledger.Store
		idem        bankapi.IdempotencyStore
	)

	if cfg.DatabaseURL != "" {
		pool, err := NewDBPool(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		log.Info("db.enabled.postgres_store")

		st = dbStore{pool: pool}
		dbPool = pool
		dbEnabled = true
		users = identity.NewPostgresStore(pool)
		sessStore = session.NewPostgresStore(pool)
		ledgerStore = ledger.NewPostgresStore(pool, ledgerCfg.LockTimeout)
		idem = bankapi.NewPostgresIdempotencyStore(pool)
	} else {
		log.Info("db.disabled.inmemory_store")

		memUsers := identity.NewMemoryStore()
		memLedger := ledger.NewMemoryStore()
		if cfg.DevSeed {
			if err := seedDevData(memUsers, memLedger, pwCfg); err != nil {
				return nil, err
			}
			log.Info("dev.seeded_demo_users")
		}
		users = memUsers
		sessStore = session.NewMemoryStore()
		ledgerStore = memLedger
		idem = bankapi.NewMemoryIdempotencyStore()
	}

	m := metrics.New()

	var events *kafkaevents.Publisher
	var publisher ledger.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		events = kafkaevents.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		publisher = events
		log.Info("events.kafka_enabled", "brokers", cfg.KafkaBrokers)
	}

	sessions := session.NewService(sessCfg, sessStore, tokens, log)
	engine := ledger.NewEngine(ledgerCfg, ledgerStore, publisher, log)

	api := bankapi.NewHandler(bankapi.Deps{
		Log:          log,
		Sessions:     sessions,
		Users:        users,
		Passwords:    pwCfg,
		Ledger:       engine,
		Idempotency:  idem,
		Metrics:      m,
		CookieSecure: cfg.CookieSecure,
	})

	return &App{
		cfg:       cfg,
		log:       log,
		store:     st,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		metrics:   m,
		events:    events,
		api:       api,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or a
// fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics, a.api)

	handler := WithSecurityHeaders(WithCORS(mux, a.cfg, a.log))
	handler = WithRequestLogging(handler, a.log, a.metrics)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.Error("events.close.fail", "err", err)
		}
	}
	if err := a.store.Close(shutdownCtx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// seedDevData mirrors the demo data used by the local stack: two users
// with funded accounts and a well-known password.
func seedDevData(users *identity.MemoryStore, store *ledger.MemoryStore, pw password.Config) error {
	const devPassword = "password123!"

	hash, err := pw.Hash(devPassword)
	if err != nil {
		return err
	}

	seed := []struct {
		name    string
		email   string
		balance int64
	}{
		{"Alice", "alice@example.com", 500_000},
		{"Bob", "bob@example.com", 100_000},
	}
	for _, s := range seed {
		userID := ulid.Make().String()
		users.Seed(identity.User{
			ID:           userID,
			Name:         s.name,
			Email:        s.email,
			PasswordHash: hash,
		})
		store.SeedAccount(ledger.Account{
			ID:           ulid.Make().String(),
			UserID:       userID,
			BalanceMinor: s.balance,
			Currency:     "USD",
		}, s.email)
	}
	return nil
}
