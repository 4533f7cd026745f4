package bankapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tally/cmd/identity"
	"tally/cmd/internal/auth/session"
	"tally/cmd/internal/ledger"
	"tally/cmd/internal/metrics"
	"tally/cmd/security/password"
)

const refreshCookieName = "refresh_token"

// Refresh cookies are scoped to the auth endpoints so the credential is
// never sent with ordinary API calls.
const refreshCookiePath = "/auth"

const (
	codeInvalidRequest    = "invalid_request"
	codeAuthFailed        = "authentication_failed"
	codeNotFound          = "not_found"
	codeInsufficientFunds = "insufficient_funds"
	codeDailyLimit        = "daily_limit_exceeded"
	codeSelfTransfer      = "self_transfer"
	codeInternal          = "internal_error"
)

// Deps carries everything a Handler needs.
type Deps struct {
	Log         *slog.Logger
	Sessions    *session.Service
	Users       identity.Store
	Passwords   password.Config
	Ledger      *ledger.Engine
	Idempotency IdempotencyStore
	Metrics     *metrics.Metrics

	// CookieSecure marks refresh cookies Secure; disable only for local
	// plain-HTTP development.
	CookieSecure bool

	// Now overrides the clock in tests. Defaults to time.Now.
	Now func() time.Time
}

// Handler serves the HTTP API.
type Handler struct {
	log          *slog.Logger
	sessions     *session.Service
	users        identity.Store
	passwords    password.Config
	ledger       *ledger.Engine
	idem         IdempotencyStore
	metrics      *metrics.Metrics
	cookieSecure bool
	now          func() time.Time

	// dummyHash absorbs the same verification cost for unknown users as
	// for known ones, keeping login timing uniform.
	dummyHash string
}

func NewHandler(d Deps) *Handler {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	dummy, err := d.Passwords.Hash("timing-equalizer-credential")
	if err != nil {
		d.Log.Warn("bankapi.dummy_hash_failed", "error", err.Error())
	}
	return &Handler{
		log:          d.Log,
		sessions:     d.Sessions,
		users:        d.Users,
		passwords:    d.Passwords,
		ledger:       d.Ledger,
		idem:         d.Idempotency,
		metrics:      d.Metrics,
		cookieSecure: d.CookieSecure,
		now:          d.Now,
		dummyHash:    dummy,
	}
}

// Register mounts all API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)

	mux.HandleFunc("GET /me", h.requireAuth(h.handleMe))
	mux.HandleFunc("POST /me/change-password", h.requireAuth(h.handleChangePassword))
	mux.HandleFunc("GET /accounts/balance", h.requireAuth(h.handleBalance))
	mux.HandleFunc("GET /transactions", h.requireAuth(h.handleTransactions))
	mux.HandleFunc("POST /transfers", h.requireAuth(h.withIdempotency(h.handleTransfer)))
	mux.HandleFunc("POST /deposits", h.requireAuth(h.withIdempotency(h.handleDeposit)))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "malformed request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "email and password are required")
		return
	}

	now := h.now()
	user, err := h.users.UserByEmail(r.Context(), identity.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			// Burn the same verification cost as the known-user path.
			_, _ = h.passwords.Verify(h.dummyHash, req.Password)
			h.observeSession("login", "fail")
			h.unauthorized(w)
			return
		}
		h.internalError(w, r, err)
		return
	}

	ok, err := h.passwords.Verify(user.PasswordHash, req.Password)
	if err != nil || !ok {
		h.observeSession("login", "fail")
		h.unauthorized(w)
		return
	}

	issued, err := h.sessions.IssueSession(r.Context(), now, user.ID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	h.setRefreshCookie(w, issued.RefreshToken, issued.RefreshExp)
	h.observeSession("login", "ok")
	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken: issued.AccessToken,
		ExpiresAt:   issued.AccessExp,
		User:        userResponse{ID: user.ID, Name: user.Name, Email: user.Email},
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		h.observeSession("refresh", "fail")
		h.unauthorized(w)
		return
	}

	issued, err := h.sessions.RotateSession(r.Context(), h.now(), cookie.Value)
	if err != nil {
		if errors.Is(err, session.ErrAuthenticationFailed) {
			// The credential is dead either way; drop it from the client.
			h.clearRefreshCookie(w)
			h.observeSession("refresh", "fail")
			h.unauthorized(w)
			return
		}
		h.internalError(w, r, err)
		return
	}

	claims, err := h.sessions.ValidateAccessToken(r.Context(), issued.AccessToken, h.now())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	user, err := h.users.UserByID(r.Context(), claims.UserID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	h.setRefreshCookie(w, issued.RefreshToken, issued.RefreshExp)
	h.observeSession("refresh", "ok")
	writeJSON(w, http.StatusOK, sessionResponse{
		AccessToken: issued.AccessToken,
		ExpiresAt:   issued.AccessExp,
		User:        userResponse{ID: user.ID, Name: user.Name, Email: user.Email},
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.RevokeSession(r.Context(), h.now(), cookie.Value); err != nil {
			h.internalError(w, r, err)
			return
		}
	}
	h.clearRefreshCookie(w)
	h.observeSession("logout", "ok")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		h.unauthorized(w)
		return
	}
	user, err := h.users.UserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			h.unauthorized(w)
			return
		}
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Name: user.Name, Email: user.Email})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		h.unauthorized(w)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "malformed request body")
		return
	}

	user, err := h.users.UserByID(r.Context(), claims.UserID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	ok, err = h.passwords.Verify(user.PasswordHash, req.CurrentPassword)
	if err != nil || !ok {
		h.unauthorized(w)
		return
	}

	newHash, err := h.passwords.Hash(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	if err := h.users.UpdatePassword(r.Context(), user.ID, newHash); err != nil {
		h.internalError(w, r, err)
		return
	}

	// Every outstanding session dies with the old password.
	if err := h.sessions.RevokeAllSessions(r.Context(), h.now(), user.ID); err != nil {
		h.internalError(w, r, err)
		return
	}
	h.clearRefreshCookie(w)
	h.observeSession("revoke_all", "ok")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		h.unauthorized(w)
		return
	}
	acct, err := h.ledger.Balance(r.Context(), claims.UserID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{
		AccountID:    acct.ID,
		BalanceMinor: acct.BalanceMinor,
		Currency:     acct.Currency,
	})
}

func (h *Handler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		h.unauthorized(w)
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	records, err := h.ledger.History(r.Context(), claims.UserID, page, limit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toTransactionResponse(rec))
	}
	writeJSON(w, http.StatusOK, transactionsResponse{Page: page, Limit: limit, Transactions: out})
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		h.unauthorized(w)
		return
	}

	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "malformed request body")
		return
	}

	started := time.Now()
	rec, err := h.ledger.Transfer(r.Context(), h.now(), claims.UserID,
		ledger.Selector{AccountID: req.ToAccountID, OwnerEmail: req.ToEmail},
		req.AmountMinor, req.Description)
	h.observeTransfer(err, time.Since(started))
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(rec))
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		h.unauthorized(w)
		return
	}

	var req depositRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "malformed request body")
		return
	}

	rec, err := h.ledger.Deposit(r.Context(), h.now(), claims.UserID, req.AmountMinor, req.Description)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(rec))
}

func (h *Handler) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "destination account not found")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, codeInsufficientFunds, "insufficient funds")
	case errors.Is(err, ledger.ErrDailyLimitExceeded):
		writeError(w, http.StatusUnprocessableEntity, codeDailyLimit, "daily transfer limit exceeded")
	case errors.Is(err, ledger.ErrSelfTransfer):
		writeError(w, http.StatusUnprocessableEntity, codeSelfTransfer, "cannot transfer to your own account")
	case ledger.IsRejection(err):
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, codeAuthFailed, "authentication failed")
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("bankapi.request_failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     refreshCookiePath,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) observeSession(operation, outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveSession(operation, outcome)
	}
}

func (h *Handler) observeTransfer(err error, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case ledger.IsRejection(err):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	h.metrics.ObserveTransfer(outcome, elapsed)
}

func toTransactionResponse(rec ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:            rec.ID,
		FromAccountID: rec.FromAccountID,
		ToAccountID:   rec.ToAccountID,
		AmountMinor:   rec.AmountMinor,
		Description:   rec.Description,
		Type:          string(rec.Type),
		CreatedAt:     rec.CreatedAt,
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
