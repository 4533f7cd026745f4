package bankapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tally/cmd/internal/auth/session"
)

type contextKey string

const claimsKey contextKey = "session-claims"

// claimsFrom returns the verified access claims attached by requireAuth.
func claimsFrom(ctx context.Context) (session.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(session.AccessClaims)
	return claims, ok
}

// requireAuth verifies the bearer access token and attaches its claims to
// the request context. Any failure yields the undifferentiated 401.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(raw, prefix) {
			h.unauthorized(w)
			return
		}

		claims, err := h.sessions.ValidateAccessToken(r.Context(), strings.TrimPrefix(raw, prefix), h.now())
		if err != nil {
			h.unauthorized(w)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	}
}

// withIdempotency replays the stored response when the client retries a
// money mutation with the same Idempotency-Key. The header is optional;
// when present it must be a UUID.
func (h *Handler) withIdempotency(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" || h.idem == nil {
			next(w, r)
			return
		}
		if _, err := uuid.Parse(key); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "Idempotency-Key must be a UUID")
			return
		}

		claims, ok := claimsFrom(r.Context())
		if !ok {
			h.unauthorized(w)
			return
		}

		stored, found, err := h.idem.Get(r.Context(), key, claims.UserID)
		if err != nil {
			h.internalError(w, r, err)
			return
		}
		if found {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Idempotency-Replayed", "true")
			w.WriteHeader(stored.Status)
			_, _ = w.Write(stored.Body)
			return
		}

		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		// Only settled outcomes are worth replaying; a 5xx retry should
		// re-execute.
		if rec.status < 500 {
			if err := h.idem.Put(r.Context(), key, claims.UserID, StoredResponse{
				Status: rec.status,
				Body:   rec.body,
			}); err != nil {
				h.log.Warn("bankapi.idempotency.store_failed", "error", err.Error())
			}
		}
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	body   []byte
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.body = append(r.body, p...)
	return r.ResponseWriter.Write(p)
}
