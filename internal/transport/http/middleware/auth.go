package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/emerald-haven/api/internal/domain"
	jwtinfra "github.com/emerald-haven/api/internal/infrastructure/jwt"
)

type contextKey string

const identityKey contextKey = "identity"

// CookieName is the session cookie read by Auth and set by the auth handlers.
const CookieName = "token"

// Identity is the authenticated account attached to a request.
type Identity struct {
	AccountID string
	Email     string
}

type tokenVerifier interface {
	Verify(tokenStr string) (*jwtinfra.Claims, error)
}

type accountLookup interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
}

// Auth validates the session token, re-resolves the account it names and
// attaches the account's Identity to the request context. The token comes from
// a Bearer Authorization header, or failing that the session cookie.
func Auth(tokens tokenVerifier, accounts accountLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := extractToken(r)
			if tokenStr == "" {
				writeJSONError(w, http.StatusUnauthorized, "No token provided")
				return
			}
			claims, err := tokens.Verify(tokenStr)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			a, err := accounts.Get(r.Context(), claims.AccountID)
			if errors.Is(err, domain.ErrNotFound) {
				writeJSONError(w, http.StatusUnauthorized, "User not found")
				return
			}
			if err != nil {
				slog.Error("session account lookup failed", "account_id", claims.AccountID, "err", err)
				writeJSONError(w, http.StatusInternalServerError, "Server error")
				return
			}
			ctx := WithIdentity(r.Context(), Identity{AccountID: a.AccountID, Email: a.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the Identity attached by Auth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.AccountID != ""
}
