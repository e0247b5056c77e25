package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sandeepkv93/account-verification-service/internal/http/response"
	"github.com/sandeepkv93/account-verification-service/internal/observability"
	"github.com/sandeepkv93/account-verification-service/internal/security"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
)

type SessionTokenParser interface {
	ParseSessionToken(raw string) (*security.Claims, error)
}

// AuthMiddleware accepts the session token from the session cookie or an
// Authorization bearer header, cookie first.
func AuthMiddleware(parser SessionTokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, source := sessionTokenFromRequest(r)
			if raw == "" {
				observability.RecordSessionTokenValidation(r.Context(), "missing", source)
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token", nil)
				return
			}
			claims, err := parser.ParseSessionToken(raw)
			if err != nil {
				observability.RecordSessionTokenValidation(r.Context(), "invalid", source)
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session token", nil)
				return
			}
			observability.RecordSessionTokenValidation(r.Context(), "valid", source)
			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionTokenFromRequest(r *http.Request) (string, string) {
	if raw := security.GetCookie(r, security.SessionCookieName); raw != "" {
		return raw, "cookie"
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:]), "header"
	}
	return "", "none"
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	c, ok := ctx.Value(ClaimsContextKey).(*security.Claims)
	return c, ok
}
