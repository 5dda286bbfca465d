package middleware

import (
	"context"
	"net/http"

	"github.com/roumel00/skeleton/internal/http/response"
	"github.com/roumel00/skeleton/internal/security"
)

type claimsContextKeyType struct{}

var claimsKey = claimsContextKeyType{}

// ClaimsFromContext extracts the verified token claims attached by
// RequireAuth.
func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*security.Claims)
	return claims, ok
}

// ContextWithClaims is exported for handler tests.
func ContextWithClaims(ctx context.Context, claims *security.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

type AuthMiddleware struct {
	tokens *security.JWTManager
}

func NewAuthMiddleware(tokens *security.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth reads the bearer token from the auth cookie, verifies
// it, and attaches the claims to the request context. Requests without
// a valid token are rejected without distinguishing missing, expired,
// or tampered tokens.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := security.GetCookie(r, security.AuthCookieName)
		if raw == "" {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		claims, err := a.tokens.Parse(raw)
		if err != nil {
			response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}
