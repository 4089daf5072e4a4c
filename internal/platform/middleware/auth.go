package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*AuthClaims, error)
}

// AuthClaims is the authenticated identity extracted from a token.
type AuthClaims struct {
	UserID    string
	UserName  string
	Email     string
	SessionID string
}

type contextKeyClaims struct{}

// ContextKeyClaims is exported for tests that need context.WithValue.
var ContextKeyClaims = contextKeyClaims{}

// GetClaims retrieves the authenticated claims from the context, or nil.
func GetClaims(ctx context.Context) *AuthClaims {
	claims, ok := ctx.Value(ContextKeyClaims).(*AuthClaims)
	if !ok {
		return nil
	}
	return claims
}

// RequireAuth rejects requests without a valid bearer token and stores the
// claims in the request context for handlers downstream.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				unauthorized(w)
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				if logger != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", GetRequestID(ctx),
					)
				}
				unauthorized(w)
				return
			}
			ctx = context.WithValue(ctx, ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired token"}`))
}
