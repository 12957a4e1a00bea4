package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmcallister-dev/medgate/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// AdminContextKey is the key for storing admin claims in context
	AdminContextKey contextKey = "admin"
)

// AdminAuthMiddleware validates bearer tokens and injects the admin claims
// into the request context.
func AdminAuthMiddleware(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := tm.Validate(parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), AdminContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole enforces role-based access using the claims already validated
// by AdminAuthMiddleware. The role is trusted from the token; this service
// has no user store to re-check it against.
func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetAdminFromContext(r)
			if claims == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if claims.Role != role {
				http.Error(w, "forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetAdminFromContext extracts admin claims from request context
func GetAdminFromContext(r *http.Request) *models.AdminClaims {
	claims, ok := r.Context().Value(AdminContextKey).(*models.AdminClaims)
	if !ok {
		return nil
	}
	return claims
}
