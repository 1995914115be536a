package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hachizeus/anzia-auth/internal/models"
	pkghttp "github.com/hachizeus/anzia-auth/pkg/http"
)

type contextKey string

const (
	// UserContextKey is the key for storing token claims in context
	UserContextKey contextKey = "user"
)

// UserFetcher is the user-lookup capability the role gate needs.
type UserFetcher interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Middleware validates the bearer token and injects its claims into the
// request context. Every protected route passes through here; validation is
// stateless, so requests are safely parallel.
func Middleware(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				pkghttp.WriteUnauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := tm.Validate(parts[1])
			if err != nil {
				if errors.Is(err, models.ErrTokenExpired) {
					pkghttp.WriteUnauthorized(w, "token expired")
					return
				}
				pkghttp.WriteUnauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole enforces role-based access. The role is re-read from the user
// store rather than trusted from the token, so demotions take effect without
// waiting for the client to fetch a fresh token.
func RequireRole(users UserFetcher, role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "user not found")
					return
				}
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}

			if user.Role != role {
				pkghttp.WriteForbidden(w, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts token claims from the request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
