package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/datatrace-io/datatrace/internal/models"
	pkghttp "github.com/datatrace-io/datatrace/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

// UserContextKey is the key for storing user claims in context
const UserContextKey contextKey = "user"

// ActiveUserFetcher loads the authoritative identity record; inactive users
// are invisible to it.
type ActiveUserFetcher interface {
	GetActiveByID(ctx context.Context, id string) (*models.User, error)
}

// Middleware validates the Bearer token, confirms the account is still
// active, and injects both claims and identity into the request context.
// A deactivated account is rejected even while its tokens are unexpired.
func Middleware(tm *TokenManager, users ActiveUserFetcher) func(next http.Handler) http.Handler {
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

			claims, err := tm.ValidateToken(parts[1])
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			user, err := users.GetActiveByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteUnauthorized(w, "account not found or deactivated")
					return
				}
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole enforces role-based access on top of Middleware.
func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r)
			if user == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
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

// UserFromContext extracts the authenticated identity from the request
// context. Nil when the request skipped the auth middleware.
func UserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
