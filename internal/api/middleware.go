/**
 * @description
 * This file contains custom middleware for the HTTP router: the bearer-token
 * authorization gates and the request body size cap. The gates verify the session
 * token, re-load the account it points at so revoked or deleted accounts are cut
 * off immediately, and stash the account in the request context for handlers.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - internal/app, internal/domain: Token verification and account models.
 */

package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/globepay/payments-service/internal/app"
	"github.com/globepay/payments-service/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	userContextKey  contextKey = "currentUser"
	adminContextKey contextKey = "currentAdmin"
)

const (
	msgNotLoggedIn   = "You are not logged in. Please log in to access this route."
	msgTokenInvalid  = "Invalid token. Please log in again."
	msgTokenExpired  = "Your token has expired. Please log in again."
	msgAccountGone   = "The user belonging to this token no longer exists."
	msgAdminInactive = "Admin account is deactivated"
	msgNoPermission  = "You do not have permission to perform this action."
)

const maxBodyBytes = 10 * 1024

// UserFromContext returns the authenticated user stored by RequireUser.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userContextKey).(*domain.User)
	return user, ok
}

// AdminFromContext returns the authenticated admin stored by RequireAdmin.
func AdminFromContext(ctx context.Context) (*domain.Admin, bool) {
	admin, ok := ctx.Value(adminContextKey).(*domain.Admin)
	return admin, ok
}

// BodyLimit caps the request body size so oversized payloads fail fast.
func BodyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || strings.TrimSpace(tokenString) == "" {
		return "", false
	}
	return strings.TrimSpace(tokenString), true
}

// RequireUser gates a route to authenticated customers. The account is re-loaded
// on every request; a token whose account has disappeared is rejected.
func (h *Handlers) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			writeFail(w, http.StatusUnauthorized, msgNotLoggedIn, nil)
			return
		}

		subject, kind, err := h.service.VerifyToken(tokenString)
		if err != nil {
			if errors.Is(err, app.ErrTokenExpired) {
				writeFail(w, http.StatusUnauthorized, msgTokenExpired, nil)
				return
			}
			writeFail(w, http.StatusUnauthorized, msgTokenInvalid, nil)
			return
		}
		if kind != app.TokenKindUser {
			writeFail(w, http.StatusForbidden, msgNoPermission, nil)
			return
		}

		user, err := h.service.GetUser(r.Context(), subject)
		if err != nil {
			writeFail(w, http.StatusUnauthorized, msgAccountGone, nil)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates a route to active back-office administrators.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			writeFail(w, http.StatusUnauthorized, msgNotLoggedIn, nil)
			return
		}

		subject, kind, err := h.service.VerifyToken(tokenString)
		if err != nil {
			if errors.Is(err, app.ErrTokenExpired) {
				writeFail(w, http.StatusUnauthorized, msgTokenExpired, nil)
				return
			}
			writeFail(w, http.StatusUnauthorized, msgTokenInvalid, nil)
			return
		}
		if kind != app.TokenKindAdmin {
			writeFail(w, http.StatusForbidden, msgNoPermission, nil)
			return
		}

		admin, err := h.service.GetAdmin(r.Context(), subject)
		if err != nil {
			writeFail(w, http.StatusUnauthorized, msgAccountGone, nil)
			return
		}
		if !admin.IsActive {
			log.Printf("level=warn component=api msg=\"deactivated admin blocked\" admin_id=%s", admin.ID)
			writeFail(w, http.StatusUnauthorized, msgAdminInactive, nil)
			return
		}

		ctx := context.WithValue(r.Context(), adminContextKey, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSuperAdmin further restricts an admin route to the super_admin role. It
// must run after RequireAdmin. No current route uses it; it exists for operations
// like admin account management that only the top role should perform.
func (h *Handlers) RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := AdminFromContext(r.Context())
		if !ok || admin.Role != domain.RoleSuperAdmin {
			writeFail(w, http.StatusForbidden, msgNoPermission, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
