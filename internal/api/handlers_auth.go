/**
 * @description
 * HTTP handlers for customer registration, login, and the current-session lookup.
 * Login failures are uniform on purpose: the client cannot tell a bad username
 * from a bad password from an account that does not exist.
 *
 * @dependencies
 * - internal/app, internal/store: Business logic and store sentinel errors.
 */

package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/globepay/payments-service/internal/app"
	"github.com/globepay/payments-service/internal/store"
)

type loginRequest struct {
	Username      string `json:"username"`
	AccountNumber string `json:"accountNumber"`
	Password      string `json:"password"`
}

// RegisterHandler handles new customer registration.
func (h *Handlers) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	token, user, err := h.service.Register(r.Context(), payload)
	if err != nil {
		if validation, ok := asValidation(err); ok {
			writeFail(w, http.StatusBadRequest, "Validation failed", map[string]any{"errors": validation.Violations})
			return
		}
		var duplicate *store.DuplicateError
		if errors.As(err, &duplicate) {
			writeFail(w, http.StatusBadRequest, fmt.Sprintf("An account with this %s already exists", duplicate.Field), nil)
			return
		}
		log.Printf("level=error component=api endpoint=register msg=\"registration failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"token":   token,
		"user":    user,
	})
}

// LoginHandler handles customer login.
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeInto(r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Username, req.AccountNumber, req.Password)
	if err != nil {
		if throttled, ok := asThrottled(err); ok {
			writeThrottled(w, throttled)
			return
		}
		if errors.Is(err, app.ErrInvalidCredentials) {
			writeFail(w, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}
		log.Printf("level=error component=api endpoint=login msg=\"login failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

// MeHandler returns the account behind the current session token.
func (h *Handlers) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get user from context")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"user": user})
}
