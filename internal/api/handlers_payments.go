/**
 * @description
 * HTTP handlers for the customer-facing payment endpoints: creating an
 * international payment, listing the requester's payments, and fetching one by id.
 * Ownership is enforced on single-payment reads; customers never see other
 * customers' ledgers.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/store: Business logic and store sentinel errors.
 */

package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/globepay/payments-service/internal/app"
	"github.com/globepay/payments-service/internal/store"
)

// CreatePaymentHandler records a new payment in status pending.
func (h *Handlers) CreatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get user from context")
		return
	}

	payload, err := decodePayload(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	payment, err := h.service.CreatePayment(r.Context(), user.ID, payload)
	if err != nil {
		if validation, ok := asValidation(err); ok {
			writeFail(w, http.StatusBadRequest, "Validation failed", map[string]any{"errors": validation.Violations})
			return
		}
		if errors.Is(err, store.ErrDuplicateReference) {
			log.Printf("level=error component=api endpoint=create_payment msg=\"transaction reference collision\" user_id=%s", user.ID)
			writeError(w, http.StatusInternalServerError, "Could not allocate a transaction reference, please retry")
			return
		}
		log.Printf("level=error component=api endpoint=create_payment msg=\"payment creation failed\" user_id=%s err=%v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Payment creation failed")
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{
		"message": "Payment created successfully",
		"payment": payment,
	})
}

// ListMyPaymentsHandler returns the requester's payments, newest first.
func (h *Handlers) ListMyPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get user from context")
		return
	}

	payments, err := h.service.ListUserPayments(r.Context(), user.ID)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_payments msg=\"listing failed\" user_id=%s err=%v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Could not fetch payments")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"results":  len(payments),
		"payments": payments,
	})
}

// GetPaymentHandler returns one payment owned by the requester.
func (h *Handlers) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not get user from context")
		return
	}

	paymentID, err := uuid.Parse(chi.URLParam(r, "paymentID"))
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid payment ID", nil)
		return
	}

	payment, err := h.service.GetPayment(r.Context(), user.ID, paymentID)
	if err != nil {
		if errors.Is(err, store.ErrPaymentNotFound) {
			writeFail(w, http.StatusNotFound, "Payment not found", nil)
			return
		}
		if errors.Is(err, app.ErrNotPaymentOwner) {
			writeFail(w, http.StatusForbidden, "You do not have permission to view this payment", nil)
			return
		}
		log.Printf("level=error component=api endpoint=get_payment msg=\"lookup failed\" payment_id=%s err=%v", paymentID, err)
		writeError(w, http.StatusInternalServerError, "Could not fetch payment")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"payment": payment})
}
