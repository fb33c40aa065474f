/**
 * @description
 * HTTP handlers for the back-office endpoints: admin login, the dashboard stats
 * snapshot, payment listings, and the verification workflow. Verify and reject are
 * conditional at the database, so when two admins race on the same payment the
 * loser gets a clean "already <status>" response instead of a double transition.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/store: Business logic and store sentinel errors.
 */

package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/globepay/payments-service/internal/app"
	"github.com/globepay/payments-service/internal/store"
)

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// AdminLoginHandler handles back-office login.
func (h *Handlers) AdminLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeInto(r, &req); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	token, admin, err := h.service.AdminLogin(r.Context(), req.Username, req.Password)
	if err != nil {
		if throttled, ok := asThrottled(err); ok {
			writeThrottled(w, throttled)
			return
		}
		if errors.Is(err, app.ErrInvalidCredentials) {
			writeFail(w, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}
		if errors.Is(err, app.ErrAdminInactive) {
			writeFail(w, http.StatusUnauthorized, msgAdminInactive, nil)
			return
		}
		log.Printf("level=error component=api endpoint=admin_login msg=\"login failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"token": token,
		"admin": admin,
	})
}

// StatsHandler returns the aggregate dashboard snapshot.
func (h *Handlers) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=admin_stats msg=\"stats query failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "Could not fetch stats")
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"stats": stats})
}

// ListAllPaymentsHandler returns every payment, restricted by the optional
// status/startDate/endDate query filters.
func (h *Handlers) ListAllPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	payments, err := h.service.ListAllPayments(r.Context(), query.Get("status"), query.Get("startDate"), query.Get("endDate"))
	if err != nil {
		var filterErr *app.FilterError
		if errors.As(err, &filterErr) {
			writeFail(w, http.StatusBadRequest, filterErr.Message, nil)
			return
		}
		log.Printf("level=error component=api endpoint=admin_payments msg=\"listing failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "Could not fetch payments")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"results":  len(payments),
		"payments": payments,
	})
}

// PendingPaymentsHandler returns the verification queue, newest first.
func (h *Handlers) PendingPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.PendingPayments(r.Context())
	if err != nil {
		log.Printf("level=error component=api endpoint=admin_pending msg=\"listing failed\" err=%v", err)
		writeError(w, http.StatusInternalServerError, "Could not fetch pending payments")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"results":  len(payments),
		"payments": payments,
	})
}

func paymentIDParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "paymentID"))
}

// VerifyPaymentHandler moves a pending payment to verified.
func (h *Handlers) VerifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	admin, _ := AdminFromContext(r.Context())

	paymentID, err := paymentIDParam(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid payment ID", nil)
		return
	}

	payment, err := h.service.VerifyPayment(r.Context(), paymentID)
	if err != nil {
		if errors.Is(err, store.ErrPaymentNotFound) {
			writeFail(w, http.StatusNotFound, "Payment not found", nil)
			return
		}
		if errors.Is(err, store.ErrPaymentNotPending) {
			writeFail(w, http.StatusBadRequest, fmt.Sprintf("Payment is already %s", payment.Status), nil)
			return
		}
		log.Printf("level=error component=api endpoint=verify_payment msg=\"verification failed\" payment_id=%s err=%v", paymentID, err)
		writeError(w, http.StatusInternalServerError, "Payment verification failed")
		return
	}

	if admin != nil {
		log.Printf("level=info component=api endpoint=verify_payment msg=\"payment verified\" payment_id=%s admin_id=%s", paymentID, admin.ID)
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"message": "Payment verified successfully",
		"payment": payment,
	})
}

// RejectPaymentHandler moves a pending payment to failed, recording a sanitized
// rejection reason in its notes.
func (h *Handlers) RejectPaymentHandler(w http.ResponseWriter, r *http.Request) {
	admin, _ := AdminFromContext(r.Context())

	paymentID, err := paymentIDParam(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid payment ID", nil)
		return
	}

	// The body is optional; a missing or malformed body simply means no reason.
	var req rejectRequest
	_ = decodeInto(r, &req)

	payment, err := h.service.RejectPayment(r.Context(), paymentID, req.Reason)
	if err != nil {
		if errors.Is(err, store.ErrPaymentNotFound) {
			writeFail(w, http.StatusNotFound, "Payment not found", nil)
			return
		}
		if errors.Is(err, store.ErrPaymentNotPending) {
			writeFail(w, http.StatusBadRequest, fmt.Sprintf("Payment is already %s", payment.Status), nil)
			return
		}
		log.Printf("level=error component=api endpoint=reject_payment msg=\"rejection failed\" payment_id=%s err=%v", paymentID, err)
		writeError(w, http.StatusInternalServerError, "Payment rejection failed")
		return
	}

	if admin != nil {
		log.Printf("level=info component=api endpoint=reject_payment msg=\"payment rejected\" payment_id=%s admin_id=%s", paymentID, admin.ID)
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"message": "Payment rejected",
		"payment": payment,
	})
}
