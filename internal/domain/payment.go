/**
 * @description
 * This file defines the payment ledger domain model and its enumerated value sets.
 * A Payment is created by its owner in status `pending` and is only ever mutated by
 * the verification workflow; the transaction reference is generated once at creation
 * and never changes.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses. The verification workflow only performs pending -> verified and
// pending -> failed; the remaining values are valid stored states reserved for a
// settlement integration.
const (
	StatusPending   = "pending"
	StatusVerified  = "verified"
	StatusProcessed = "processed"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// PaymentStatuses is the full set of valid stored statuses, used for filter validation.
var PaymentStatuses = []string{
	StatusPending, StatusVerified, StatusProcessed, StatusCompleted, StatusFailed, StatusCancelled,
}

// Currencies accepted for international payments.
var Currencies = []string{"USD", "EUR", "GBP", "ZAR", "JPY", "AUD", "CAD", "CHF"}

// Providers accepted for routing a payment.
var Providers = []string{"SWIFT", "SEPA", "ACH", "WIRE"}

// Payment represents a single international payment request in the ledger.
type Payment struct {
	ID                   uuid.UUID    `json:"id"`
	UserID               uuid.UUID    `json:"userId"`
	Amount               float64      `json:"amount"`
	Currency             string       `json:"currency"`
	Provider             string       `json:"provider"`
	PayeeAccountNumber   string       `json:"payeeAccountNumber"`
	PayeeName            string       `json:"payeeName"`
	SwiftCode            string       `json:"swiftCode"`
	Status               string       `json:"status"`
	TransactionReference string       `json:"transactionReference"`
	Notes                string       `json:"notes,omitempty"`
	CreatedAt            time.Time    `json:"createdAt"`
	ProcessedAt          *time.Time   `json:"processedAt,omitempty"`
	Owner                *UserSummary `json:"user,omitempty"`
}

// PaymentInput carries a validated create-payment request into the ledger. All string
// fields are already normalized (trimmed, uppercased where the format demands it).
type PaymentInput struct {
	Amount             float64
	Currency           string
	Provider           string
	PayeeAccountNumber string
	PayeeName          string
	SwiftCode          string
	Notes              string
}

// PaymentFilter restricts an admin payment listing. Status is either empty (no
// filter) or a member of PaymentStatuses; the date bounds are optional.
type PaymentFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
}

// PaymentStats is the aggregate snapshot served on the admin dashboard.
type PaymentStats struct {
	TotalPayments    int64   `json:"totalPayments"`
	PendingPayments  int64   `json:"pendingPayments"`
	VerifiedPayments int64   `json:"verifiedPayments"`
	FailedPayments   int64   `json:"failedPayments"`
	TotalAmount      float64 `json:"totalAmount"`
}

// ValidStatus reports whether s is a member of PaymentStatuses.
func ValidStatus(s string) bool {
	for _, status := range PaymentStatuses {
		if s == status {
			return true
		}
	}
	return false
}
