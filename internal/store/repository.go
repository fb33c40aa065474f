/**
 * @description
 * This file defines the `Repository` interface, the contract for all data access in
 * the payments-service, along with the sentinel errors the implementations return.
 * Business logic depends only on this interface, which keeps the PostgreSQL details
 * out of the application layer and lets tests substitute in-memory stubs.
 *
 * @dependencies
 * - context, errors, fmt: Standard Go libraries.
 * - github.com/google/uuid: For identifiers.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/globepay/payments-service/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrPaymentNotPending  = errors.New("payment is not pending")
	ErrDuplicateReference = errors.New("duplicate transaction reference")
)

// DuplicateError reports a unique-constraint collision on an account field. The
// field name is safe to echo back to the client.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Credential store
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// FindUserByLogin requires username and account number to match the same record.
	FindUserByLogin(ctx context.Context, username, accountNumber string) (*domain.User, error)
	TouchUserLastLogin(ctx context.Context, id uuid.UUID) error

	CreateAdmin(ctx context.Context, admin *domain.Admin) (*domain.Admin, error)
	FindAdminByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error)
	FindAdminByUsername(ctx context.Context, username string) (*domain.Admin, error)
	TouchAdminLastLogin(ctx context.Context, id uuid.UUID) error

	// Payment ledger
	CreatePayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)
	FindPaymentByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Payment, error)
	ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error)
	ListPendingPayments(ctx context.Context) ([]domain.Payment, error)

	// Verification workflow. Both updates are conditional on status = 'pending'; a
	// concurrent second transition loses the race at the database and comes back as
	// ErrPaymentNotPending together with the payment's current state.
	VerifyPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	RejectPayment(ctx context.Context, id uuid.UUID, appendNote string) (*domain.Payment, error)

	GetPaymentStats(ctx context.Context) (*domain.PaymentStats, error)
}
