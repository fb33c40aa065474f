/**
 * @description
 * This file contains the core business logic for the payments-service. The Service
 * struct orchestrates registration, login, payment creation, and the admin
 * verification workflow on top of the store.Repository interface. Lifecycle events
 * are published to RabbitMQ best-effort; a broker outage never fails the request
 * that triggered the event.
 *
 * @dependencies
 * - internal/store: The data access layer interface.
 * - internal/domain: The service's domain models.
 * - pkg/rabbitmq: Event publishing for payment lifecycle transitions.
 */

package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/globepay/payments-service/internal/domain"
	"github.com/globepay/payments-service/internal/store"
	"github.com/globepay/payments-service/pkg/rabbitmq"
)

// Service provides the business logic for accounts and the payment ledger.
type Service struct {
	repo     store.Repository
	tokens   *TokenManager
	guard    *LoginGuard
	producer rabbitmq.Publisher
}

// NewService creates a new Service. A nil producer is replaced with the no-op
// fallback so callers never have to nil-check before publishing.
func NewService(repo store.Repository, tokens *TokenManager, guard *LoginGuard, producer rabbitmq.Publisher) *Service {
	if producer == nil {
		producer = &rabbitmq.EventProducerFallback{}
	}
	return &Service{repo: repo, tokens: tokens, guard: guard, producer: producer}
}

// Register validates a registration payload, hashes the password, stores the new
// user, and signs the user straight in with a fresh session token. Duplicate
// idNumber/accountNumber/username surface as *store.DuplicateError.
func (s *Service) Register(ctx context.Context, payload map[string]any) (string, *domain.UserSummary, error) {
	input, violations := ValidateRegistration(payload)
	if violations != nil {
		return "", nil, &ValidationError{Violations: violations}
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return "", nil, err
	}

	user := &domain.User{
		ID:            uuid.New(),
		FullName:      input.FullName,
		IDNumber:      input.IDNumber,
		AccountNumber: input.AccountNumber,
		Username:      input.Username,
		PasswordHash:  hash,
	}

	created, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(created.ID, TokenKindUser)
	if err != nil {
		return "", nil, err
	}

	log.Printf("level=info component=service msg=\"user registered\" user_id=%s username=%s", created.ID, created.Username)
	summary := created.Summary()
	return token, &summary, nil
}

// Login authenticates a customer by username, account number, and password. The
// failure mode is deliberately uniform: a malformed identifier, an unknown account,
// and a wrong password all come back as ErrInvalidCredentials, and the malformed
// cases never touch the store. Attempts against a locked identity return
// *ThrottledError before any credential work happens.
func (s *Service) Login(ctx context.Context, username, accountNumber, password string) (string, *domain.UserSummary, error) {
	identity := "user:" + strings.ToLower(strings.TrimSpace(username))

	if blocked, retryAfter := s.guard.Check(ctx, identity); blocked {
		return "", nil, &ThrottledError{RetryAfter: retryAfter}
	}

	normalizedUsername, ok := NormalizeLoginUsername(username)
	if !ok || !ValidLoginAccountNumber(accountNumber) || password == "" {
		s.guard.RecordFailure(ctx, identity)
		return "", nil, ErrInvalidCredentials
	}

	user, err := s.repo.FindUserByLogin(ctx, normalizedUsername, strings.TrimSpace(accountNumber))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.guard.RecordFailure(ctx, identity)
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	match, err := CheckPassword(user.PasswordHash, password)
	if err != nil {
		return "", nil, err
	}
	if !match {
		s.guard.RecordFailure(ctx, identity)
		return "", nil, ErrInvalidCredentials
	}

	s.guard.RecordSuccess(ctx, identity)
	if err := s.repo.TouchUserLastLogin(ctx, user.ID); err != nil {
		log.Printf("level=warn component=service msg=\"last login update failed\" user_id=%s error=%q", user.ID, err)
	}

	token, err := s.tokens.Issue(user.ID, TokenKindUser)
	if err != nil {
		return "", nil, err
	}

	log.Printf("level=info component=service msg=\"user logged in\" user_id=%s", user.ID)
	summary := user.Summary()
	return token, &summary, nil
}

// AdminLogin authenticates a back-office administrator. Credentials are checked
// before the active flag so a deactivated admin with wrong credentials still gets
// the uniform ErrInvalidCredentials.
func (s *Service) AdminLogin(ctx context.Context, username, password string) (string, *domain.AdminSummary, error) {
	identity := "admin:" + strings.ToLower(strings.TrimSpace(username))

	if blocked, retryAfter := s.guard.Check(ctx, identity); blocked {
		return "", nil, &ThrottledError{RetryAfter: retryAfter}
	}

	normalizedUsername, ok := NormalizeLoginUsername(username)
	if !ok || password == "" {
		s.guard.RecordFailure(ctx, identity)
		return "", nil, ErrInvalidCredentials
	}

	admin, err := s.repo.FindAdminByUsername(ctx, normalizedUsername)
	if err != nil {
		if errors.Is(err, store.ErrAdminNotFound) {
			s.guard.RecordFailure(ctx, identity)
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	match, err := CheckPassword(admin.PasswordHash, password)
	if err != nil {
		return "", nil, err
	}
	if !match {
		s.guard.RecordFailure(ctx, identity)
		return "", nil, ErrInvalidCredentials
	}

	if !admin.IsActive {
		// Correct credentials against a deactivated account; not a brute-force signal.
		return "", nil, ErrAdminInactive
	}

	s.guard.RecordSuccess(ctx, identity)
	if err := s.repo.TouchAdminLastLogin(ctx, admin.ID); err != nil {
		log.Printf("level=warn component=service msg=\"last login update failed\" admin_id=%s error=%q", admin.ID, err)
	}

	token, err := s.tokens.Issue(admin.ID, TokenKindAdmin)
	if err != nil {
		return "", nil, err
	}

	log.Printf("level=info component=service msg=\"admin logged in\" admin_id=%s role=%s", admin.ID, admin.Role)
	summary := admin.Summary()
	return token, &summary, nil
}

// GetUser loads a user by id for the authorization gate.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.repo.FindUserByID(ctx, id)
}

// GetAdmin loads an admin by id for the authorization gate.
func (s *Service) GetAdmin(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	return s.repo.FindAdminByID(ctx, id)
}

// VerifyToken delegates to the token manager.
func (s *Service) VerifyToken(tokenString string) (uuid.UUID, string, error) {
	return s.tokens.Verify(tokenString)
}

// newTransactionReference builds a reference of the form TXN<unix-ms><4 digits>.
// The millisecond timestamp plus random suffix makes collisions vanishingly rare;
// if one does occur the unique index rejects it and the client retries.
func newTransactionReference() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generating transaction reference: %w", err)
	}
	return fmt.Sprintf("TXN%d%04d", time.Now().UnixMilli(), n.Int64()), nil
}

// CreatePayment validates a payment payload and records it in status pending with a
// freshly generated transaction reference, then publishes a payment.created event.
func (s *Service) CreatePayment(ctx context.Context, userID uuid.UUID, payload map[string]any) (*domain.Payment, error) {
	input, violations := ValidatePayment(payload)
	if violations != nil {
		return nil, &ValidationError{Violations: violations}
	}

	reference, err := newTransactionReference()
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		ID:                   uuid.New(),
		UserID:               userID,
		Amount:               input.Amount,
		Currency:             input.Currency,
		Provider:             input.Provider,
		PayeeAccountNumber:   input.PayeeAccountNumber,
		PayeeName:            input.PayeeName,
		SwiftCode:            input.SwiftCode,
		Status:               domain.StatusPending,
		TransactionReference: reference,
		Notes:                input.Notes,
	}

	created, err := s.repo.CreatePayment(ctx, payment)
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=service msg=\"payment created\" payment_id=%s user_id=%s reference=%s amount=%.2f currency=%s",
		created.ID, created.UserID, created.TransactionReference, created.Amount, created.Currency)
	s.publishPaymentEvent(ctx, rabbitmq.RoutingKeyPaymentCreated, created)
	return created, nil
}

// ListUserPayments returns the requester's payments, newest first.
func (s *Service) ListUserPayments(ctx context.Context, userID uuid.UUID) ([]domain.Payment, error) {
	return s.repo.ListPaymentsByUser(ctx, userID)
}

// GetPayment loads a single payment and enforces that the requester owns it.
func (s *Service) GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != userID {
		return nil, ErrNotPaymentOwner
	}
	return payment, nil
}

// ListAllPayments returns every payment for the back office, restricted by the
// given filters. Status accepts "all" or empty as no filter; date bounds accept
// RFC 3339 timestamps or plain YYYY-MM-DD dates. Bad filter values come back as
// *FilterError rather than an empty result.
func (s *Service) ListAllPayments(ctx context.Context, status, startDate, endDate string) ([]domain.Payment, error) {
	filter := domain.PaymentFilter{}

	status = strings.TrimSpace(status)
	if status != "" && status != "all" {
		if !domain.ValidStatus(status) {
			return nil, &FilterError{Message: "Invalid status filter"}
		}
		filter.Status = status
	}

	if startDate != "" {
		from, _, err := parseDateBound(startDate)
		if err != nil {
			return nil, &FilterError{Message: "Invalid startDate"}
		}
		filter.From = &from
	}
	if endDate != "" {
		to, dateOnly, err := parseDateBound(endDate)
		if err != nil {
			return nil, &FilterError{Message: "Invalid endDate"}
		}
		if dateOnly {
			// A bare date as upper bound means the whole of that day.
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		filter.To = &to
	}

	return s.repo.ListPayments(ctx, filter)
}

func parseDateBound(value string) (t time.Time, dateOnly bool, err error) {
	value = strings.TrimSpace(value)
	if t, err = time.Parse(time.RFC3339, value); err == nil {
		return t, false, nil
	}
	if t, err = time.Parse("2006-01-02", value); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, err
}

// PendingPayments returns the verification queue, newest first.
func (s *Service) PendingPayments(ctx context.Context) ([]domain.Payment, error) {
	return s.repo.ListPendingPayments(ctx)
}

// VerifyPayment moves a pending payment to verified. If the payment is no longer
// pending the store's ErrPaymentNotPending comes back together with the payment's
// current state so the caller can report which transition already won.
func (s *Service) VerifyPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	payment, err := s.repo.VerifyPayment(ctx, id)
	if err != nil {
		return payment, err
	}

	log.Printf("level=info component=service msg=\"payment verified\" payment_id=%s reference=%s", payment.ID, payment.TransactionReference)
	s.publishPaymentEvent(ctx, rabbitmq.RoutingKeyPaymentVerified, payment)
	return payment, nil
}

// RejectPayment moves a pending payment to failed. A supplied reason is sanitized
// and appended to whatever notes the payment already carried; without a usable
// reason the notes are left untouched.
func (s *Service) RejectPayment(ctx context.Context, id uuid.UUID, reason string) (*domain.Payment, error) {
	note := ""
	if clean := CleanNoteText(reason); clean != "" {
		note = "Rejected - " + clean
	}

	payment, err := s.repo.RejectPayment(ctx, id, note)
	if err != nil {
		return payment, err
	}

	log.Printf("level=info component=service msg=\"payment rejected\" payment_id=%s reference=%s", payment.ID, payment.TransactionReference)
	s.publishPaymentEvent(ctx, rabbitmq.RoutingKeyPaymentRejected, payment)
	return payment, nil
}

// Stats returns the aggregate dashboard snapshot.
func (s *Service) Stats(ctx context.Context) (*domain.PaymentStats, error) {
	return s.repo.GetPaymentStats(ctx)
}

func (s *Service) publishPaymentEvent(ctx context.Context, routingKey string, payment *domain.Payment) {
	event := rabbitmq.PaymentEvent{
		PaymentID:            payment.ID,
		UserID:               payment.UserID,
		TransactionReference: payment.TransactionReference,
		Amount:               payment.Amount,
		Currency:             payment.Currency,
		Status:               payment.Status,
		Timestamp:            time.Now().UTC(),
	}
	if err := s.producer.PublishPaymentEvent(ctx, routingKey, event); err != nil {
		log.Printf("level=warn component=service msg=\"payment event publish failed\" routing_key=%s payment_id=%s error=%q", routingKey, payment.ID, err)
	}
}
