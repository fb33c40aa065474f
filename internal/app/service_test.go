package app

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/globepay/payments-service/internal/domain"
	"github.com/globepay/payments-service/internal/store"
	"github.com/globepay/payments-service/pkg/rabbitmq"
)

// stubRepository embeds the Repository interface so each test only overrides the
// methods it exercises; calling anything else panics, which catches unexpected
// store access.
type stubRepository struct {
	store.Repository

	findUserByLogin     func(ctx context.Context, username, accountNumber string) (*domain.User, error)
	findAdminByUsername func(ctx context.Context, username string) (*domain.Admin, error)
	touchUserLastLogin  func(ctx context.Context, id uuid.UUID) error
	touchAdminLastLogin func(ctx context.Context, id uuid.UUID) error
	createPayment       func(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)
	findPaymentByID     func(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	listPayments        func(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error)
	verifyPayment       func(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	rejectPayment       func(ctx context.Context, id uuid.UUID, appendNote string) (*domain.Payment, error)
}

func (s *stubRepository) FindUserByLogin(ctx context.Context, username, accountNumber string) (*domain.User, error) {
	return s.findUserByLogin(ctx, username, accountNumber)
}

func (s *stubRepository) FindAdminByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	return s.findAdminByUsername(ctx, username)
}

func (s *stubRepository) TouchUserLastLogin(ctx context.Context, id uuid.UUID) error {
	if s.touchUserLastLogin != nil {
		return s.touchUserLastLogin(ctx, id)
	}
	return nil
}

func (s *stubRepository) TouchAdminLastLogin(ctx context.Context, id uuid.UUID) error {
	if s.touchAdminLastLogin != nil {
		return s.touchAdminLastLogin(ctx, id)
	}
	return nil
}

func (s *stubRepository) CreatePayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	return s.createPayment(ctx, payment)
}

func (s *stubRepository) FindPaymentByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return s.findPaymentByID(ctx, id)
}

func (s *stubRepository) ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
	return s.listPayments(ctx, filter)
}

func (s *stubRepository) VerifyPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return s.verifyPayment(ctx, id)
}

func (s *stubRepository) RejectPayment(ctx context.Context, id uuid.UUID, appendNote string) (*domain.Payment, error) {
	return s.rejectPayment(ctx, id, appendNote)
}

// recordingPublisher captures published events instead of talking to a broker.
type recordingPublisher struct {
	rabbitmq.EventProducerFallback
	routingKeys []string
	events      []rabbitmq.PaymentEvent
}

func (p *recordingPublisher) PublishPaymentEvent(_ context.Context, routingKey string, event rabbitmq.PaymentEvent) error {
	p.routingKeys = append(p.routingKeys, routingKey)
	p.events = append(p.events, event)
	return nil
}

func newTestService(repo store.Repository, producer rabbitmq.Publisher) *Service {
	tokens := NewTokenManager("test-secret", time.Hour)
	guard := NewLoginGuard(NewMemoryLimiterStore())
	return NewService(repo, tokens, guard, producer)
}

func TestLoginShapeFailureSkipsStore(t *testing.T) {
	storeQueried := false
	repo := &stubRepository{
		findUserByLogin: func(context.Context, string, string) (*domain.User, error) {
			storeQueried = true
			return nil, store.ErrUserNotFound
		},
	}
	service := newTestService(repo, nil)

	inputs := []struct {
		username      string
		accountNumber string
		password      string
	}{
		{"john@smith", "1234567890", "Str0ng!Pass"},
		{"john'; DROP TABLE users;--", "1234567890", "Str0ng!Pass"},
		{"johnsmith", "12345", "Str0ng!Pass"},
		{"johnsmith", "1234567890", ""},
	}

	for _, input := range inputs {
		_, _, err := service.Login(context.Background(), input.username, input.accountNumber, input.password)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for %+v, got %v", input, err)
		}
	}
	if storeQueried {
		t.Fatal("malformed credentials must never reach the store")
	}
}

func TestLoginSuccess(t *testing.T) {
	hash, err := HashPassword("Str0ng!Pass")
	if err != nil {
		t.Fatalf("hashing failed: %v", err)
	}
	user := &domain.User{
		ID:            uuid.New(),
		FullName:      "John Smith",
		Username:      "johnsmith",
		AccountNumber: "1234567890",
		PasswordHash:  hash,
	}

	touched := false
	repo := &stubRepository{
		findUserByLogin: func(_ context.Context, username, accountNumber string) (*domain.User, error) {
			if username != "johnsmith" || accountNumber != "1234567890" {
				return nil, store.ErrUserNotFound
			}
			return user, nil
		},
		touchUserLastLogin: func(context.Context, uuid.UUID) error {
			touched = true
			return nil
		},
	}
	service := newTestService(repo, nil)

	token, summary, err := service.Login(context.Background(), " JohnSmith ", "1234567890", "Str0ng!Pass")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}
	if summary.ID != user.ID || summary.Username != "johnsmith" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !touched {
		t.Fatal("expected last login to be recorded")
	}

	subject, kind, err := service.VerifyToken(token)
	if err != nil {
		t.Fatalf("token verification failed: %v", err)
	}
	if subject != user.ID || kind != TokenKindUser {
		t.Fatalf("unexpected token contents: subject=%s kind=%s", subject, kind)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := HashPassword("Str0ng!Pass")
	if err != nil {
		t.Fatalf("hashing failed: %v", err)
	}
	repo := &stubRepository{
		findUserByLogin: func(context.Context, string, string) (*domain.User, error) {
			return &domain.User{ID: uuid.New(), Username: "johnsmith", PasswordHash: hash}, nil
		},
	}
	service := newTestService(repo, nil)

	_, _, err = service.Login(context.Background(), "johnsmith", "1234567890", "Wr0ng!Pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginThrottlesAfterRepeatedFailures(t *testing.T) {
	repo := &stubRepository{
		findUserByLogin: func(context.Context, string, string) (*domain.User, error) {
			return nil, store.ErrUserNotFound
		},
	}
	service := newTestService(repo, nil)
	ctx := context.Background()

	for i := 0; i < loginGuardFreeRetries+1; i++ {
		_, _, err := service.Login(ctx, "johnsmith", "1234567890", "Wr0ng!Pass")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	_, _, err := service.Login(ctx, "johnsmith", "1234567890", "Wr0ng!Pass")
	var throttled *ThrottledError
	if !errors.As(err, &throttled) {
		t.Fatalf("expected *ThrottledError, got %v", err)
	}
	if throttled.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %s", throttled.RetryAfter)
	}
}

func TestAdminLoginInactiveAccount(t *testing.T) {
	hash, err := HashPassword("Str0ng!Pass")
	if err != nil {
		t.Fatalf("hashing failed: %v", err)
	}
	repo := &stubRepository{
		findAdminByUsername: func(context.Context, string) (*domain.Admin, error) {
			return &domain.Admin{ID: uuid.New(), Username: "backoffice", PasswordHash: hash, Role: domain.RoleAdmin, IsActive: false}, nil
		},
	}
	service := newTestService(repo, nil)

	_, _, err = service.AdminLogin(context.Background(), "backoffice", "Str0ng!Pass")
	if !errors.Is(err, ErrAdminInactive) {
		t.Fatalf("expected ErrAdminInactive, got %v", err)
	}

	// Wrong password against the same account stays indistinguishable from an
	// unknown username.
	_, _, err = service.AdminLogin(context.Background(), "backoffice", "Wr0ng!Pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

var referencePattern = regexp.MustCompile(`^TXN\d{17}$`)

func TestCreatePaymentSetsPendingAndReference(t *testing.T) {
	var stored *domain.Payment
	repo := &stubRepository{
		createPayment: func(_ context.Context, payment *domain.Payment) (*domain.Payment, error) {
			stored = payment
			return payment, nil
		},
	}
	producer := &recordingPublisher{}
	service := newTestService(repo, producer)
	userID := uuid.New()

	payment, err := service.CreatePayment(context.Background(), userID, validPaymentPayload())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if stored == nil {
		t.Fatal("expected the payment to reach the store")
	}
	if payment.Status != domain.StatusPending {
		t.Fatalf("expected status pending, got %q", payment.Status)
	}
	if payment.UserID != userID {
		t.Fatalf("expected owner %s, got %s", userID, payment.UserID)
	}
	if !referencePattern.MatchString(payment.TransactionReference) {
		t.Fatalf("unexpected reference format: %q", payment.TransactionReference)
	}
	if len(producer.routingKeys) != 1 || producer.routingKeys[0] != rabbitmq.RoutingKeyPaymentCreated {
		t.Fatalf("expected one payment.created event, got %v", producer.routingKeys)
	}
}

func TestCreatePaymentRejectsInvalidPayload(t *testing.T) {
	repo := &stubRepository{
		createPayment: func(context.Context, *domain.Payment) (*domain.Payment, error) {
			t.Fatal("invalid payload must not reach the store")
			return nil, nil
		},
	}
	service := newTestService(repo, nil)

	payload := validPaymentPayload()
	payload["currency"] = "DOGE"
	_, err := service.CreatePayment(context.Background(), uuid.New(), payload)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
}

func TestGetPaymentEnforcesOwnership(t *testing.T) {
	owner := uuid.New()
	paymentID := uuid.New()
	repo := &stubRepository{
		findPaymentByID: func(context.Context, uuid.UUID) (*domain.Payment, error) {
			return &domain.Payment{ID: paymentID, UserID: owner}, nil
		},
	}
	service := newTestService(repo, nil)

	if _, err := service.GetPayment(context.Background(), owner, paymentID); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := service.GetPayment(context.Background(), uuid.New(), paymentID); !errors.Is(err, ErrNotPaymentOwner) {
		t.Fatalf("expected ErrNotPaymentOwner, got %v", err)
	}
}

func TestListAllPaymentsFilters(t *testing.T) {
	var gotFilter domain.PaymentFilter
	repo := &stubRepository{
		listPayments: func(_ context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
			gotFilter = filter
			return nil, nil
		},
	}
	service := newTestService(repo, nil)
	ctx := context.Background()

	if _, err := service.ListAllPayments(ctx, "all", "", ""); err != nil {
		t.Fatalf("unexpected error for status=all: %v", err)
	}
	if gotFilter.Status != "" {
		t.Fatalf("status=all must mean no filter, got %q", gotFilter.Status)
	}

	if _, err := service.ListAllPayments(ctx, "verified", "2026-01-01", "2026-01-31"); err != nil {
		t.Fatalf("unexpected error for valid filters: %v", err)
	}
	if gotFilter.Status != domain.StatusVerified {
		t.Fatalf("expected status filter verified, got %q", gotFilter.Status)
	}
	if gotFilter.From == nil || gotFilter.To == nil {
		t.Fatal("expected both date bounds to be set")
	}
	if !gotFilter.To.After(*gotFilter.From) {
		t.Fatalf("expected To after From, got from=%s to=%s", gotFilter.From, gotFilter.To)
	}

	var filterErr *FilterError
	if _, err := service.ListAllPayments(ctx, "bogus", "", ""); !errors.As(err, &filterErr) {
		t.Fatalf("expected *FilterError for a bogus status, got %v", err)
	}
	if _, err := service.ListAllPayments(ctx, "", "not-a-date", ""); !errors.As(err, &filterErr) {
		t.Fatalf("expected *FilterError for a bad start date, got %v", err)
	}
	if _, err := service.ListAllPayments(ctx, "", "", "31/01/2026"); !errors.As(err, &filterErr) {
		t.Fatalf("expected *FilterError for a bad end date, got %v", err)
	}
}

func TestVerifyPaymentPublishesEvent(t *testing.T) {
	paymentID := uuid.New()
	repo := &stubRepository{
		verifyPayment: func(context.Context, uuid.UUID) (*domain.Payment, error) {
			return &domain.Payment{ID: paymentID, Status: domain.StatusVerified, TransactionReference: "TXN17000000000000001"}, nil
		},
	}
	producer := &recordingPublisher{}
	service := newTestService(repo, producer)

	payment, err := service.VerifyPayment(context.Background(), paymentID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if payment.Status != domain.StatusVerified {
		t.Fatalf("expected verified, got %q", payment.Status)
	}
	if len(producer.routingKeys) != 1 || producer.routingKeys[0] != rabbitmq.RoutingKeyPaymentVerified {
		t.Fatalf("expected one payment.verified event, got %v", producer.routingKeys)
	}
}

func TestVerifyPaymentRaceLoser(t *testing.T) {
	repo := &stubRepository{
		verifyPayment: func(_ context.Context, id uuid.UUID) (*domain.Payment, error) {
			return &domain.Payment{ID: id, Status: domain.StatusFailed}, store.ErrPaymentNotPending
		},
	}
	producer := &recordingPublisher{}
	service := newTestService(repo, producer)

	payment, err := service.VerifyPayment(context.Background(), uuid.New())
	if !errors.Is(err, store.ErrPaymentNotPending) {
		t.Fatalf("expected ErrPaymentNotPending, got %v", err)
	}
	if payment == nil || payment.Status != domain.StatusFailed {
		t.Fatalf("expected the current payment state alongside the error, got %+v", payment)
	}
	if len(producer.routingKeys) != 0 {
		t.Fatalf("race loser must not publish events, got %v", producer.routingKeys)
	}
}

func TestRejectPaymentSanitizesReason(t *testing.T) {
	tests := []struct {
		name     string
		reason   string
		wantNote string
	}{
		{"sanitizes forbidden characters", "duplicate; retry", "Rejected - duplicate retry"},
		{"keeps clean reasons verbatim", "Amount exceeds policy", "Rejected - Amount exceeds policy"},
		{"empty reason leaves notes untouched", "", ""},
		{"reason reduced to nothing leaves notes untouched", ";;;", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotNote string
			repo := &stubRepository{
				rejectPayment: func(_ context.Context, id uuid.UUID, appendNote string) (*domain.Payment, error) {
					gotNote = appendNote
					return &domain.Payment{ID: id, Status: domain.StatusFailed, Notes: appendNote}, nil
				},
			}
			producer := &recordingPublisher{}
			service := newTestService(repo, producer)

			if _, err := service.RejectPayment(context.Background(), uuid.New(), tt.reason); err != nil {
				t.Fatalf("reject failed: %v", err)
			}
			if gotNote != tt.wantNote {
				t.Fatalf("expected note %q, got %q", tt.wantNote, gotNote)
			}
			if len(producer.routingKeys) != 1 || producer.routingKeys[0] != rabbitmq.RoutingKeyPaymentRejected {
				t.Fatalf("expected one payment.rejected event, got %v", producer.routingKeys)
			}
		})
	}
}
