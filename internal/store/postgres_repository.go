/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all SQL for the credential store and the payment ledger, including the
 * conditional status updates that the verification workflow's correctness depends on.
 *
 * @dependencies
 * - context, errors, fmt, strings: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/globepay/payments-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// uniqueViolation unwraps a pgconn error and reports whether it is a unique
// constraint violation (SQLSTATE 23505), returning the violated constraint name.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// duplicateField maps a unique-constraint name to the client-facing field name.
func duplicateField(constraint string) string {
	switch {
	case strings.Contains(constraint, "id_number"):
		return "idNumber"
	case strings.Contains(constraint, "account_number"):
		return "accountNumber"
	case strings.Contains(constraint, "email"):
		return "email"
	case strings.Contains(constraint, "username"):
		return "username"
	default:
		return "account"
	}
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (id, full_name, id_number, account_number, username, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.FullName,
		user.IDNumber,
		user.AccountNumber,
		user.Username,
		user.PasswordHash,
	).Scan(&user.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return nil, &DuplicateError{Field: duplicateField(constraint)}
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) FindUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `
		SELECT id, full_name, id_number, account_number, username, password_hash, created_at, last_login
		FROM users WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.FullName, &user.IDNumber, &user.AccountNumber,
		&user.Username, &user.PasswordHash, &user.CreatedAt, &user.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindUserByLogin resolves a user by the (username, accountNumber) credential key.
// Both values must belong to the same record.
func (r *PostgresRepository) FindUserByLogin(ctx context.Context, username, accountNumber string) (*domain.User, error) {
	var user domain.User
	query := `
		SELECT id, full_name, id_number, account_number, username, password_hash, created_at, last_login
		FROM users WHERE username = $1 AND account_number = $2
	`
	err := r.db.QueryRow(ctx, query, username, accountNumber).Scan(
		&user.ID, &user.FullName, &user.IDNumber, &user.AccountNumber,
		&user.Username, &user.PasswordHash, &user.CreatedAt, &user.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// TouchUserLastLogin stamps last_login without touching any other column, so the
// stored password hash is never rewritten on login.
func (r *PostgresRepository) TouchUserLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) CreateAdmin(ctx context.Context, admin *domain.Admin) (*domain.Admin, error) {
	query := `
		INSERT INTO admins (id, full_name, email, username, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		admin.ID,
		admin.FullName,
		admin.Email,
		admin.Username,
		admin.PasswordHash,
		admin.Role,
		admin.IsActive,
	).Scan(&admin.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return nil, &DuplicateError{Field: duplicateField(constraint)}
		}
		return nil, fmt.Errorf("inserting admin: %w", err)
	}
	return admin, nil
}

func (r *PostgresRepository) FindAdminByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	var admin domain.Admin
	query := `
		SELECT id, full_name, email, username, password_hash, role, is_active, created_at, last_login
		FROM admins WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&admin.ID, &admin.FullName, &admin.Email, &admin.Username,
		&admin.PasswordHash, &admin.Role, &admin.IsActive, &admin.CreatedAt, &admin.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}

func (r *PostgresRepository) FindAdminByUsername(ctx context.Context, username string) (*domain.Admin, error) {
	var admin domain.Admin
	query := `
		SELECT id, full_name, email, username, password_hash, role, is_active, created_at, last_login
		FROM admins WHERE username = $1
	`
	err := r.db.QueryRow(ctx, query, username).Scan(
		&admin.ID, &admin.FullName, &admin.Email, &admin.Username,
		&admin.PasswordHash, &admin.Role, &admin.IsActive, &admin.CreatedAt, &admin.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &admin, nil
}

func (r *PostgresRepository) TouchAdminLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE admins SET last_login = NOW() WHERE id = $1`, id)
	return err
}

// paymentColumns is the shared projection for payment queries. The owner's public
// fields are joined in so list and detail responses can embed them without a second
// round trip.
const paymentColumns = `
	p.id, p.user_id, p.amount::float8, p.currency, p.provider,
	p.payee_account_number, p.payee_name, p.swift_code, p.status,
	p.transaction_reference, COALESCE(p.notes, ''), p.created_at, p.processed_at,
	u.full_name, u.username, u.account_number
`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	var owner domain.UserSummary
	err := row.Scan(
		&p.ID, &p.UserID, &p.Amount, &p.Currency, &p.Provider,
		&p.PayeeAccountNumber, &p.PayeeName, &p.SwiftCode, &p.Status,
		&p.TransactionReference, &p.Notes, &p.CreatedAt, &p.ProcessedAt,
		&owner.FullName, &owner.Username, &owner.AccountNumber,
	)
	if err != nil {
		return nil, err
	}
	owner.ID = p.UserID
	p.Owner = &owner
	return &p, nil
}

func (r *PostgresRepository) collectPayments(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []domain.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (r *PostgresRepository) CreatePayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	query := `
		INSERT INTO payments (
			id, user_id, amount, currency, provider,
			payee_account_number, payee_name, swift_code, status,
			transaction_reference, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		payment.ID,
		payment.UserID,
		payment.Amount,
		payment.Currency,
		payment.Provider,
		payment.PayeeAccountNumber,
		payment.PayeeName,
		payment.SwiftCode,
		payment.Status,
		payment.TransactionReference,
		payment.Notes,
	).Scan(&payment.CreatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			if strings.Contains(constraint, "transaction_reference") {
				return nil, ErrDuplicateReference
			}
			return nil, &DuplicateError{Field: duplicateField(constraint)}
		}
		return nil, fmt.Errorf("inserting payment: %w", err)
	}
	return payment, nil
}

func (r *PostgresRepository) FindPaymentByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p JOIN users u ON u.id = p.user_id WHERE p.id = $1`
	p, err := scanPayment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments p JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC
	`
	return r.collectPayments(ctx, query, userID)
}

// ListPayments returns payments matching the filter, newest first. Predicates are
// built only from the filter's typed fields; nothing request-shaped reaches the SQL.
func (r *PostgresRepository) ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p JOIN users u ON u.id = p.user_id`
	conditions := []string{}
	args := []any{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("p.created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("p.created_at <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY p.created_at DESC"

	return r.collectPayments(ctx, query, args...)
}

func (r *PostgresRepository) ListPendingPayments(ctx context.Context) ([]domain.Payment, error) {
	return r.ListPayments(ctx, domain.PaymentFilter{Status: domain.StatusPending})
}

// VerifyPayment transitions a pending payment to verified. The status precondition
// lives in the UPDATE itself: of two racing transitions, exactly one matches the
// WHERE clause and the loser is told the payment already moved on.
func (r *PostgresRepository) VerifyPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `
		UPDATE payments p
		SET status = 'verified', processed_at = NOW()
		FROM users u
		WHERE p.id = $1 AND p.status = 'pending' AND u.id = p.user_id
		RETURNING ` + paymentColumns
	p, err := scanPayment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.explainMissedTransition(ctx, id)
		}
		return nil, err
	}
	return p, nil
}

// RejectPayment transitions a pending payment to failed, optionally appending a
// sanitized rejection note. Prior note text is preserved with a ". " separator.
func (r *PostgresRepository) RejectPayment(ctx context.Context, id uuid.UUID, appendNote string) (*domain.Payment, error) {
	query := `
		UPDATE payments p
		SET status = 'failed',
			processed_at = NOW(),
			notes = CASE
				WHEN $2 = '' THEN p.notes
				WHEN COALESCE(p.notes, '') = '' THEN $2
				ELSE p.notes || '. ' || $2
			END
		FROM users u
		WHERE p.id = $1 AND p.status = 'pending' AND u.id = p.user_id
		RETURNING ` + paymentColumns
	p, err := scanPayment(r.db.QueryRow(ctx, query, id, appendNote))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.explainMissedTransition(ctx, id)
		}
		return nil, err
	}
	return p, nil
}

// explainMissedTransition re-reads a payment after a conditional update matched no
// rows, distinguishing "no such payment" from "payment already left pending". The
// current record is returned alongside ErrPaymentNotPending so callers can report
// which state the payment is in.
func (r *PostgresRepository) explainMissedTransition(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, err := r.FindPaymentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, ErrPaymentNotPending
}

func (r *PostgresRepository) GetPaymentStats(ctx context.Context) (*domain.PaymentStats, error) {
	var stats domain.PaymentStats
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'verified'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COALESCE(SUM(amount) FILTER (WHERE status IN ('verified', 'processed', 'completed')), 0)::float8
		FROM payments
	`
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalPayments,
		&stats.PendingPayments,
		&stats.VerifiedPayments,
		&stats.FailedPayments,
		&stats.TotalAmount,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
