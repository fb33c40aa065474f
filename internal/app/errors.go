package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminInactive      = errors.New("admin account is deactivated")
	ErrTokenInvalid       = errors.New("token is invalid")
	ErrTokenExpired       = errors.New("token has expired")
	ErrNotPaymentOwner    = errors.New("requester does not own this payment")
)

// FieldError is a single validation violation, reported back to the client as
// {field, message}.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every violation found in one validation pass, so the
// caller sees all problems at once instead of fixing them one by one.
type ValidationError struct {
	Violations []FieldError
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		fields = append(fields, v.Field)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

// ThrottledError reports a login attempt against an identity that is currently
// locked out by the brute-force guard.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry after %s", e.RetryAfter)
}

// FilterError reports an invalid admin listing filter (unknown status value or an
// unparseable date bound). The message is safe to echo to the client.
type FilterError struct {
	Message string
}

func (e *FilterError) Error() string {
	return e.Message
}
