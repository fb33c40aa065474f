/**
 * @description
 * Session token issuance and verification. Tokens are HS256 JWTs carrying the
 * account id as subject and an account kind claim so the authorization gate can
 * tell customer sessions from admin sessions. The signing secret is injected at
 * startup and read-only afterwards.
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: JWT signing and parsing.
 * - github.com/google/uuid: Subject identifiers.
 */

package app

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Account kinds embedded in session tokens.
const (
	TokenKindUser  = "user"
	TokenKindAdmin = "admin"
)

type sessionClaims struct {
	Kind string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies signed, time-limited session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a TokenManager with the given signing secret and token
// lifetime. A non-positive ttl falls back to 24 hours.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token for the given account.
func (m *TokenManager) Issue(subject uuid.UUID, kind string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify parses and validates a token, returning the subject id and account kind.
// Expiry and structural failures are distinguished because callers report different
// messages for them.
func (m *TokenManager) Verify(tokenString string) (uuid.UUID, string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return uuid.Nil, "", ErrTokenInvalid
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	claims := &sessionClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, "", ErrTokenExpired
		}
		return uuid.Nil, "", ErrTokenInvalid
	}
	if !token.Valid {
		return uuid.Nil, "", ErrTokenInvalid
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", ErrTokenInvalid
	}
	return subject, claims.Kind, nil
}
