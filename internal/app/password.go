/**
 * @description
 * Password hashing primitives. bcrypt embeds a per-hash random salt, so hashing the
 * same plaintext twice yields different stored values; verification is delegated to
 * bcrypt's constant-time comparison.
 */

package app

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// passwordHashCost is the bcrypt work factor used for all stored credentials.
const passwordHashCost = 12

// HashPassword derives a salted one-way hash from a plaintext password.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), passwordHashCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether candidate matches the stored hash. A mismatch is a
// plain false; only a malformed stored hash produces an error.
func CheckPassword(hash, candidate string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate))
	if err == nil {
		return true, nil
	}
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	return false, fmt.Errorf("comparing password hash: %w", err)
}
