/**
 * @description
 * This file defines the account domain models for the payments-service: customers
 * (regular users) and back-office administrators. These structs map directly to the
 * `users` and `admins` tables and are returned by the store layer.
 *
 * @notes
 * - Password hashes are tagged `json:"-"` so they can never leak through an API
 *   response, mirroring the `select: false` behavior of the system this replaces.
 * - Usernames and admin emails are stored lowercase; normalization happens in the
 *   validation layer before anything reaches the store.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Admin roles. SuperAdmin is reserved for future capability restriction; no current
// route requires it, but the authorization gate can enforce it.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// User represents a registered customer who can create international payments.
type User struct {
	ID            uuid.UUID  `json:"id"`
	FullName      string     `json:"fullName"`
	IDNumber      string     `json:"idNumber"`
	AccountNumber string     `json:"accountNumber"`
	Username      string     `json:"username"`
	PasswordHash  string     `json:"-"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
}

// Admin represents a back-office operator who verifies or rejects payments.
type Admin struct {
	ID           uuid.UUID  `json:"id"`
	FullName     string     `json:"fullName"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

// UserSummary is the trimmed user projection embedded in payment responses and
// returned by the login and registration endpoints.
type UserSummary struct {
	ID            uuid.UUID `json:"id"`
	FullName      string    `json:"fullName"`
	Username      string    `json:"username"`
	AccountNumber string    `json:"accountNumber"`
}

// Summary returns the public projection of a user.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:            u.ID,
		FullName:      u.FullName,
		Username:      u.Username,
		AccountNumber: u.AccountNumber,
	}
}

// AdminSummary is the trimmed admin projection returned by the admin login endpoint.
type AdminSummary struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
}

// Summary returns the public projection of an admin.
func (a *Admin) Summary() AdminSummary {
	return AdminSummary{
		ID:       a.ID,
		FullName: a.FullName,
		Username: a.Username,
		Email:    a.Email,
		Role:     a.Role,
	}
}
