// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an identity that can sign in: a buyer, seller or admin.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string

	// MFASecret holds the base32 TOTP secret. It is set by enrollment before
	// MFAEnabled flips, so a non-empty secret alone does not mean MFA is on.
	MFASecret  string
	MFAEnabled bool

	FailedLoginAttempts int
	LockUntil           *time.Time

	CreatedAt time.Time
}

// IsLocked reports whether the account is locked at now, and for how long.
func (u *User) IsLocked(now time.Time) (bool, time.Duration) {
	if u.LockUntil == nil || !u.LockUntil.After(now) {
		return false, 0
	}
	return true, u.LockUntil.Sub(now)
}
