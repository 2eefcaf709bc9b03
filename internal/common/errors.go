// Package common defines shared constants and sentinel errors used across
// server and client layers of ThriftMarket. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrValidation = errors.New("invalid input")

	// Session and request guards.
	ErrUnauthenticated = errors.New("not authorized to access this route")
	ErrForbidden       = errors.New("forbidden")
	ErrCsrfRejected    = errors.New("invalid csrf token")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Step-up authentication.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrInvalidCaptcha     = errors.New("invalid captcha")
	ErrMfaRequired        = errors.New("mfa required")
	ErrInvalidMfaCode     = errors.New("invalid mfa code")
	ErrMfaNotConfigured   = errors.New("mfa is not set up")
	ErrMfaAlreadyEnabled  = errors.New("mfa already enabled")
	ErrChallengeExpired   = errors.New("challenge expired or already used")

	// Pricing and settlement.
	ErrOutOfStock            = errors.New("product is out of stock")
	ErrEmptyOrder            = errors.New("no valid items to purchase")
	ErrPaymentNotSucceeded   = errors.New("payment not successful")
	ErrAuthorizationMismatch = errors.New("payment authorization mismatch")
	ErrIntegrityCheckFailed  = errors.New("order integrity check failed")
	ErrProviderUnavailable   = errors.New("payment provider unavailable")
	ErrProviderRejected      = errors.New("payment provider rejected the request")
	ErrPayloadTooLarge       = errors.New("request entity too large")
	ErrRateLimited           = errors.New("too many requests, please try again later")
	ErrIntentAlreadyConsumed = errors.New("payment intent already used")
)

// LockoutError reports a locked account together with the time left until
// the lock expires.
type LockoutError struct {
	Remaining time.Duration
}

func (e *LockoutError) Error() string {
	minutes := int(e.Remaining.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("account locked due to too many failed login attempts, try again in %d minute(s)", minutes)
}

func (e *LockoutError) Unwrap() error { return ErrAccountLocked }

// CredentialsError is a failed password check that still leaves the caller
// RemainingAttempts tries before the account is locked.
type CredentialsError struct {
	RemainingAttempts int
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials, %d attempt(s) remaining", e.RemainingAttempts)
}

func (e *CredentialsError) Unwrap() error { return ErrInvalidCredentials }

// StockError names the product that stopped a pricing or settlement run.
type StockError struct {
	ProductName string
}

func (e *StockError) Error() string {
	return fmt.Sprintf("product %s is out of stock", e.ProductName)
}

func (e *StockError) Unwrap() error { return ErrOutOfStock }
