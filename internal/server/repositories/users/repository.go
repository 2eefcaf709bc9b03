// Package users declares the identity repository contract and its
// PostgreSQL implementation.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// RecordFailedLogin bumps the failure counter in one statement. When the
	// counter reaches maxAttempts the account is locked until lockUntil and
	// the counter starts over. It returns the counter and lock after the update.
	RecordFailedLogin(ctx context.Context, id string, maxAttempts int, lockUntil time.Time) (int, *time.Time, error)
	ResetLoginFailures(ctx context.Context, id string) error

	SetMFASecret(ctx context.Context, id string, secret string) error
	EnableMFA(ctx context.Context, id string) error
	DisableMFA(ctx context.Context, id string) error
}
